package alerts

import (
	"strconv"
	"strings"
	"time"
)

// Type classifies an alert by the confidence of the detection behind it.
type Type string

const (
	TypeCritical Type = "critical"
	TypeWarning  Type = "warning"
	TypeInfo     Type = "info"
)

// Status is the server-reconciled lifecycle state of an alert. Transitions
// only move forward: new → processed or new → dismissed, never back.
type Status string

const (
	StatusNew       Status = "new"
	StatusProcessed Status = "processed"
	StatusDismissed Status = "dismissed"
)

// Source identifies which video source produced the triggering frame.
type Source string

const (
	SourceWebcam Source = "webcam"
	SourceUpload Source = "upload"
)

// MaxNoteLength is the maximum length of an operator note.
const MaxNoteLength = 500

// Alert is one detected event surfaced to the operator.
type Alert struct {
	ID              string
	Timestamp       time.Time
	Type            Type
	Message         string
	Source          Source
	Confidence      float64
	Status          Status
	CameraID        *int
	Notes           string
	ClipURL         string
	IsFalsePositive bool
	Read            bool
}

// DeriveType maps a confidence score to an alert type. The type is always
// recomputed from confidence, never trusted from input. Boundary values fall
// to the lower type: exactly 0.8 is warning, exactly 0.5 is info.
func DeriveType(confidence float64) Type {
	switch {
	case confidence > 0.8:
		return TypeCritical
	case confidence > 0.5:
		return TypeWarning
	default:
		return TypeInfo
	}
}

// LocalID derives an alert identifier from the arrival timestamp. Used when
// the backend does not supply a stable identifier.
func LocalID(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// BackendID converts a backend-assigned numeric identifier to the canonical
// identifier type. Reusing the backend id keeps bulk replay idempotent.
func BackendID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ValidSource reports whether s is one of the two allowed video sources.
func ValidSource(s string) bool {
	return s == string(SourceWebcam) || s == string(SourceUpload)
}

// timestampLayouts are the formats the backend is known to emit.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	time.RFC3339,
}

// ParseTimestamp parses a backend timestamp string, falling back to the given
// time when the string is empty or unparseable.
func ParseTimestamp(s string, fallback time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
