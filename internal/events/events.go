// Package events defines the named events exchanged with the detection
// backend and the typed payload for each. Inbound payloads are decoded and
// validated here, at the transport boundary, so malformed shapes never reach
// the intake or the store.
package events

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/theftwatch/theftwatch/internal/alerts"
)

// Inbound events pushed by the backend.
const (
	EventAlert              = "alert"
	EventAlertLogs          = "alert_logs"
	EventNotificationStatus = "notification_status"
	EventFrame              = "frame"
	EventSnapshot           = "snapshot"
	EventSourceUpdated      = "source_updated"
	EventSourceError        = "source_error"
)

// Outbound intents emitted to the backend.
const (
	EventUpdateAlert         = "update_alert"
	EventClearAlerts         = "clear_alerts"
	EventToggleNotifications = "toggle_notifications"
	EventToggleClipCapture   = "toggle_clip_capture"
	EventSetClipDuration     = "set_clip_duration"
	EventSetCooldownDuration = "set_cooldown_duration"
	EventToggleLogging       = "toggle_logging"
	EventSetSource           = "set_source"
	EventCaptureSnapshot     = "capture_snapshot"
	EventLogError            = "log_error"
)

// AlertPayload is the body of a live `alert` event.
type AlertPayload struct {
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	CameraID   *int    `json:"camera_id"`
}

// Validate checks the payload against the intake contract.
func (p AlertPayload) Validate() error {
	if p.Message == "" {
		return fmt.Errorf("alert message is empty")
	}
	if math.IsNaN(p.Confidence) || math.IsInf(p.Confidence, 0) {
		return fmt.Errorf("alert confidence is not a finite number")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("alert confidence %v outside [0, 1]", p.Confidence)
	}
	if !alerts.ValidSource(p.Source) {
		return fmt.Errorf("invalid alert source %q", p.Source)
	}
	return nil
}

// DecodeAlert decodes and validates a live alert payload.
func DecodeAlert(data json.RawMessage) (AlertPayload, error) {
	var p AlertPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return AlertPayload{}, fmt.Errorf("malformed alert payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return AlertPayload{}, err
	}
	return p, nil
}

// AlertLogEntry is one historical alert in an `alert_logs` batch.
type AlertLogEntry struct {
	AlertID    int64   `json:"alert_id"`
	Timestamp  string  `json:"timestamp"`
	Details    string  `json:"details"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
	CameraID   *int    `json:"camera_id"`
	ClipURL    string  `json:"clip_url"`
}

// DecodeAlertLogs decodes an `alert_logs` batch.
func DecodeAlertLogs(data json.RawMessage) ([]AlertLogEntry, error) {
	var entries []AlertLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed alert_logs payload: %w", err)
	}
	return entries, nil
}

// NotificationStatus is the settings snapshot the backend sends on connect
// and after every settings change. Last snapshot wins, no merge.
type NotificationStatus struct {
	EmailEnabled        bool    `json:"email_enabled"`
	SMSEnabled          bool    `json:"sms_enabled"`
	ClipCaptureEnabled  bool    `json:"clip_capture_enabled"`
	ClipDurationSeconds float64 `json:"clip_duration_seconds"`
	LoggingEnabled      bool    `json:"logging_enabled"`
	CooldownSeconds     int     `json:"cooldown_seconds"`
}

// DecodeNotificationStatus decodes a settings snapshot.
func DecodeNotificationStatus(data json.RawMessage) (NotificationStatus, error) {
	var s NotificationStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return NotificationStatus{}, fmt.Errorf("malformed notification_status payload: %w", err)
	}
	return s, nil
}

// FramePayload carries one base64-encoded JPEG frame. Frames are lossy:
// stale frames may safely be dropped by overwriting the render target.
type FramePayload struct {
	Image string `json:"image"`
}

// SnapshotPayload announces a snapshot the backend saved to disk.
type SnapshotPayload struct {
	FilePath string `json:"file_path"`
}

// UpdateAlert asks the backend to update its record of an alert.
type UpdateAlert struct {
	AlertID         string  `json:"alert_id"`
	Status          string  `json:"status"`
	Notes           *string `json:"notes,omitempty"`
	Read            *bool   `json:"read,omitempty"`
	IsFalsePositive *bool   `json:"is_false_positive,omitempty"`
}

// ToggleNotifications toggles one backend notification channel.
type ToggleNotifications struct {
	Type    string `json:"type"` // "email" or "sms"
	Enabled bool   `json:"enabled"`
}

// ToggleClipCapture toggles backend clip capture.
type ToggleClipCapture struct {
	Enabled bool `json:"enabled"`
}

// SetClipDuration sets the backend clip length in seconds.
type SetClipDuration struct {
	Duration float64 `json:"duration"`
}

// SetCooldownDuration sets the backend alert cooldown in seconds.
type SetCooldownDuration struct {
	Cooldown int `json:"cooldown"`
}

// ToggleLogging toggles backend alert logging. Note the inverse sense
// relative to the store's logging-paused flag.
type ToggleLogging struct {
	Enabled bool `json:"enabled"`
}

// SetSource switches the backend video source.
type SetSource struct {
	Source   string `json:"source"`
	CameraID *int   `json:"camera_id,omitempty"`
}

// LogError reports a client-side failure for backend-side observability.
type LogError struct {
	Action  string `json:"action"`
	Details string `json:"details"`
}
