package api

import (
	"time"

	"github.com/theftwatch/theftwatch/internal/alerts"
)

// ========== Alert Types ==========

// AlertResponse is the API representation of one alert.
type AlertResponse struct {
	ID              string    `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	Type            string    `json:"type"`
	Message         string    `json:"message"`
	Source          string    `json:"source"`
	Confidence      float64   `json:"confidence"`
	Status          string    `json:"status"`
	CameraID        *int      `json:"camera_id,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	ClipURL         string    `json:"clip_url,omitempty"`
	IsFalsePositive bool      `json:"is_false_positive"`
	Read            bool      `json:"read"`
}

// AlertListResponse is the response body for GET /api/alerts.
type AlertListResponse struct {
	Alerts      []AlertResponse `json:"alerts"`
	UnreadCount int             `json:"unread_count"`
}

// AddNoteRequest is the request body for POST /api/alerts/:id/note.
type AddNoteRequest struct {
	Note string `json:"note" validate:"required,min=1,max=500"`
}

// ========== Settings Types ==========

// SettingsResponse is the API representation of the operator settings.
type SettingsResponse struct {
	EmailNotifications bool    `json:"email_notifications"`
	SMSNotifications   bool    `json:"sms_notifications"`
	ClipCapture        bool    `json:"clip_capture"`
	AudioAlerts        bool    `json:"audio_alerts"`
	LoggingPaused      bool    `json:"logging_paused"`
	ClipLengthSeconds  float64 `json:"clip_length_seconds"`
	CooldownSeconds    int     `json:"cooldown_seconds"`
}

// UpdateSettingsRequest is the request body for PUT /api/settings.
// Only the fields present are applied.
type UpdateSettingsRequest struct {
	EmailNotifications *bool    `json:"email_notifications"`
	SMSNotifications   *bool    `json:"sms_notifications"`
	ClipCapture        *bool    `json:"clip_capture"`
	AudioAlerts        *bool    `json:"audio_alerts"`
	LoggingPaused      *bool    `json:"logging_paused"`
	ClipLengthSeconds  *float64 `json:"clip_length_seconds" validate:"omitempty,gt=0,lte=60"`
	CooldownSeconds    *int     `json:"cooldown_seconds" validate:"omitempty,gte=0,lte=3600"`
}

// ========== Status Types ==========

// StatusResponse is the response body for GET /api/status.
type StatusResponse struct {
	Status          string         `json:"status"`
	DetectionActive bool           `json:"detection_active"`
	Connected       bool           `json:"connected"`
	AlertCounts     map[string]int `json:"alert_counts"`
}

// SetSourceRequest is the request body for POST /api/source. CameraID is
// optional; the backend stores it alongside the source.
type SetSourceRequest struct {
	Source   string `json:"source" validate:"required,oneof=webcam upload"`
	CameraID *int   `json:"camera_id" validate:"omitempty,gte=0"`
}

// ========== Journal Types ==========

// JournalEntryResponse is the API representation of one audit entry.
type JournalEntryResponse struct {
	ID        uint      `json:"id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// StatusCountsToMap flattens the typed status counts for JSON output.
func StatusCountsToMap(counts map[alerts.Status]int) map[string]int {
	out := make(map[string]int, len(counts))
	for status, n := range counts {
		out[string(status)] = n
	}
	return out
}
