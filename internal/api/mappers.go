package api

import (
	"github.com/theftwatch/theftwatch/internal/alerts"
	"github.com/theftwatch/theftwatch/internal/journal"
	"github.com/theftwatch/theftwatch/internal/store"
)

// AlertToResponse converts a store alert to its API representation.
func AlertToResponse(a alerts.Alert) AlertResponse {
	return AlertResponse{
		ID:              a.ID,
		Timestamp:       a.Timestamp,
		Type:            string(a.Type),
		Message:         a.Message,
		Source:          string(a.Source),
		Confidence:      a.Confidence,
		Status:          string(a.Status),
		CameraID:        a.CameraID,
		Notes:           a.Notes,
		ClipURL:         a.ClipURL,
		IsFalsePositive: a.IsFalsePositive,
		Read:            a.Read,
	}
}

// AlertsToResponses converts a slice of alerts, preserving order.
func AlertsToResponses(list []alerts.Alert) []AlertResponse {
	items := make([]AlertResponse, len(list))
	for i, a := range list {
		items[i] = AlertToResponse(a)
	}
	return items
}

// SettingsToResponse converts store settings to their API representation.
func SettingsToResponse(s store.Settings) SettingsResponse {
	return SettingsResponse{
		EmailNotifications: s.EmailNotifications,
		SMSNotifications:   s.SMSNotifications,
		ClipCapture:        s.ClipCapture,
		AudioAlerts:        s.AudioAlerts,
		LoggingPaused:      s.LoggingPaused,
		ClipLengthSeconds:  s.ClipLengthSeconds,
		CooldownSeconds:    s.CooldownSeconds,
	}
}

// JournalEntryToResponse converts a journal entry to its API representation.
func JournalEntryToResponse(e journal.Entry) JournalEntryResponse {
	return JournalEntryResponse{
		ID:        e.ID,
		Action:    e.Action,
		Details:   e.Details,
		CreatedAt: e.CreatedAt,
	}
}

// JournalEntriesToResponses converts a slice of journal entries.
func JournalEntriesToResponses(entries []journal.Entry) []JournalEntryResponse {
	items := make([]JournalEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = JournalEntryToResponse(e)
	}
	return items
}
