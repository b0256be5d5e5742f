package store

import (
	"testing"
	"time"

	"github.com/theftwatch/theftwatch/internal/alerts"
)

func TestDeriveStatus(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	withAlertAt := func(ts time.Time) []alerts.Alert {
		return []alerts.Alert{{ID: "1", Timestamp: ts}}
	}

	tests := []struct {
		name            string
		detectionActive bool
		list            []alerts.Alert
		now             time.Time
		want            Status
	}{
		{"inactive no alerts", false, nil, base, StatusOffline},
		{"inactive with fresh alert", false, withAlertAt(base), base, StatusOffline},
		{"active no alerts", true, nil, base, StatusOnline},
		{"active alert just arrived", true, withAlertAt(base), base, StatusAlert},
		{"active alert inside window", true, withAlertAt(base), base.Add(9999 * time.Millisecond), StatusAlert},
		{"active alert at window boundary", true, withAlertAt(base), base.Add(10 * time.Second), StatusOnline},
		{"active alert past window", true, withAlertAt(base), base.Add(time.Minute), StatusOnline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveStatus(tt.detectionActive, tt.list, tt.now)
			if got != tt.want {
				t.Errorf("DeriveStatus(%v, %d alerts, %v) = %q, want %q",
					tt.detectionActive, len(tt.list), tt.now, got, tt.want)
			}
		})
	}
}

func TestDeriveStatus_UsesNewestAlert(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	// Newest first: the head decides, older entries do not matter.
	list := []alerts.Alert{
		{ID: "2", Timestamp: base},
		{ID: "1", Timestamp: base.Add(-time.Hour)},
	}
	if got := DeriveStatus(true, list, base.Add(5*time.Second)); got != StatusAlert {
		t.Errorf("DeriveStatus = %q, want alert (head is fresh)", got)
	}
}
