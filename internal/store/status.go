package store

import (
	"time"

	"github.com/theftwatch/theftwatch/internal/alerts"
)

// Status is the derived connection status shown to the operator. It is
// computed from other state, never set directly.
type Status string

const (
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
	StatusAlert   Status = "alert"
)

// AlertHighlightWindow is how long a fresh alert keeps the status in the
// alert state before it decays back to online.
const AlertHighlightWindow = 10 * time.Second

// DeriveStatus computes the connection status from the detection flag and
// the alert collection (newest first). Inactive detection is offline and
// overrides everything else; otherwise a newest alert younger than the
// highlight window means alert, anything else means online.
func DeriveStatus(detectionActive bool, list []alerts.Alert, now time.Time) Status {
	if !detectionActive {
		return StatusOffline
	}
	if len(list) > 0 && now.Sub(list[0].Timestamp) < AlertHighlightWindow {
		return StatusAlert
	}
	return StatusOnline
}
