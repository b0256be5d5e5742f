// Package intake turns raw backend alert payloads into accepted,
// policy-filtered canonical alerts.
package intake

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/theftwatch/theftwatch/internal/alerts"
	"github.com/theftwatch/theftwatch/internal/events"
	"github.com/theftwatch/theftwatch/internal/transport"
)

// Transport is the slice of the transport client the intake uses.
type Transport interface {
	On(event string, handler transport.Handler) transport.Subscription
	Off(sub transport.Subscription)
	Emit(event string, payload interface{})
}

// Store receives accepted alerts.
type Store interface {
	AddAlert(a alerts.Alert)
}

// Intake subscribes to the backend's alert event and applies validation,
// cooldown, and enable policy before forwarding to the store.
type Intake struct {
	transport Transport
	store     Store
	cooldown  func() time.Duration
	logger    *log.Logger

	mu             sync.Mutex
	enabled        bool
	lastAcceptedAt time.Time
	sub            transport.Subscription
	subscribed     bool

	now func() time.Time
}

// New creates an intake. The cooldown func is consulted on every candidate
// so settings changes take effect immediately. The intake starts disabled;
// call Start and SetEnabled to begin accepting alerts.
func New(t Transport, store Store, cooldown func() time.Duration, logger *log.Logger) *Intake {
	return &Intake{
		transport: t,
		store:     store,
		cooldown:  cooldown,
		logger:    logger,
		now:       time.Now,
	}
}

// Start subscribes to the alert event. Any prior subscription is removed
// first so the same backend event is never delivered to a stale handler.
func (i *Intake) Start() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.startLocked()
}

func (i *Intake) startLocked() {
	if i.subscribed {
		i.transport.Off(i.sub)
	}
	i.sub = i.transport.On(events.EventAlert, i.handleAlert)
	i.subscribed = true
}

// Stop unsubscribes from the alert event.
func (i *Intake) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.subscribed {
		i.transport.Off(i.sub)
		i.subscribed = false
	}
}

// SetEnabled flips the detection-enabled flag. Enabling refreshes the
// subscription; disabling leaves it in place but drops everything silently.
func (i *Intake) SetEnabled(enabled bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.enabled = enabled
	if enabled {
		i.startLocked()
	}
}

// Enabled reports whether detection intake is currently accepting alerts.
func (i *Intake) Enabled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.enabled
}

// handleAlert processes one inbound alert payload.
func (i *Intake) handleAlert(data json.RawMessage) {
	i.mu.Lock()
	if !i.enabled {
		// Detection disabled: drop silently before decoding. Not even a
		// malformed payload produces a rejection intent, and the cooldown
		// clock is untouched.
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()

	payload, err := events.DecodeAlert(data)
	if err != nil {
		i.logger.Printf("Rejected alert payload: %v", err)
		i.transport.Emit(events.EventLogError, events.LogError{
			Action:  "alert_rejected",
			Details: err.Error(),
		})
		return
	}

	i.mu.Lock()
	if !i.enabled {
		i.mu.Unlock()
		return
	}

	now := i.now()
	if !i.lastAcceptedAt.IsZero() && now.Sub(i.lastAcceptedAt) < i.cooldown() {
		i.mu.Unlock()
		i.logger.Printf("Alert suppressed by cooldown (last accepted %v ago)", now.Sub(i.lastAcceptedAt))
		return
	}
	i.lastAcceptedAt = now
	i.mu.Unlock()

	alert := alerts.Alert{
		ID:         alerts.LocalID(now),
		Timestamp:  now,
		Type:       alerts.DeriveType(payload.Confidence),
		Message:    payload.Message,
		Source:     alerts.Source(payload.Source),
		Confidence: payload.Confidence,
		Status:     alerts.StatusNew,
		CameraID:   payload.CameraID,
	}
	i.store.AddAlert(alert)
}
