// Package store holds the authoritative in-memory alert collection, the
// operator settings, and the derived connection status. Every mutation goes
// through a command on the Store; nothing else may touch the collection.
// Commands mutate local state optimistically and forward intent to the
// backend through the emitter.
package store

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/theftwatch/theftwatch/internal/alerts"
	"github.com/theftwatch/theftwatch/internal/events"
)

// Emitter forwards outbound intent events to the backend.
type Emitter interface {
	Emit(event string, payload interface{})
}

// Player plays the alert sound. Playback failures are logged, never raised.
type Player interface {
	Play() error
}

// Notifier mirrors alerts to an external notification channel.
type Notifier interface {
	NotifyAlert(a alerts.Alert)
}

// Journal records operator actions for the local audit trail.
type Journal interface {
	Record(action, details string)
}

// Settings are the user-configurable knobs. They are owned exclusively by
// the Store: mutated through commands, synchronized to the backend as a
// side effect, and overwritten wholesale by backend snapshots.
type Settings struct {
	EmailNotifications bool
	SMSNotifications   bool
	ClipCapture        bool
	AudioAlerts        bool
	LoggingPaused      bool
	ClipLengthSeconds  float64
	CooldownSeconds    int
}

// DefaultSettings mirrors the backend's factory defaults.
func DefaultSettings() Settings {
	return Settings{
		ClipCapture:       true,
		AudioAlerts:       true,
		ClipLengthSeconds: 6,
		CooldownSeconds:   60,
	}
}

// Store is the single source of truth for alerts and settings.
type Store struct {
	emitter  Emitter
	player   Player
	notifier Notifier
	journal  Journal
	logger   *log.Logger

	mu              sync.Mutex
	alerts          []alerts.Alert
	settings        Settings
	detectionActive bool
	status          Status
	decayTimer      *time.Timer
	lastFrame       string

	now func() time.Time
}

// New creates a store with default settings. player, notifier, and journal
// may be nil.
func New(emitter Emitter, player Player, notifier Notifier, journal Journal, logger *log.Logger) *Store {
	return &Store{
		emitter:  emitter,
		player:   player,
		notifier: notifier,
		journal:  journal,
		logger:   logger,
		settings: DefaultSettings(),
		status:   StatusOffline,
		now:      time.Now,
	}
}

// ========== Reads ==========

// Alerts returns a snapshot copy of the collection, newest first.
func (s *Store) Alerts() []alerts.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]alerts.Alert, len(s.alerts))
	copy(snapshot, s.alerts)
	return snapshot
}

// Alert returns the alert with the given id, if present.
func (s *Store) Alert(id string) (alerts.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfLocked(id); idx >= 0 {
		return s.alerts[idx], true
	}
	return alerts.Alert{}, false
}

// Settings returns a copy of the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Status returns the derived connection status.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// DetectionActive reports whether detection is currently active.
func (s *Store) DetectionActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectionActive
}

// UnreadCount returns how many alerts have not been opened by an operator.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.alerts {
		if !a.Read {
			count++
		}
	}
	return count
}

// StatusCounts returns the number of alerts per lifecycle status.
func (s *Store) StatusCounts() map[alerts.Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[alerts.Status]int)
	for _, a := range s.alerts {
		counts[a.Status]++
	}
	return counts
}

// CooldownDuration returns the configured cooldown as a duration. The
// intake consults this on every candidate.
func (s *Store) CooldownDuration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Duration(s.settings.CooldownSeconds) * time.Second
}

// ========== Alert commands ==========

// AddAlert prepends a new alert to the collection. A no-op while logging is
// paused. Audio playback is fire-and-forget and never blocks the caller.
func (s *Store) AddAlert(a alerts.Alert) {
	s.mu.Lock()
	if s.settings.LoggingPaused {
		s.mu.Unlock()
		return
	}
	s.alerts = append([]alerts.Alert{a}, s.alerts...)
	playSound := s.settings.AudioAlerts
	s.refreshStatusLocked()
	s.mu.Unlock()

	if playSound && s.player != nil {
		go func() {
			if err := s.player.Play(); err != nil {
				s.logger.Printf("Alert sound playback failed: %v", err)
			}
		}()
	}
	if s.notifier != nil && a.Type == alerts.TypeCritical {
		go s.notifier.NotifyAlert(a)
	}
	s.record("alert_added", fmt.Sprintf("Alert %s (%s)", a.ID, a.Type))
}

// BulkReplayAlerts reconciles a batch of historical alerts, typically sent
// by the backend on (re)connect. Entries are upserted by identifier:
// merge-if-present, insert-if-absent, so replays across reconnects never
// duplicate and never undo operator actions. A no-op while logging is
// paused.
func (s *Store) BulkReplayAlerts(entries []events.AlertLogEntry) {
	s.mu.Lock()
	if s.settings.LoggingPaused || len(entries) == 0 {
		s.mu.Unlock()
		return
	}

	now := s.now()
	var inserted []alerts.Alert
	for _, e := range entries {
		a := alerts.Alert{
			ID:         alerts.BackendID(e.AlertID),
			Timestamp:  alerts.ParseTimestamp(e.Timestamp, now),
			Type:       alerts.DeriveType(e.Confidence),
			Message:    e.Details,
			Source:     alerts.Source(e.Source),
			Confidence: e.Confidence,
			Status:     alerts.StatusNew,
			CameraID:   e.CameraID,
			ClipURL:    e.ClipURL,
		}
		if idx := s.indexOfLocked(a.ID); idx >= 0 {
			// Refresh the backend-sourced fields only. Replay entries carry
			// no status, so local operator state (status, note, read,
			// false-positive flag) must survive the merge: status never
			// reverts to new.
			existing := &s.alerts[idx]
			existing.Timestamp = a.Timestamp
			existing.Type = a.Type
			existing.Message = a.Message
			existing.Source = a.Source
			existing.Confidence = a.Confidence
			existing.CameraID = a.CameraID
			existing.ClipURL = a.ClipURL
		} else {
			inserted = append(inserted, a)
		}
	}
	// The backend sends entries newest first; prepending the block keeps
	// the collection's newest-first order.
	if len(inserted) > 0 {
		s.alerts = append(inserted, s.alerts...)
	}
	s.refreshStatusLocked()
	s.mu.Unlock()

	s.record("alerts_replayed", fmt.Sprintf("Replayed batch of %d entries", len(entries)))
}

// DismissAlert removes the alert locally and asks the backend to mark it
// dismissed. A safe no-op when the id is not present.
func (s *Store) DismissAlert(id string) {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.alerts = append(s.alerts[:idx], s.alerts[idx+1:]...)
	s.refreshStatusLocked()
	s.mu.Unlock()

	s.emitter.Emit(events.EventUpdateAlert, events.UpdateAlert{
		AlertID: id,
		Status:  string(alerts.StatusDismissed),
	})
	s.record("alert_dismissed", "Alert "+id)
}

// MarkAlertAsFalse flags the alert as a false positive and moves it to
// processed. Idempotent: repeated calls leave the alert unchanged.
func (s *Store) MarkAlertAsFalse(id string) {
	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.alerts[idx].IsFalsePositive = true
	if s.alerts[idx].Status == alerts.StatusNew {
		s.alerts[idx].Status = alerts.StatusProcessed
	}
	status := s.alerts[idx].Status
	s.mu.Unlock()

	isFalse := true
	s.emitter.Emit(events.EventUpdateAlert, events.UpdateAlert{
		AlertID:         id,
		Status:          string(status),
		IsFalsePositive: &isFalse,
	})
	s.record("alert_marked_false", "Alert "+id)
}

// AddNoteToAlert sets the operator note, overwriting any prior note. Length
// validation (1-500 characters) happens at the API boundary before the
// command is issued.
func (s *Store) AddNoteToAlert(id, note string) {
	note = strings.TrimSpace(note)

	s.mu.Lock()
	idx := s.indexOfLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.alerts[idx].Notes = note
	status := s.alerts[idx].Status
	s.mu.Unlock()

	s.emitter.Emit(events.EventUpdateAlert, events.UpdateAlert{
		AlertID: id,
		Status:  string(status),
		Notes:   &note,
	})
	s.record("alert_note_added", "Alert "+id)
}

// MarkAlertAsRead flags the alert as opened by an operator. Local only: no
// intent is emitted; callers that want server-side read tracking must emit
// an update themselves.
func (s *Store) MarkAlertAsRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOfLocked(id); idx >= 0 {
		s.alerts[idx].Read = true
	}
}

// ClearAlerts empties the collection and asks the backend to do the same.
func (s *Store) ClearAlerts() {
	s.mu.Lock()
	s.alerts = nil
	s.refreshStatusLocked()
	s.mu.Unlock()

	s.emitter.Emit(events.EventClearAlerts, nil)
	s.record("alerts_cleared", "All alerts cleared")
}

// SetLatestFrame overwrites the most recent video frame. Frames are lossy:
// only the newest one is kept, stale frames are simply replaced.
func (s *Store) SetLatestFrame(image string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFrame = image
}

// LatestFrame returns the most recent video frame, or an empty string when
// none has arrived yet.
func (s *Store) LatestFrame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFrame
}

// ========== Detection and status ==========

// SetDetectionActive flips the detection flag and recomputes status.
// Inactive detection forces status offline regardless of alert recency.
func (s *Store) SetDetectionActive(active bool) {
	s.mu.Lock()
	s.detectionActive = active
	s.refreshStatusLocked()
	s.mu.Unlock()

	if active {
		s.record("detection_started", "Detection activated")
	} else {
		s.record("detection_stopped", "Detection deactivated")
	}
}

// RefreshStatus re-derives the status from current state. Called by the
// decay timer when the highlight window elapses; also safe to call any time.
func (s *Store) RefreshStatus() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshStatusLocked()
}

// refreshStatusLocked recomputes the derived status and arms the decay
// timer so an alert status falls back to online without a new mutation.
func (s *Store) refreshStatusLocked() {
	s.status = DeriveStatus(s.detectionActive, s.alerts, s.now())

	if s.decayTimer != nil {
		s.decayTimer.Stop()
		s.decayTimer = nil
	}
	if s.status == StatusAlert {
		remaining := AlertHighlightWindow - s.now().Sub(s.alerts[0].Timestamp)
		s.decayTimer = time.AfterFunc(remaining, s.RefreshStatus)
	}
}

// ========== Settings commands ==========

// SetEmailNotifications toggles email notifications and syncs the backend.
func (s *Store) SetEmailNotifications(enabled bool) {
	s.mu.Lock()
	s.settings.EmailNotifications = enabled
	s.mu.Unlock()

	s.emitter.Emit(events.EventToggleNotifications, events.ToggleNotifications{Type: "email", Enabled: enabled})
	s.record("toggle_email", onOff(enabled))
}

// SetSMSNotifications toggles SMS notifications and syncs the backend.
func (s *Store) SetSMSNotifications(enabled bool) {
	s.mu.Lock()
	s.settings.SMSNotifications = enabled
	s.mu.Unlock()

	s.emitter.Emit(events.EventToggleNotifications, events.ToggleNotifications{Type: "sms", Enabled: enabled})
	s.record("toggle_sms", onOff(enabled))
}

// SetClipCapture toggles clip capture and syncs the backend.
func (s *Store) SetClipCapture(enabled bool) {
	s.mu.Lock()
	s.settings.ClipCapture = enabled
	s.mu.Unlock()

	s.emitter.Emit(events.EventToggleClipCapture, events.ToggleClipCapture{Enabled: enabled})
	s.record("toggle_clip_capture", onOff(enabled))
}

// SetClipLength sets the clip length in seconds and syncs the backend.
func (s *Store) SetClipLength(seconds float64) {
	s.mu.Lock()
	s.settings.ClipLengthSeconds = seconds
	s.mu.Unlock()

	s.emitter.Emit(events.EventSetClipDuration, events.SetClipDuration{Duration: seconds})
	s.record("set_clip_duration", fmt.Sprintf("Clip length set to %vs", seconds))
}

// SetCooldown sets the alert cooldown in seconds and syncs the backend.
func (s *Store) SetCooldown(seconds int) {
	s.mu.Lock()
	s.settings.CooldownSeconds = seconds
	s.mu.Unlock()

	s.emitter.Emit(events.EventSetCooldownDuration, events.SetCooldownDuration{Cooldown: seconds})
	s.record("set_cooldown", fmt.Sprintf("Cooldown set to %ds", seconds))
}

// SetLoggingPaused pauses or resumes alert logging. The backend intent
// carries the inverse sense: logging enabled = not paused.
func (s *Store) SetLoggingPaused(paused bool) {
	s.mu.Lock()
	s.settings.LoggingPaused = paused
	s.mu.Unlock()

	s.emitter.Emit(events.EventToggleLogging, events.ToggleLogging{Enabled: !paused})
	if paused {
		s.record("logging_paused", "Alert logging paused")
	} else {
		s.record("logging_resumed", "Alert logging resumed")
	}
}

// SetAudioAlerts toggles the local alert sound. Purely client-side, so no
// intent is emitted.
func (s *Store) SetAudioAlerts(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.AudioAlerts = enabled
}

// ApplySettingsSnapshot overwrites local settings with a backend snapshot.
// Last snapshot wins, no merge. The audio-alerts flag is client-local and
// survives the overwrite.
func (s *Store) ApplySettingsSnapshot(snapshot events.NotificationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.EmailNotifications = snapshot.EmailEnabled
	s.settings.SMSNotifications = snapshot.SMSEnabled
	s.settings.ClipCapture = snapshot.ClipCaptureEnabled
	s.settings.ClipLengthSeconds = snapshot.ClipDurationSeconds
	s.settings.LoggingPaused = !snapshot.LoggingEnabled
	if snapshot.CooldownSeconds > 0 {
		s.settings.CooldownSeconds = snapshot.CooldownSeconds
	}
}

// ========== Internal helpers ==========

func (s *Store) indexOfLocked(id string) int {
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) record(action, details string) {
	if s.journal != nil {
		s.journal.Record(action, details)
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

