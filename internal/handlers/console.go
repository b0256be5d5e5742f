package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/theftwatch/theftwatch/internal/api"
	"github.com/theftwatch/theftwatch/internal/events"
	"github.com/theftwatch/theftwatch/internal/journal"
	"github.com/theftwatch/theftwatch/internal/store"
)

// DetectionControl is the slice of the intake the console handler uses.
type DetectionControl interface {
	SetEnabled(enabled bool)
	Enabled() bool
}

// Emitter forwards operator intents to the backend.
type Emitter interface {
	Emit(event string, payload interface{})
	Connected() bool
}

// JournalReader serves the audit trail endpoints. An empty action means
// no filter.
type JournalReader interface {
	Entries(action string, offset, limit int) ([]journal.Entry, error)
	Count(action string) (int64, error)
}

// ConsoleHandler handles the operator console API: alerts, settings,
// status, source control, and the audit journal.
type ConsoleHandler struct {
	store     *store.Store
	detection DetectionControl
	emitter   Emitter
	journal   JournalReader
}

// NewConsoleHandler creates a new console handler. journal may be nil;
// the journal endpoint then responds 503.
func NewConsoleHandler(s *store.Store, detection DetectionControl, emitter Emitter, j JournalReader) *ConsoleHandler {
	return &ConsoleHandler{
		store:     s,
		detection: detection,
		emitter:   emitter,
		journal:   j,
	}
}

// SetupRoutes sets up all console API routes
func (h *ConsoleHandler) SetupRoutes(mux *http.ServeMux) {
	// Alerts
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("DELETE /api/alerts", h.handleClearAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/dismiss", h.handleDismissAlert)
	mux.HandleFunc("POST /api/alerts/{id}/false-positive", h.handleMarkFalse)
	mux.HandleFunc("POST /api/alerts/{id}/note", h.handleAddNote)
	mux.HandleFunc("POST /api/alerts/{id}/read", h.handleMarkRead)

	// Settings
	mux.HandleFunc("GET /api/settings", h.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", h.handleUpdateSettings)

	// Status and detection control
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("POST /api/detection/start", h.handleStartDetection)
	mux.HandleFunc("POST /api/detection/stop", h.handleStopDetection)
	mux.HandleFunc("POST /api/source", h.handleSetSource)
	mux.HandleFunc("POST /api/snapshot", h.handleCaptureSnapshot)
	mux.HandleFunc("GET /api/frame", h.handleLatestFrame)

	// Audit journal
	mux.HandleFunc("GET /api/journal", h.handleJournal)
}

// ========== Alerts ==========

func (h *ConsoleHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, api.AlertListResponse{
		Alerts:      api.AlertsToResponses(h.store.Alerts()),
		UnreadCount: h.store.UnreadCount(),
	})
}

func (h *ConsoleHandler) handleClearAlerts(w http.ResponseWriter, r *http.Request) {
	h.store.ClearAlerts()
	api.RespondNoContent(w)
}

func (h *ConsoleHandler) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.store.Alert(id); !ok {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	h.store.DismissAlert(id)
	api.RespondNoContent(w)
}

func (h *ConsoleHandler) handleMarkFalse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.store.Alert(id); !ok {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	h.store.MarkAlertAsFalse(id)
	alert, _ := h.store.Alert(id)
	api.RespondJSON(w, http.StatusOK, api.AlertToResponse(alert))
}

func (h *ConsoleHandler) handleAddNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req api.AddNoteRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	// Validate the trimmed note so a whitespace-only body cannot slip an
	// empty note past the length contract.
	req.Note = strings.TrimSpace(req.Note)
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}
	if _, ok := h.store.Alert(id); !ok {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}

	h.store.AddNoteToAlert(id, req.Note)
	alert, _ := h.store.Alert(id)
	api.RespondJSON(w, http.StatusOK, api.AlertToResponse(alert))
}

func (h *ConsoleHandler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := h.store.Alert(id); !ok {
		api.RespondError(w, http.StatusNotFound, "Alert not found")
		return
	}
	h.store.MarkAlertAsRead(id)
	api.RespondNoContent(w)
}

// ========== Settings ==========

func (h *ConsoleHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, api.SettingsToResponse(h.store.Settings()))
}

func (h *ConsoleHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateSettingsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	// Each present field goes through its store command so the backend
	// sync intents fire exactly as if the operator flipped each knob.
	if req.EmailNotifications != nil {
		h.store.SetEmailNotifications(*req.EmailNotifications)
	}
	if req.SMSNotifications != nil {
		h.store.SetSMSNotifications(*req.SMSNotifications)
	}
	if req.ClipCapture != nil {
		h.store.SetClipCapture(*req.ClipCapture)
	}
	if req.AudioAlerts != nil {
		h.store.SetAudioAlerts(*req.AudioAlerts)
	}
	if req.LoggingPaused != nil {
		h.store.SetLoggingPaused(*req.LoggingPaused)
	}
	if req.ClipLengthSeconds != nil {
		h.store.SetClipLength(*req.ClipLengthSeconds)
	}
	if req.CooldownSeconds != nil {
		h.store.SetCooldown(*req.CooldownSeconds)
	}

	api.RespondJSON(w, http.StatusOK, api.SettingsToResponse(h.store.Settings()))
}

// ========== Status and detection ==========

func (h *ConsoleHandler) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.RespondJSON(w, http.StatusOK, api.StatusResponse{
		Status:          string(h.store.Status()),
		DetectionActive: h.store.DetectionActive(),
		Connected:       h.emitter.Connected(),
		AlertCounts:     api.StatusCountsToMap(h.store.StatusCounts()),
	})
}

func (h *ConsoleHandler) handleStartDetection(w http.ResponseWriter, r *http.Request) {
	h.detection.SetEnabled(true)
	h.store.SetDetectionActive(true)
	api.RespondNoContent(w)
}

func (h *ConsoleHandler) handleStopDetection(w http.ResponseWriter, r *http.Request) {
	h.detection.SetEnabled(false)
	h.store.SetDetectionActive(false)
	api.RespondNoContent(w)
}

func (h *ConsoleHandler) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var req api.SetSourceRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errs := api.Validate(req); errs != nil {
		api.RespondValidationError(w, errs)
		return
	}

	h.emitter.Emit(events.EventSetSource, events.SetSource{Source: req.Source, CameraID: req.CameraID})
	api.RespondNoContent(w)
}

func (h *ConsoleHandler) handleCaptureSnapshot(w http.ResponseWriter, r *http.Request) {
	h.emitter.Emit(events.EventCaptureSnapshot, nil)
	api.RespondNoContent(w)
}

func (h *ConsoleHandler) handleLatestFrame(w http.ResponseWriter, r *http.Request) {
	frame := h.store.LatestFrame()
	if frame == "" {
		api.RespondError(w, http.StatusNotFound, "No frame received yet")
		return
	}
	api.RespondJSON(w, http.StatusOK, map[string]string{"image": frame})
}

// ========== Journal ==========

func (h *ConsoleHandler) handleJournal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		api.RespondError(w, http.StatusServiceUnavailable, "Journal is not configured")
		return
	}

	p := api.ParsePagination(r)
	action := r.URL.Query().Get("action")
	entries, err := h.journal.Entries(action, p.Offset(), p.PerPage)
	if err != nil {
		log.Printf("ConsoleHandler: Failed to read journal: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to read journal")
		return
	}
	total, err := h.journal.Count(action)
	if err != nil {
		log.Printf("ConsoleHandler: Failed to count journal entries: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to read journal")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data: api.JournalEntriesToResponses(entries),
		Pagination: api.PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	})
}
