package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theftwatch/theftwatch/internal/alerts"
	"github.com/theftwatch/theftwatch/internal/api"
	"github.com/theftwatch/theftwatch/internal/events"
	"github.com/theftwatch/theftwatch/internal/journal"
	"github.com/theftwatch/theftwatch/internal/store"
)

type fakeEmitter struct {
	emitted   []string
	payloads  map[string]interface{}
	connected bool
}

func (f *fakeEmitter) Emit(event string, payload interface{}) {
	f.emitted = append(f.emitted, event)
	if f.payloads == nil {
		f.payloads = make(map[string]interface{})
	}
	f.payloads[event] = payload
}

func (f *fakeEmitter) Connected() bool { return f.connected }

type fakeDetection struct {
	enabled bool
}

func (f *fakeDetection) SetEnabled(enabled bool) { f.enabled = enabled }
func (f *fakeDetection) Enabled() bool           { return f.enabled }

type fakeJournal struct {
	entries []journal.Entry
	err     error
}

func (f *fakeJournal) filtered(action string) []journal.Entry {
	if action == "" {
		return f.entries
	}
	var matched []journal.Entry
	for _, e := range f.entries {
		if e.Action == action {
			matched = append(matched, e)
		}
	}
	return matched
}

func (f *fakeJournal) Entries(action string, offset, limit int) ([]journal.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	entries := f.filtered(action)
	if offset >= len(entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end], nil
}

func (f *fakeJournal) Count(action string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return int64(len(f.filtered(action))), nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type consoleFixture struct {
	handler   *ConsoleHandler
	store     *store.Store
	emitter   *fakeEmitter
	detection *fakeDetection
	mux       *http.ServeMux
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	emitter := &fakeEmitter{connected: true}
	detection := &fakeDetection{}
	s := store.New(emitter, nil, nil, nil, log.New(discard{}, "", 0))
	h := NewConsoleHandler(s, detection, emitter, &fakeJournal{})
	mux := http.NewServeMux()
	h.SetupRoutes(mux)
	return &consoleFixture{handler: h, store: s, emitter: emitter, detection: detection, mux: mux}
}

func (f *consoleFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func seedAlert(f *consoleFixture, id string) {
	f.store.AddAlert(alerts.Alert{
		ID:         id,
		Timestamp:  time.Now(),
		Type:       alerts.TypeWarning,
		Message:    "test",
		Source:     alerts.SourceWebcam,
		Confidence: 0.7,
		Status:     alerts.StatusNew,
	})
}

func TestListAlerts(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "1")
	seedAlert(f, "2")

	rec := f.do(t, http.MethodGet, "/api/alerts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.AlertListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(resp.Alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(resp.Alerts))
	}
	if resp.Alerts[0].ID != "2" {
		t.Errorf("first alert = %q, want newest first", resp.Alerts[0].ID)
	}
	if resp.UnreadCount != 2 {
		t.Errorf("UnreadCount = %d, want 2", resp.UnreadCount)
	}
}

func TestDismissAlert_HTTP(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "42")

	rec := f.do(t, http.MethodPost, "/api/alerts/42/dismiss", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, ok := f.store.Alert("42"); ok {
		t.Error("alert still present after dismiss")
	}
}

func TestDismissAlert_NotFound(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/api/alerts/nope/dismiss", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestMarkFalse_HTTP(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "5")

	rec := f.do(t, http.MethodPost, "/api/alerts/5/false-positive", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.AlertResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !resp.IsFalsePositive || resp.Status != "processed" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAddNote_HTTP(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "9")

	rec := f.do(t, http.MethodPost, "/api/alerts/9/note", api.AddNoteRequest{Note: "looked into it"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.AlertResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Notes != "looked into it" {
		t.Errorf("Notes = %q", resp.Notes)
	}
}

func TestAddNote_ValidationError(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "9")

	rec := f.do(t, http.MethodPost, "/api/alerts/9/note", api.AddNoteRequest{Note: ""})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestAddNote_WhitespaceOnlyRejected(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "9")

	rec := f.do(t, http.MethodPost, "/api/alerts/9/note", api.AddNoteRequest{Note: "   "})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	a, _ := f.store.Alert("9")
	if a.Notes != "" {
		t.Errorf("Notes = %q, want no note stored", a.Notes)
	}
}

func TestMarkRead_HTTP(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "3")

	rec := f.do(t, http.MethodPost, "/api/alerts/3/read", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	a, _ := f.store.Alert("3")
	if !a.Read {
		t.Error("alert not marked read")
	}
}

func TestClearAlerts_HTTP(t *testing.T) {
	f := newConsoleFixture(t)
	seedAlert(f, "1")

	rec := f.do(t, http.MethodDelete, "/api/alerts", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(f.store.Alerts()) != 0 {
		t.Error("alerts not cleared")
	}
}

func TestGetSettings_HTTP(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.SettingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if !resp.ClipCapture || resp.CooldownSeconds != 60 {
		t.Errorf("unexpected defaults: %+v", resp)
	}
}

func TestUpdateSettings_HTTP(t *testing.T) {
	f := newConsoleFixture(t)

	email := true
	cooldown := 30
	rec := f.do(t, http.MethodPut, "/api/settings", api.UpdateSettingsRequest{
		EmailNotifications: &email,
		CooldownSeconds:    &cooldown,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	got := f.store.Settings()
	if !got.EmailNotifications || got.CooldownSeconds != 30 {
		t.Errorf("settings not applied: %+v", got)
	}
	// Untouched fields keep their values.
	if !got.ClipCapture || got.ClipLengthSeconds != 6 {
		t.Errorf("untouched settings changed: %+v", got)
	}
}

func TestUpdateSettings_RangeValidation(t *testing.T) {
	f := newConsoleFixture(t)

	bad := -5.0
	rec := f.do(t, http.MethodPut, "/api/settings", api.UpdateSettingsRequest{ClipLengthSeconds: &bad})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestStatus_HTTP(t *testing.T) {
	f := newConsoleFixture(t)
	f.store.SetDetectionActive(true)

	rec := f.do(t, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Status != "online" || !resp.DetectionActive || !resp.Connected {
		t.Errorf("unexpected status: %+v", resp)
	}
}

func TestDetectionStartStop(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/api/detection/start", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("start status = %d, want 204", rec.Code)
	}
	if !f.detection.Enabled() || !f.store.DetectionActive() {
		t.Error("detection not enabled after start")
	}

	rec = f.do(t, http.MethodPost, "/api/detection/stop", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("stop status = %d, want 204", rec.Code)
	}
	if f.detection.Enabled() || f.store.DetectionActive() {
		t.Error("detection still enabled after stop")
	}
}

func TestSetSource_HTTP(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/api/source", api.SetSourceRequest{Source: "upload"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	found := false
	for _, e := range f.emitter.emitted {
		if e == "set_source" {
			found = true
		}
	}
	if !found {
		t.Errorf("set_source intent not emitted; got %v", f.emitter.emitted)
	}
}

func TestSetSource_ForwardsCameraID(t *testing.T) {
	f := newConsoleFixture(t)

	camera := 3
	rec := f.do(t, http.MethodPost, "/api/source", api.SetSourceRequest{Source: "webcam", CameraID: &camera})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	payload, ok := f.emitter.payloads["set_source"].(events.SetSource)
	if !ok {
		t.Fatalf("set_source payload type = %T, want events.SetSource", f.emitter.payloads["set_source"])
	}
	if payload.Source != "webcam" {
		t.Errorf("Source = %q, want webcam", payload.Source)
	}
	if payload.CameraID == nil || *payload.CameraID != 3 {
		t.Errorf("CameraID = %v, want 3", payload.CameraID)
	}
}

func TestSetSource_Invalid(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/api/source", api.SetSourceRequest{Source: "cctv"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestLatestFrame_HTTP(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/api/frame", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d before any frame, want 404", rec.Code)
	}

	f.store.SetLatestFrame("base64-jpeg-bytes")
	rec = f.do(t, http.MethodGet, "/api/frame", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp["image"] != "base64-jpeg-bytes" {
		t.Errorf("image = %q, want base64-jpeg-bytes", resp["image"])
	}
}

func TestJournal_HTTP(t *testing.T) {
	emitter := &fakeEmitter{}
	s := store.New(emitter, nil, nil, nil, log.New(discard{}, "", 0))
	j := &fakeJournal{entries: []journal.Entry{
		{ID: 3, Action: "alert_added"},
		{ID: 2, Action: "alert_dismissed"},
		{ID: 1, Action: "toggle_email"},
	}}
	h := NewConsoleHandler(s, &fakeDetection{}, emitter, j)
	mux := http.NewServeMux()
	h.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/journal?per_page=2", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data       []api.JournalEntryResponse `json:"data"`
		Pagination api.PaginationMeta         `json:"pagination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Errorf("got %d entries, want 2", len(resp.Data))
	}
	if resp.Pagination.Total != 3 || resp.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v", resp.Pagination)
	}
}

func TestJournal_HTTP_ActionFilter(t *testing.T) {
	emitter := &fakeEmitter{}
	s := store.New(emitter, nil, nil, nil, log.New(discard{}, "", 0))
	j := &fakeJournal{entries: []journal.Entry{
		{ID: 3, Action: "alert_added"},
		{ID: 2, Action: "alert_dismissed"},
		{ID: 1, Action: "alert_added"},
	}}
	h := NewConsoleHandler(s, &fakeDetection{}, emitter, j)
	mux := http.NewServeMux()
	h.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/journal?action=alert_added", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Data       []api.JournalEntryResponse `json:"data"`
		Pagination api.PaginationMeta         `json:"pagination"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("got %d entries, want 2 filtered", len(resp.Data))
	}
	for _, e := range resp.Data {
		if e.Action != "alert_added" {
			t.Errorf("unexpected action %q in filtered page", e.Action)
		}
	}
	if resp.Pagination.Total != 2 {
		t.Errorf("Total = %d, want the filtered count 2", resp.Pagination.Total)
	}
}

func TestJournal_Unconfigured(t *testing.T) {
	emitter := &fakeEmitter{}
	s := store.New(emitter, nil, nil, nil, log.New(discard{}, "", 0))
	h := NewConsoleHandler(s, &fakeDetection{}, emitter, nil)
	mux := http.NewServeMux()
	h.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/journal", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
