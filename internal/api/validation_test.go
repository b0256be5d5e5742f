package api

import (
	"strings"
	"testing"
)

func TestValidate_AddNoteValid(t *testing.T) {
	errs := Validate(AddNoteRequest{Note: "checked camera feed"})
	if errs != nil {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_AddNoteEmpty(t *testing.T) {
	errs := Validate(AddNoteRequest{Note: ""})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["note"] != "is required" {
		t.Errorf("note error = %q, want %q", errs["note"], "is required")
	}
}

func TestValidate_AddNoteTooLong(t *testing.T) {
	errs := Validate(AddNoteRequest{Note: strings.Repeat("a", 501)})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["note"] != "must be at most 500 characters" {
		t.Errorf("note error = %q, want %q", errs["note"], "must be at most 500 characters")
	}
}

func TestValidate_AddNoteBoundary(t *testing.T) {
	if errs := Validate(AddNoteRequest{Note: strings.Repeat("a", 500)}); errs != nil {
		t.Errorf("500-character note must be valid, got %v", errs)
	}
	if errs := Validate(AddNoteRequest{Note: "a"}); errs != nil {
		t.Errorf("1-character note must be valid, got %v", errs)
	}
}

func TestValidate_SetSource(t *testing.T) {
	if errs := Validate(SetSourceRequest{Source: "webcam"}); errs != nil {
		t.Errorf("expected no errors for webcam, got %v", errs)
	}
	if errs := Validate(SetSourceRequest{Source: "upload"}); errs != nil {
		t.Errorf("expected no errors for upload, got %v", errs)
	}

	errs := Validate(SetSourceRequest{Source: "cctv"})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["source"] != "must be one of: webcam upload" {
		t.Errorf("source error = %q", errs["source"])
	}
}

func TestValidate_UpdateSettingsRanges(t *testing.T) {
	bad := -1.0
	errs := Validate(UpdateSettingsRequest{ClipLengthSeconds: &bad})
	if errs == nil {
		t.Fatal("expected validation errors for negative clip length")
	}

	ok := 10.0
	if errs := Validate(UpdateSettingsRequest{ClipLengthSeconds: &ok}); errs != nil {
		t.Errorf("expected no errors, got %v", errs)
	}

	cooldown := 5000
	if errs := Validate(UpdateSettingsRequest{CooldownSeconds: &cooldown}); errs == nil {
		t.Error("expected validation errors for cooldown above range")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Note", "note"},
		{"CooldownSeconds", "cooldown_seconds"},
		{"simple", "simple"},
		{"", ""},
	}

	for _, tt := range tests {
		got := toSnakeCase(tt.input)
		if got != tt.expected {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
