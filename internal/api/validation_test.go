package api

import (
	"strings"
	"testing"
)

func TestValidate_CreateTicketValid(t *testing.T) {
	req := CreateTicketRequest{
		Subject: "disk almost full",
		Status:  "open",
		Server:  "db01",
	}
	errs := Validate(req)
	if errs != nil {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_CreateTicketMissingSubject(t *testing.T) {
	req := CreateTicketRequest{Status: "open"}
	errs := Validate(req)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["subject"] != "is required" {
		t.Errorf("subject error = %q, want %q", errs["subject"], "is required")
	}
}

func TestValidate_CreateTicketBadStatus(t *testing.T) {
	req := CreateTicketRequest{Subject: "x", Status: "reopened"}
	errs := Validate(req)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["status"] != "must be one of: draft open in_progress closed" {
		t.Errorf("status error = %q", errs["status"])
	}
}

func TestValidate_CreateTicketSubjectTooLong(t *testing.T) {
	req := CreateTicketRequest{Subject: strings.Repeat("a", 257)}
	errs := Validate(req)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["subject"] != "must be at most 256 characters" {
		t.Errorf("subject error = %q", errs["subject"])
	}
}

func TestValidate_UpdateTicketNilFieldsSkipped(t *testing.T) {
	errs := Validate(UpdateTicketRequest{})
	if errs != nil {
		t.Errorf("empty update must validate, got %v", errs)
	}
}

func TestValidate_UpdateTicketBadStatusPointer(t *testing.T) {
	bad := "reopened"
	errs := Validate(UpdateTicketRequest{Status: &bad})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if _, ok := errs["status"]; !ok {
		t.Errorf("errs = %v, want status entry", errs)
	}
}

func TestValidate_IngestAlertActionCondition(t *testing.T) {
	req := IngestAlertRequest{
		Name: "cpu high",
		Actions: []ActionRequest{
			{Type: "web_hook", Condition: "on_fire"},
		},
	}
	errs := Validate(req)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	found := false
	for field, msg := range errs {
		if strings.Contains(field, "condition") && strings.Contains(msg, "alert_new alert_cleared change") {
			found = true
		}
	}
	if !found {
		t.Errorf("errs = %v, want nested condition error", errs)
	}
}

func TestValidate_CommentRequiresText(t *testing.T) {
	errs := Validate(CommentRequest{})
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["text"] != "is required" {
		t.Errorf("text error = %q", errs["text"])
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Subject", "subject"},
		{"ChannelID", "channel_id"},
		{"EventID", "event_id"},
		{"MaxPerDay", "max_per_day"},
		{"URL", "url"},
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
