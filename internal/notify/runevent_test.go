package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

func TestRunEventHandler_LaunchesJob(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&database.EventDef{
		EventID: "restart-web",
		Title:   "Restart web service",
		Enabled: true,
		Params:  database.JSONB{"service": "nginx"},
	})

	h := NewRunEventHandler(db)
	a := &Action{Type: TypeRunEvent, Enabled: true, Condition: ConditionAlertNew, EventID: "restart-web"}
	dc := &Context{Condition: ConditionAlertNew, RecordKind: RecordKindAlert, RecordID: "al-1"}
	h.Handle(context.Background(), a, dc)

	if !a.OK() {
		t.Fatalf("unexpected failure: %s", a.Description)
	}

	var job database.Job
	if err := db.First(&job).Error; err != nil {
		t.Fatalf("no job created: %v", err)
	}
	if job.EventID != "restart-web" {
		t.Errorf("job event id = %q", job.EventID)
	}
	if job.Source != ConditionAlertNew {
		t.Errorf("job source = %q, want the originating condition", job.Source)
	}
	if job.Status != database.JobStatusPending {
		t.Errorf("job status = %q, want pending", job.Status)
	}
	if a.Loc != "/api/jobs/"+job.UUID {
		t.Errorf("loc = %q", a.Loc)
	}
	if !strings.Contains(a.Description, "Restart web service") {
		t.Errorf("description = %q", a.Description)
	}
}

func TestRunEventHandler_MissingEvent(t *testing.T) {
	db := setupTestDB(t)
	h := NewRunEventHandler(db)

	a := &Action{Type: TypeRunEvent, Enabled: true, Condition: ConditionAlertNew, EventID: "nope"}
	h.Handle(context.Background(), a, &Context{Condition: ConditionAlertNew})

	if a.Code != CodeEventNotFound {
		t.Errorf("code = %q, want %q", a.Code, CodeEventNotFound)
	}

	var count int64
	db.Model(&database.Job{}).Count(&count)
	if count != 0 {
		t.Errorf("no job should exist, got %d", count)
	}
}

func TestRunEventHandler_DisabledEvent(t *testing.T) {
	db := setupTestDB(t)
	db.Create(&database.EventDef{EventID: "restart-web", Title: "Restart", Enabled: false})

	h := NewRunEventHandler(db)
	a := &Action{Type: TypeRunEvent, Enabled: true, Condition: ConditionAlertNew, EventID: "restart-web"}
	h.Handle(context.Background(), a, &Context{Condition: ConditionAlertNew})

	if a.Code != CodeEventNotFound {
		t.Errorf("code = %q, want %q", a.Code, CodeEventNotFound)
	}
}

func TestSnapshotHandler_SavesData(t *testing.T) {
	db := setupTestDB(t)
	h := NewSnapshotHandler(db)

	a := &Action{Type: TypeSnapshot, Enabled: true, Condition: ConditionAlertNew}
	dc := &Context{
		Condition:  ConditionAlertNew,
		RecordKind: RecordKindAlert,
		RecordID:   "al-1",
		Server:     "web-1",
		Data:       map[string]interface{}{"cpu": 97.5},
	}
	h.Handle(context.Background(), a, dc)

	if !a.OK() {
		t.Fatalf("unexpected failure: %s", a.Description)
	}

	var snap database.Snapshot
	if err := db.First(&snap).Error; err != nil {
		t.Fatalf("no snapshot created: %v", err)
	}
	if snap.Server != "web-1" {
		t.Errorf("server = %q", snap.Server)
	}
	if a.Loc != "/api/snapshots/"+snap.UUID {
		t.Errorf("loc = %q", a.Loc)
	}
}

func TestSnapshotHandler_RequiresServer(t *testing.T) {
	db := setupTestDB(t)
	h := NewSnapshotHandler(db)

	a := &Action{Type: TypeSnapshot, Enabled: true, Condition: ConditionAlertNew}
	h.Handle(context.Background(), a, &Context{Condition: ConditionAlertNew})

	if a.Code != CodeSnapshotFailed {
		t.Errorf("code = %q, want %q", a.Code, CodeSnapshotFailed)
	}
}
