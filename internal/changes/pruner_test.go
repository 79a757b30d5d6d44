package changes

import (
	"testing"
)

func TestPrune_CollapsesSameFieldInSameMinute(t *testing.T) {
	evs := []Event{
		{Type: EventTypeChange, Key: "subject", Value: "a", Date: 100},
		{Type: EventTypeChange, Key: "subject", Value: "b", Date: 130},
		{Type: EventTypeChange, Key: "status", Value: "open", Date: 140},
	}

	out := Prune(evs)

	if len(out) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(out))
	}
	if out[0].Key != "subject" || out[0].Value != "b" {
		t.Errorf("expected latest subject change to survive, got %+v", out[0])
	}
	if out[1].Key != "status" {
		t.Errorf("expected status change to survive, got %+v", out[1])
	}
}

func TestPrune_KeepsDifferentBuckets(t *testing.T) {
	evs := []Event{
		{Type: EventTypeChange, Key: "subject", Value: "a", Date: 20},
		{Type: EventTypeChange, Key: "subject", Value: "b", Date: 100},
	}

	out := Prune(evs)
	if len(out) != 2 {
		t.Fatalf("expected both bucket occupants to survive, got %d", len(out))
	}
}

func TestPrune_CollapsesAcrossMinuteBoundary(t *testing.T) {
	// 59 and 61 both round to the same bucket even though integer
	// division would split them at the minute boundary
	evs := []Event{
		{Type: EventTypeChange, Key: "subject", Value: "a", Date: 59},
		{Type: EventTypeChange, Key: "subject", Value: "b", Date: 61},
	}

	out := Prune(evs)
	if len(out) != 1 {
		t.Fatalf("expected 1 survivor, got %d: %+v", len(out), out)
	}
	if out[0].Value != "b" {
		t.Errorf("expected latest occurrence to survive, got %+v", out[0])
	}
}

func TestPrune_NeverPrunesKeylessEvents(t *testing.T) {
	evs := []Event{
		{Type: EventTypeComment, Value: "first", Date: 100},
		{Type: EventTypeComment, Value: "second", Date: 110},
		{Type: EventTypeComment, Value: "third", Date: 120},
	}

	out := Prune(evs)
	if len(out) != 3 {
		t.Fatalf("expected all comments to survive, got %d", len(out))
	}
	if out[0].Value != "first" || out[2].Value != "third" {
		t.Errorf("comment order not preserved: %+v", out)
	}
}

func TestPrune_PreservesSurvivorOrder(t *testing.T) {
	evs := []Event{
		{Type: EventTypeChange, Key: "status", Value: "open", Date: 100},
		{Type: EventTypeComment, Value: "note", Date: 105},
		{Type: EventTypeChange, Key: "status", Value: "closed", Date: 110},
		{Type: EventTypeChange, Key: "assignee", Value: "bob", Date: 115},
	}

	out := Prune(evs)
	if len(out) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(out))
	}
	if out[0].Type != EventTypeComment {
		t.Errorf("expected comment first, got %+v", out[0])
	}
	if out[1].Key != "status" || out[1].Value != "closed" {
		t.Errorf("expected latest status second, got %+v", out[1])
	}
	if out[2].Key != "assignee" {
		t.Errorf("expected assignee last, got %+v", out[2])
	}
}

func TestPrune_Idempotent(t *testing.T) {
	evs := []Event{
		{Type: EventTypeChange, Key: "subject", Value: "a", Date: 100},
		{Type: EventTypeChange, Key: "subject", Value: "b", Date: 130},
		{Type: EventTypeComment, Value: "note", Date: 140},
	}

	once := Prune(evs)
	twice := Prune(once)

	if len(once) != len(twice) {
		t.Fatalf("pruning is not idempotent: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("event %d changed on second prune: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestPrune_Empty(t *testing.T) {
	if out := Prune(nil); len(out) != 0 {
		t.Errorf("expected empty result, got %v", out)
	}
}
