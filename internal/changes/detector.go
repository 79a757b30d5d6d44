package changes

import (
	"sort"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// StatSink receives the closed-ticket counter side effect
type StatSink interface {
	IncrDaily(key string)
}

// DailyStatTicketsClosed is the counter bumped when a ticket reaches a
// terminal status
const DailyStatTicketsClosed = "tickets_closed"

// Detector diffs old and new record snapshots into change events
type Detector struct {
	stats StatSink
}

// NewDetector creates a detector; stats may be nil
func NewDetector(stats StatSink) *Detector {
	return &Detector{stats: stats}
}

// DetectTicket compares two ticket snapshots and returns the ordered list
// of change events. A nil old snapshot is treated as a zero-value record,
// so every set field on a freshly created ticket counts as a change.
// Drafts never generate change events. A transition into a terminal
// status additionally bumps the daily closed counter.
func (d *Detector) DetectTicket(oldT, newT *database.Ticket, username string) []Event {
	if newT == nil {
		return nil
	}
	if oldT == nil {
		oldT = &database.Ticket{}
	}
	if newT.Status == database.TicketStatusDraft {
		return nil
	}

	date := newT.Modified
	var events []Event

	change := func(key string, value interface{}) {
		events = append(events, Event{
			Type:     EventTypeChange,
			Key:      key,
			Value:    value,
			Username: username,
			Date:     date,
		})
	}

	if newT.Subject != oldT.Subject {
		change("subject", newT.Subject)
	}
	if newT.Body != oldT.Body {
		// the body is too large to echo into the event
		change("body", nil)
	}
	if newT.Type != oldT.Type {
		change("type", newT.Type)
	}
	if newT.Category != oldT.Category {
		change("category", newT.Category)
	}
	if newT.Server != oldT.Server {
		change("server", newT.Server)
	}
	if newT.Status != oldT.Status {
		change("status", string(newT.Status))
		if newT.Status.IsTerminal() && !oldT.Status.IsTerminal() && d.stats != nil {
			d.stats.IncrDaily(DailyStatTicketsClosed)
		}
	}
	if newT.Assignee != oldT.Assignee {
		change("assignee", newT.Assignee)
	}
	if newT.Due != oldT.Due {
		change("due", newT.Due)
	}
	if !sameSet(oldT.Cc, newT.Cc) {
		change("cc", []string(newT.Cc))
	}
	if !sameSet(oldT.Notify, newT.Notify) {
		change("notify", []string(newT.Notify))
	}
	if !sameSet(oldT.Tags, newT.Tags) {
		change("tags", []string(newT.Tags))
	}

	return events
}

// DetectAlert compares two alert snapshots. Alerts have a smaller tracked
// field set than tickets.
func (d *Detector) DetectAlert(oldA, newA *database.Alert, username string) []Event {
	if newA == nil {
		return nil
	}
	if oldA == nil {
		oldA = &database.Alert{}
	}

	date := newA.Modified
	var events []Event

	change := func(key string, value interface{}) {
		events = append(events, Event{
			Type:     EventTypeChange,
			Key:      key,
			Value:    value,
			Username: username,
			Date:     date,
		})
	}

	if newA.Name != oldA.Name {
		change("name", newA.Name)
	}
	if newA.Severity != oldA.Severity {
		change("severity", newA.Severity)
	}
	if newA.Server != oldA.Server {
		change("server", newA.Server)
	}
	if newA.Message != oldA.Message {
		change("message", newA.Message)
	}
	if newA.Active != oldA.Active {
		change("active", newA.Active)
	}

	return events
}

// sameSet compares two string lists as unordered sets
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
