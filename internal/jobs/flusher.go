package jobs

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/changes"
	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/notify"
)

// Flusher turns a debounced burst of change events into outbound effects:
// a change-summary e-mail to the record's watchers and a "change"
// condition dispatch through the engine.
type Flusher struct {
	db     *gorm.DB
	engine *notify.Engine
	mailer notify.Mailer
}

// NewFlusher creates a flusher. mailer may be nil to disable summary mail.
func NewFlusher(db *gorm.DB, engine *notify.Engine, mailer notify.Mailer) *Flusher {
	return &Flusher{db: db, engine: engine, mailer: mailer}
}

// FlushTicket handles one flushed ticket entry
func (f *Flusher) FlushTicket(entry *changes.Entry) {
	ticket, err := database.GetTicketByUUID(f.db, entry.ID)
	if err != nil {
		log.Printf("Flusher: ticket %s vanished before flush: %v", entry.ID, err)
		return
	}

	pruned := changes.Prune(entry.Changes)
	if len(pruned) == 0 {
		return
	}

	f.mailSummary(ticket.Subject, ticket.Notify, ticket.Cc, pruned)

	f.engine.Dispatch(&notify.Context{
		Condition:  notify.ConditionChange,
		RecordKind: notify.RecordKindTicket,
		RecordID:   ticket.UUID,
		Title:      ticket.Subject,
		Message:    summaryLine(pruned),
		Server:     ticket.Server,
		Data:       map[string]interface{}{"changes": pruned},
	}, nil, nil)
}

// FlushAlert handles one flushed alert entry
func (f *Flusher) FlushAlert(entry *changes.Entry) {
	alert, err := database.GetAlertByUUID(f.db, entry.ID)
	if err != nil {
		log.Printf("Flusher: alert %s vanished before flush: %v", entry.ID, err)
		return
	}

	pruned := changes.Prune(entry.Changes)
	if len(pruned) == 0 {
		return
	}

	f.engine.Dispatch(&notify.Context{
		Condition:  notify.ConditionChange,
		RecordKind: notify.RecordKindAlert,
		RecordID:   alert.UUID,
		Title:      alert.Name,
		Message:    summaryLine(pruned),
		Server:     alert.Server,
		Groups:     alert.Groups,
		Data:       map[string]interface{}{"changes": pruned},
	}, nil, nil)
}

// mailSummary sends the change digest to the ticket's watchers
func (f *Flusher) mailSummary(subject string, notifyUsers, cc []string, evs []changes.Event) {
	if f.mailer == nil {
		return
	}

	recipients := cc
	if len(notifyUsers) > 0 {
		users, err := database.GetUsersByUsernames(f.db, notifyUsers)
		if err != nil {
			log.Printf("Flusher: failed to resolve watchers: %v", err)
		}
		for _, u := range users {
			if u.Email != "" {
				recipients = append(recipients, u.Email)
			}
		}
	}
	if len(recipients) == 0 {
		return
	}

	body := formatSummary(subject, evs)
	if _, err := f.mailer.Send(recipients, fmt.Sprintf("[Fleetwatch] Updated: %s", subject), body); err != nil {
		log.Printf("Flusher: summary mail failed: %v", err)
		return
	}
	log.Printf("Flusher: sent change summary to %d recipient(s)", len(recipients))
}

// summaryLine renders a one-line digest for push and dispatch messages
func summaryLine(evs []changes.Event) string {
	var keys []string
	comments := 0
	for _, ev := range evs {
		switch ev.Type {
		case changes.EventTypeComment:
			comments++
		default:
			if ev.Key != "" {
				keys = append(keys, ev.Key)
			}
		}
	}

	var parts []string
	if len(keys) > 0 {
		parts = append(parts, "changed: "+strings.Join(keys, ", "))
	}
	if comments == 1 {
		parts = append(parts, "1 new comment")
	} else if comments > 1 {
		parts = append(parts, fmt.Sprintf("%d new comments", comments))
	}
	return strings.Join(parts, "; ")
}

// formatSummary renders the digest body, one line per surviving event
func formatSummary(subject string, evs []changes.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following updates were made to \"%s\":\n\n", subject)
	for _, ev := range evs {
		switch ev.Type {
		case changes.EventTypeComment:
			fmt.Fprintf(&b, "- %s commented:\n", ev.Username)
			if s, ok := ev.Value.(string); ok {
				for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
					fmt.Fprintf(&b, "  > %s\n", line)
				}
			}
		default:
			if ev.Value == nil {
				fmt.Fprintf(&b, "- %s updated %s\n", ev.Username, ev.Key)
			} else {
				fmt.Fprintf(&b, "- %s set %s to %v\n", ev.Username, ev.Key, ev.Value)
			}
		}
	}
	return b.String()
}
