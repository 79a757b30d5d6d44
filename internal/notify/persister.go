package notify

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// Persister appends aggregated action results onto a record's durable
// history. Persistence is best effort: a failure is logged by the caller
// and never retried, since every result was already logged individually.
type Persister struct {
	db *gorm.DB
}

// NewPersister creates a persister bound to db
func NewPersister(db *gorm.DB) *Persister {
	return &Persister{db: db}
}

// Append marshals the results and appends them (never replacing) to the
// record's actions history via the store's retrying read-modify-write.
func (p *Persister) Append(kind RecordKind, uuid string, results []*Action) error {
	raws := make([]json.RawMessage, 0, len(results))
	for _, a := range results {
		raw, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("failed to marshal action result: %w", err)
		}
		raws = append(raws, raw)
	}

	switch kind {
	case RecordKindTicket:
		return database.UpdateTicket(p.db, uuid, func(t *database.Ticket) error {
			t.Actions = append(t.Actions, raws...)
			return nil
		})
	case RecordKindAlert:
		return database.UpdateAlert(p.db, uuid, func(a *database.Alert) error {
			a.Actions = append(a.Actions, raws...)
			return nil
		})
	default:
		return fmt.Errorf("unknown record kind: %s", kind)
	}
}
