package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/changes"
	"github.com/fleetwatch/fleetwatch/internal/database"
)

// Handler executes one action type. Handle must always complete: it sets
// the action's code/description/details and returns. The dispatcher
// enforces Timeout as a hard deadline around every call.
type Handler interface {
	Handle(ctx context.Context, a *Action, dc *Context)
	Timeout() time.Duration
}

// Engine is the notification dispatch and change-debounce engine. Its
// entry points (Dispatch, RecordTicketChange, RecordAlertChange, Tick)
// never return errors upward; all failure is logged and recorded in the
// persisted action history.
type Engine struct {
	db       *gorm.DB
	handlers map[string]Handler
	persist  *Persister
	detector *changes.Detector

	universal       []*Action
	debounceSeconds int

	// One debounce buffer per record kind so ids never collide
	ticketBuf *changes.Buffer
	alertBuf  *changes.Buffer
}

// NewEngine creates an engine. Flush pipelines are wired separately via
// SetTicketFlush/SetAlertFlush before the scheduler starts.
func NewEngine(db *gorm.DB, detector *changes.Detector, universal []*Action, debounceSeconds int) *Engine {
	return &Engine{
		db:              db,
		handlers:        make(map[string]Handler),
		persist:         NewPersister(db),
		detector:        detector,
		universal:       universal,
		debounceSeconds: debounceSeconds,
		ticketBuf:       changes.NewBuffer(nil),
		alertBuf:        changes.NewBuffer(nil),
	}
}

// RegisterHandler registers the handler for an action type
func (e *Engine) RegisterHandler(actionType string, h Handler) {
	e.handlers[actionType] = h
}

// SetTicketFlush wires the flush pipeline for debounced ticket changes
func (e *Engine) SetTicketFlush(f changes.FlushFunc) {
	e.ticketBuf.SetFlush(f)
}

// SetAlertFlush wires the flush pipeline for debounced alert changes
func (e *Engine) SetAlertFlush(f changes.FlushFunc) {
	e.alertBuf.SetFlush(f)
}

// Dispatch resolves and runs the actions for a condition transition.
// Fire-and-forget: it spawns the pipeline and returns immediately.
func (e *Engine) Dispatch(dc *Context, recordActions []*Action, scopeActions [][]*Action) {
	go e.run(dc, recordActions, scopeActions)
}

// run is the dispatch pipeline: resolve, fan out, join, persist
func (e *Engine) run(dc *Context, recordActions []*Action, scopeActions [][]*Action) {
	resolved := Resolve(dc.Condition, recordActions, scopeActions, e.universal)
	if len(resolved) == 0 {
		log.Printf("Dispatcher: no actions for condition '%s' on %s %s", dc.Condition, dc.RecordKind, dc.RecordID)
		return
	}

	results := make([]*Action, 0, len(resolved))
	var wg sync.WaitGroup

	for _, a := range resolved {
		h, ok := e.handlers[a.Type]
		if !ok {
			// unknown or reserved type: zero effect, not an error
			continue
		}
		results = append(results, a)

		wg.Add(1)
		go func(a *Action, h Handler) {
			defer wg.Done()
			e.runOne(a, h, dc)
		}(a, h)
	}

	wg.Wait()

	if len(results) == 0 {
		log.Printf("Dispatcher: no runnable actions for condition '%s' on %s %s", dc.Condition, dc.RecordKind, dc.RecordID)
		return
	}

	if err := e.persist.Append(dc.RecordKind, dc.RecordID, results); err != nil {
		log.Printf("Dispatcher: failed to persist %d action results for %s %s: %v",
			len(results), dc.RecordKind, dc.RecordID, err)
	}
}

// runOne executes a single action under the handler's hard deadline.
// The handler works on a private copy; on timeout the copy is discarded
// and the action is failed, so a stalled handler cannot stall the batch
// or race the result.
func (e *Engine) runOne(a *Action, h Handler, dc *Context) {
	a.Date = time.Now().Unix()
	start := time.Now()

	timeout := h.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cp := a.Clone()
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Handle(ctx, cp, dc)
	}()

	select {
	case <-done:
		*a = *cp
	case <-ctx.Done():
		a.Fail(CodeTimeout, fmt.Sprintf("action timed out after %s", timeout))
	}

	a.ElapsedMs = time.Since(start).Milliseconds()

	if a.OK() {
		log.Printf("Dispatcher: action %s ok in %dms (%s %s): %s",
			a.Type, a.ElapsedMs, dc.RecordKind, dc.RecordID, a.Description)
	} else {
		log.Printf("Dispatcher: ERROR action %s failed in %dms (%s %s): code=%s %s",
			a.Type, a.ElapsedMs, dc.RecordKind, dc.RecordID, a.Code, a.Description)
	}
}

// RecordTicketChange diffs two ticket snapshots and feeds the result into
// the ticket debounce buffer. Called by the record-mutation layer right
// after a successful write.
func (e *Engine) RecordTicketChange(oldT, newT *database.Ticket, username string) {
	evs := e.detector.DetectTicket(oldT, newT, username)
	e.ticketBuf.Record(newT.UUID, evs)
}

// RecordAlertChange diffs two alert snapshots into the alert buffer
func (e *Engine) RecordAlertChange(oldA, newA *database.Alert, username string) {
	evs := e.detector.DetectAlert(oldA, newA, username)
	e.alertBuf.Record(newA.UUID, evs)
}

// RecordTicketComment buffers a comment event for a ticket
func (e *Engine) RecordTicketComment(ticketUUID, text, username string, date int64) {
	e.ticketBuf.Record(ticketUUID, []changes.Event{{
		Type:     changes.EventTypeComment,
		Value:    text,
		Username: username,
		Date:     date,
	}})
}

// Tick drives debounce flushing; the scheduler calls it once per second
func (e *Engine) Tick(now int64) {
	e.ticketBuf.Tick(now, e.debounceSeconds)
	e.alertBuf.Tick(now, e.debounceSeconds)
}

// DB exposes the engine's database handle to handlers constructed around it
func (e *Engine) DB() *gorm.DB {
	return e.db
}
