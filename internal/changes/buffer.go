package changes

import (
	"sync"
	"time"
)

// Entry accumulates change events for one record id between flushes.
// Modified is the epoch second of the most recent append.
type Entry struct {
	ID       string
	Modified int64
	Changes  []Event
}

// FlushFunc receives an entry that has gone quiet. It runs on its own
// goroutine; multiple flushes may be in flight at once.
type FlushFunc func(entry *Entry)

// Buffer debounces bursts of change events per record id. At most one
// entry exists per id at any instant; a change arriving after a flush has
// started begins a fresh entry.
type Buffer struct {
	mu      sync.Mutex
	entries map[string]*Entry
	flush   FlushFunc
}

// NewBuffer creates an empty buffer; flush may be set later via SetFlush
func NewBuffer(flush FlushFunc) *Buffer {
	return &Buffer{
		entries: make(map[string]*Entry),
		flush:   flush,
	}
}

// SetFlush replaces the flush pipeline. Intended for wiring at startup,
// before the scheduler starts ticking.
func (b *Buffer) SetFlush(flush FlushFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flush = flush
}

// Record appends changes to the entry for id, creating it if needed.
// Empty change lists are a no-op.
func (b *Buffer) Record(id string, evs []Event) {
	if len(evs) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[id]
	if !ok {
		e = &Entry{ID: id}
		b.entries[id] = e
	}
	e.Modified = time.Now().Unix()
	e.Changes = append(e.Changes, evs...)
}

// Tick scans all entries and flushes those quiet for at least
// debounceSeconds. Entries are removed from the map before their flush
// goroutine starts, so changes arriving mid-flush begin a new entry.
// Tick itself never blocks on flush completion.
func (b *Buffer) Tick(now int64, debounceSeconds int) {
	var due []*Entry

	b.mu.Lock()
	for id, e := range b.entries {
		if now-e.Modified >= int64(debounceSeconds) {
			delete(b.entries, id)
			due = append(due, e)
		}
	}
	flush := b.flush
	b.mu.Unlock()

	if flush == nil {
		return
	}
	for _, e := range due {
		go flush(e)
	}
}

// Len returns the number of pending entries
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
