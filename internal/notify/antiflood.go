package notify

import (
	"sync"
	"time"
)

// Antiflood caps channel invocations per calendar day. Counters live in
// memory only; a restart resets the day's counts.
type Antiflood struct {
	mu     sync.Mutex
	day    string
	counts map[string]int
}

// NewAntiflood creates an empty antiflood counter
func NewAntiflood() *Antiflood {
	return &Antiflood{counts: make(map[string]int)}
}

// Allow reports whether the channel may fire today. When allowed the
// counter is incremented; a declined call leaves it untouched. maxPerDay
// of 0 or less means unlimited (but still counted).
func (f *Antiflood) Allow(channelID string, maxPerDay int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if f.day != today {
		f.day = today
		f.counts = make(map[string]int)
	}

	if maxPerDay > 0 && f.counts[channelID] >= maxPerDay {
		return false
	}
	f.counts[channelID]++
	return true
}

// Count returns today's invocation count for a channel
func (f *Antiflood) Count(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if f.day != today {
		return 0
	}
	return f.counts[channelID]
}
