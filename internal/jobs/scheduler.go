package jobs

import (
	"log"
	"time"
)

// Ticker is the clock-driven side of the engine
type Ticker interface {
	Tick(now int64)
}

// Scheduler drives the debounce buffers by ticking the engine on a fixed
// interval.
type Scheduler struct {
	engine   Ticker
	interval time.Duration
}

// NewScheduler creates a scheduler for the engine
func NewScheduler(engine Ticker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{engine: engine, interval: interval}
}

// Start runs the tick loop until stop is closed
func (s *Scheduler) Start(stop <-chan struct{}) {
	log.Printf("Scheduler: started with interval %s", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.engine.Tick(time.Now().Unix())
		case <-stop:
			log.Println("Scheduler: stopped")
			return
		}
	}
}
