package jobs

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingTicker struct {
	ticks int64
}

func (c *countingTicker) Tick(now int64) {
	atomic.AddInt64(&c.ticks, 1)
}

func TestScheduler_TicksUntilStopped(t *testing.T) {
	engine := &countingTicker{}
	s := NewScheduler(engine, 10*time.Millisecond)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		s.Start(stop)
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt64(&engine.ticks) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt64(&engine.ticks) < 2 {
		t.Fatal("scheduler never ticked")
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestNewScheduler_DefaultsInterval(t *testing.T) {
	s := NewScheduler(&countingTicker{}, 0)
	if s.interval != time.Second {
		t.Errorf("interval = %s, want 1s default", s.interval)
	}
}
