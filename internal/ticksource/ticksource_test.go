package ticksource

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSourceTicksAndStops(t *testing.T) {
	var count int64
	s := Start(time.Millisecond, func() {
		atomic.AddInt64(&count, 1)
	})

	deadline := time.Now().Add(200 * time.Millisecond)
	for atomic.LoadInt64(&count) < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := atomic.LoadInt64(&count); got < 3 {
		t.Fatalf("got %d ticks in 200ms at a 1ms interval, want at least 3", got)
	}

	after := atomic.LoadInt64(&count)
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt64(&count) != after {
		t.Fatal("tick callback ran after Stop returned")
	}
}

func TestDefaultIntervalUsedWhenNonPositive(t *testing.T) {
	var count int64
	s := Start(0, func() { atomic.AddInt64(&count, 1) })
	defer s.Stop()
	time.Sleep(5 * time.Millisecond)
	// DefaultInterval is 10ms; a 5ms sleep should not have fired yet.
	if atomic.LoadInt64(&count) != 0 {
		t.Fatalf("tick fired before the default 10ms interval elapsed")
	}
}
