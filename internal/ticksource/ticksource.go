// Package ticksource drives periodic aging callbacks for a replacement
// policy. It is the Go translation of the original design's periodic
// signal: a goroutine on a fixed cadence instead of an OS timer signal,
// coordinated through golang.org/x/sys/unix's sibling package
// golang.org/x/sync/errgroup for lifecycle management.
package ticksource

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the tick cadence used when a Source is started
// without an explicit override.
const DefaultInterval = 10 * time.Millisecond

// Source periodically invokes a callback until Stop is called.
type Source struct {
	ticker *time.Ticker
	cancel context.CancelFunc
	group  *errgroup.Group
}

// Start launches the tick goroutine immediately. onTick is called from a
// single dedicated goroutine, never concurrently with itself; callers
// that need to serialize it against other work (the pager serializes it
// against fault handling) must do so inside onTick.
func Start(interval time.Duration, onTick func()) *Source {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	s := &Source{
		ticker: time.NewTicker(interval),
		cancel: cancel,
		group:  g,
	}

	g.Go(func() error {
		defer s.ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-s.ticker.C:
				onTick()
			}
		}
	})

	return s
}

// Stop cancels the tick goroutine and waits for it to exit. Safe to call
// once; a second call returns the same cached result.
func (s *Source) Stop() error {
	s.cancel()
	return s.group.Wait()
}
