package sourcegen

import (
	"context"
	"sync"
	"time"
)

// Gate enforces a shared sliding-window call budget: at most limit
// calls within any trailing window. All workers block on the same
// gate, so the budget is global, not per-worker.
type Gate struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewGate builds a gate allowing limit calls per trailing minute.
func NewGate(limit int) *Gate {
	return &Gate{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		},
	}
}

// Wait blocks until a call slot is free, then claims it. Claiming and
// checking happen under one lock acquisition so concurrent workers
// cannot overshoot the budget.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		now := g.now()
		g.expire(now)
		if len(g.stamps) < g.limit {
			g.stamps = append(g.stamps, now)
			g.mu.Unlock()
			return nil
		}
		// Oldest call ages out of the window first.
		wait := g.window - now.Sub(g.stamps[0]) + 100*time.Millisecond
		g.mu.Unlock()

		if err := g.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// expire drops timestamps older than the window. Caller holds mu.
func (g *Gate) expire(now time.Time) {
	cut := 0
	for cut < len(g.stamps) && now.Sub(g.stamps[cut]) >= g.window {
		cut++
	}
	g.stamps = g.stamps[cut:]
}

// InFlight reports how many slots the trailing window currently holds.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expire(g.now())
	return len(g.stamps)
}
