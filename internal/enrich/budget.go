package enrich

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is the shared pacing authority for external API calls. Exactly
// one instance is injected into the enricher; workers never carry private
// budgets, so the aggregate call rate cannot exceed the configured cap.
type Limiter interface {
	// Acquire blocks until a call slot is available or ctx is done.
	Acquire(ctx context.Context) error
}

// Budget enforces a hard cap of calls per rolling window using recorded
// call timestamps, with an inner token-bucket pacer that spreads grants
// across the window instead of letting a burst drain the whole budget at
// the window's edge. The mutex guards only bookkeeping: waiting always
// happens with the lock released.
type Budget struct {
	mu     sync.Mutex
	calls  int
	window time.Duration
	stamps []time.Time

	pacer *rate.Limiter
	now   func() time.Time
}

// NewBudget creates a budget of calls per rolling window.
func NewBudget(calls int, window time.Duration) *Budget {
	burst := calls / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 100 {
		burst = 100
	}
	return &Budget{
		calls:  calls,
		window: window,
		pacer:  rate.NewLimiter(rate.Limit(float64(calls)/window.Seconds()), burst),
		now:    time.Now,
	}
}

// Acquire blocks until a call may be issued. A slot is consumed at return;
// callers must issue exactly one external call per successful Acquire.
func (b *Budget) Acquire(ctx context.Context) error {
	if err := b.pacer.Wait(ctx); err != nil {
		return err
	}

	for {
		b.mu.Lock()
		now := b.now()
		b.prune(now)
		if len(b.stamps) < b.calls {
			b.stamps = append(b.stamps, now)
			b.mu.Unlock()
			return nil
		}
		// Window is full: the next slot opens when the oldest stamp ages out.
		wait := b.stamps[0].Add(b.window).Sub(now)
		b.mu.Unlock()

		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// InWindow returns the number of calls issued within the current window.
func (b *Budget) InWindow() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prune(b.now())
	return len(b.stamps)
}

// prune drops timestamps older than the window. Caller holds the lock.
func (b *Budget) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	valid := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	b.stamps = valid
}
