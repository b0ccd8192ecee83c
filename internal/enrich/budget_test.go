package enrich

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

func TestBudgetAcquireUnderLimit(t *testing.T) {
	b := NewBudget(3, 200*time.Millisecond)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if got := b.InWindow(); got != 3 {
		t.Errorf("InWindow() = %d, want 3", got)
	}
}

func TestBudgetBlocksWhenWindowFull(t *testing.T) {
	b := NewBudget(2, time.Minute)

	now := time.Now()
	b.mu.Lock()
	b.stamps = []time.Time{now, now}
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := b.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire on full window = %v, want deadline exceeded", err)
	}
}

func TestBudgetEvictsExpiredStamps(t *testing.T) {
	b := NewBudget(2, time.Minute)

	b.mu.Lock()
	b.stamps = []time.Time{
		time.Now().Add(-2 * time.Minute),
		time.Now().Add(-90 * time.Second),
	}
	b.mu.Unlock()

	if got := b.InWindow(); got != 0 {
		t.Fatalf("InWindow() = %d, want 0 after expiry", got)
	}
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire after expiry: %v", err)
	}
}

func TestBudgetWindowReopens(t *testing.T) {
	b := NewBudget(1, 150*time.Millisecond)
	ctx := context.Background()

	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	start := time.Now()
	if err := b.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second Acquire returned after %v, want a wait near the window", elapsed)
	}
}

// Ten goroutines race for a budget of 5 per 300ms. Sorting the grant
// times, any stamp and the stamp five grants later must sit at least a
// window apart, minus scheduling slack.
func TestBudgetConcurrentCapHolds(t *testing.T) {
	const (
		calls  = 5
		window = 300 * time.Millisecond
		total  = 10
	)
	b := NewBudget(calls, window)

	var (
		mu     sync.Mutex
		grants []time.Time
		wg     sync.WaitGroup
	)
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			grants = append(grants, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(grants, func(i, j int) bool { return grants[i].Before(grants[j]) })
	for i := 0; i+calls < len(grants); i++ {
		if gap := grants[i+calls].Sub(grants[i]); gap < window-100*time.Millisecond {
			t.Errorf("grants %d and %d only %v apart, cap of %d per %v violated",
				i, i+calls, gap, calls, window)
		}
	}
}
