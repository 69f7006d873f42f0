package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/scoutlens/scoutlens/internal/governor"
)

func TestMapPreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 8, 1, 9, 2}
	results := Map(context.Background(), items, 4, nil, func(ctx context.Context, n int) (int, error) {
		return n * 10, nil
	})

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, r := range results {
		if r.Err != nil || r.Skipped {
			t.Fatalf("item %d: unexpected err=%v skipped=%v", i, r.Err, r.Skipped)
		}
		if r.Value != items[i]*10 {
			t.Fatalf("item %d: expected %d, got %d", i, items[i]*10, r.Value)
		}
	}
}

func TestMapIsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3, 4}
	results := Map(context.Background(), items, 2, nil, func(ctx context.Context, n int) (int, error) {
		if n%2 == 0 {
			return 0, fmt.Errorf("item %d failed", n)
		}
		return n, nil
	})

	for i, r := range results {
		even := items[i]%2 == 0
		if even && r.Err == nil {
			t.Fatalf("item %d: expected failure", i)
		}
		if !even && r.Err != nil {
			t.Fatalf("item %d: sibling failure leaked: %v", i, r.Err)
		}
	}
}

func TestMapRespectsConcurrencyBound(t *testing.T) {
	var current, peak atomic.Int64
	items := make([]int, 32)

	Map(context.Background(), items, 4, nil, func(ctx context.Context, n int) (int, error) {
		c := current.Add(1)
		for {
			p := peak.Load()
			if c <= p || peak.CompareAndSwap(p, c) {
				break
			}
		}
		defer current.Add(-1)
		return 0, nil
	})

	if peak.Load() > 4 {
		t.Fatalf("concurrency bound exceeded: peak %d", peak.Load())
	}
}

func TestMapSkipsAfterBudgetExhaustion(t *testing.T) {
	budget := governor.NewBudget(3, 0)
	items := make([]int, 10)

	results := Map(context.Background(), items, 1, budget, func(ctx context.Context, n int) (int, error) {
		if !budget.Acquire() {
			return 0, governor.ErrBudgetExhausted
		}
		return 1, nil
	})

	attempted, succeeded, failed, skipped := Tally(results)
	if succeeded != 3 {
		t.Fatalf("expected 3 successes under budget, got %d", succeeded)
	}
	if failed != 0 {
		t.Fatalf("budget refusals must not count as failures, got %d", failed)
	}
	if skipped != 7 {
		t.Fatalf("expected 7 skips, got %d", skipped)
	}
	if attempted != 3 {
		t.Fatalf("expected 3 attempted, got %d", attempted)
	}
}

func TestMapSkipsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := Map(ctx, []int{1, 2, 3}, 2, nil, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})

	for i, r := range results {
		if !r.Skipped {
			t.Fatalf("item %d should be skipped with canceled context", i)
		}
	}
}

func TestTallyCounts(t *testing.T) {
	results := []Result[int]{
		{Value: 1},
		{Err: fmt.Errorf("boom")},
		{Skipped: true},
		{Value: 2},
	}
	attempted, succeeded, failed, skipped := Tally(results)
	if attempted != 3 || succeeded != 2 || failed != 1 || skipped != 1 {
		t.Fatalf("unexpected tally: attempted=%d succeeded=%d failed=%d skipped=%d",
			attempted, succeeded, failed, skipped)
	}
}
