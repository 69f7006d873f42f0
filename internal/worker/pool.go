package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/scoutlens/scoutlens/internal/governor"
)

// Result is the outcome of one unit of work. Skipped items were never
// attempted (run budget exhausted or context canceled); they are
// distinct from failures and never merged as success.
type Result[R any] struct {
	Value   R
	Err     error
	Skipped bool
}

// Map runs fn over items with at most concurrency workers and returns
// results in input order regardless of completion order. Per-item
// failures are isolated: one failing item never aborts its siblings.
// Once budget is exhausted or ctx is done, remaining items are marked
// skipped without being dispatched. A nil budget never refuses work.
func Map[T, R any](ctx context.Context, items []T, concurrency int, budget *governor.Budget, fn func(context.Context, T) (R, error)) []Result[R] {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]Result[R], len(items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range items {
		if ctx.Err() != nil || budget.Exhausted() {
			results[i].Skipped = true
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			value, err := fn(ctx, items[i])
			if err != nil && errors.Is(err, governor.ErrBudgetExhausted) {
				results[i].Skipped = true
				return
			}
			results[i] = Result[R]{Value: value, Err: err}
		}(i)
	}

	wg.Wait()
	return results
}

// Tally counts result outcomes for category reporting.
func Tally[R any](results []Result[R]) (attempted, succeeded, failed, skipped int) {
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			attempted++
			failed++
		default:
			attempted++
			succeeded++
		}
	}
	return attempted, succeeded, failed, skipped
}
