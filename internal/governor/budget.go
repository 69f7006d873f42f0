package governor

import (
	"context"
	"sync/atomic"
	"time"
)

// Budget is a per-run hard ceiling on external calls and wall-clock
// time. Once exceeded, remaining work is skipped (marked, not silently
// merged as success). A nil Budget allows everything.
type Budget struct {
	maxCalls int64 // zero means uncapped
	used     atomic.Int64
	deadline time.Time // zero means no deadline
}

func NewBudget(maxCalls int, wallClock time.Duration) *Budget {
	b := &Budget{maxCalls: int64(maxCalls)}
	if wallClock > 0 {
		b.deadline = time.Now().Add(wallClock)
	}
	return b
}

// Acquire reserves one external call. It returns false once the call
// cap or the deadline has been exceeded.
func (b *Budget) Acquire() bool {
	if b == nil {
		return true
	}
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		return false
	}
	if b.maxCalls <= 0 {
		b.used.Add(1)
		return true
	}
	// Reserve first; roll back on overshoot so concurrent callers
	// never exceed the cap.
	if b.used.Add(1) > b.maxCalls {
		b.used.Add(-1)
		return false
	}
	return true
}

// Used returns how many calls have been admitted.
func (b *Budget) Used() int64 {
	if b == nil {
		return 0
	}
	return b.used.Load()
}

type budgetCtxKey struct{}

// WithBudget attaches the run budget to ctx. Clients downstream meter
// every outbound call against it, so the cap holds across the whole
// call graph of a run, not just its top-level items.
func WithBudget(ctx context.Context, b *Budget) context.Context {
	return context.WithValue(ctx, budgetCtxKey{}, b)
}

// BudgetFrom returns the budget carried by ctx. The nil result for a
// context without one is safe to use and allows everything.
func BudgetFrom(ctx context.Context) *Budget {
	b, _ := ctx.Value(budgetCtxKey{}).(*Budget)
	return b
}

// Exhausted reports whether no further calls will be admitted.
func (b *Budget) Exhausted() bool {
	if b == nil {
		return false
	}
	if !b.deadline.IsZero() && time.Now().After(b.deadline) {
		return true
	}
	return b.maxCalls > 0 && b.used.Load() >= b.maxCalls
}
