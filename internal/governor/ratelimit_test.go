package governor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiterEnforcesWindowLimit(t *testing.T) {
	l := NewRateLimiter(5, time.Minute)

	for i := 0; i < 5; i++ {
		if !l.Acquire("llm:chat") {
			t.Fatalf("acquire %d should succeed within limit", i)
		}
	}
	if l.Acquire("llm:chat") {
		t.Fatal("sixth acquire should be refused")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)

	if !l.Acquire("llm:chat") {
		t.Fatal("first key should acquire")
	}
	if !l.Acquire("search:web") {
		t.Fatal("second key should acquire independently")
	}
	if l.Acquire("llm:chat") {
		t.Fatal("first key should now be exhausted")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewRateLimiter(2, 10*time.Second)
	l.now = func() time.Time { return now }

	if !l.Acquire("k") || !l.Acquire("k") {
		t.Fatal("initial acquires should succeed")
	}
	if l.Acquire("k") {
		t.Fatal("limit reached, acquire should fail")
	}

	now = now.Add(11 * time.Second)
	if !l.Acquire("k") {
		t.Fatal("acquire should succeed after window rollover")
	}
}

func TestRateLimiterConcurrentNeverExceedsLimit(t *testing.T) {
	const limit = 50
	l := NewRateLimiter(limit, time.Minute)

	var granted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if l.Acquire("shared") {
					granted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := granted.Load(); got != limit {
		t.Fatalf("expected exactly %d grants under contention, got %d", limit, got)
	}
}

func TestRateLimiterRetryAfter(t *testing.T) {
	now := time.Unix(2000, 0)
	l := NewRateLimiter(1, 10*time.Second)
	l.now = func() time.Time { return now }

	if !l.Acquire("k") {
		t.Fatal("acquire should succeed")
	}
	now = now.Add(3 * time.Second)

	wait := l.RetryAfter("k")
	if wait != 7*time.Second {
		t.Fatalf("expected retry after 7s, got %v", wait)
	}
}
