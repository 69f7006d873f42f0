package governor

import (
	"sync"
	"time"
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window counter keyed by logical resource
// (e.g. "llm:chat", "search:web"). Acquire never blocks and never
// errors; denial means the caller backs off or skips. All state
// transitions happen under one lock so concurrent callers cannot
// lose updates.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*rateWindow

	now func() time.Time // injectable for tests
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

// Acquire consumes one slot for key within the current window.
// The window resets when now - start >= window; counts otherwise
// increment monotonically within a window.
func (l *RateLimiter) Acquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &rateWindow{start: now}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false
	}
	w.count++
	return true
}

// RetryAfter returns how long the caller should wait before the window
// for key resets. Zero means the key is not currently limited.
func (l *RateLimiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || w.count < l.limit {
		return 0
	}
	remaining := l.window - l.now().Sub(w.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}
