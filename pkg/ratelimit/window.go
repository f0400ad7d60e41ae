package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is the in-process limiter. All services share the clock-hour
// boundary; counts reset when the hour rolls over. Safe for concurrent
// use, the counter check and increment happen under one lock.
type Window struct {
	mu     sync.Mutex
	limits map[string]int
	counts map[string]int64
	start  time.Time

	now func() time.Time
}

// NewWindow creates an in-process limiter with the given per-hour limits.
// Pass nil to use DefaultLimits.
func NewWindow(limits map[string]int) *Window {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Window{
		limits: limits,
		counts: make(map[string]int64),
		now:    time.Now,
	}
}

func (w *Window) Acquire(_ context.Context, service string) (Decision, error) {
	limit, metered := w.limits[service]
	if !metered {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	// Reset exactly at the hour boundary
	if cur := now.Truncate(time.Hour); !cur.Equal(w.start) {
		w.start = cur
		w.counts = make(map[string]int64)
	}

	count := w.counts[service]
	if count >= int64(limit) {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: untilNextWindow(now)}, nil
	}

	w.counts[service] = count + 1
	return Decision{Allowed: true, Remaining: int64(limit) - count - 1}, nil
}
