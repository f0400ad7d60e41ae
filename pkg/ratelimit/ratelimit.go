// Package ratelimit implements per-service hourly admission control.
// Every metered external call asks for admission before it is made;
// denial is immediate and final for that call, nothing queues or retries
// at this layer. Windows are fixed clock hours resetting at the boundary.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultLimits is the per-hour admission budget per service.
var DefaultLimits = map[string]int{
	"brave":     1000,
	"flickr":    950,
	"wikimedia": 5000,
	"gemini":    6000,
	"geonames":  10000,
	"nominatim": 3600,
}

// Decision is the admission verdict for one call.
type Decision struct {
	Allowed   bool
	Remaining int64

	// RetryAfter is the time until the window rolls over; only meaningful
	// when Allowed is false.
	RetryAfter time.Duration
}

// Limiter grants or denies admission for a service within the current
// window. Services without a configured limit are admitted unmetered
// with Remaining = -1. A non-nil error means the backing counter store
// failed; callers must not fall through to the external call.
type Limiter interface {
	Acquire(ctx context.Context, service string) (Decision, error)
}

// Error reports a denied admission.
type Error struct {
	Service    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (retry in %s)", e.Service, e.RetryAfter.Round(time.Second))
}

// IsRateLimited reports whether err is an admission denial.
func IsRateLimited(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// Unlimited admits everything. Used by tools that manage load themselves.
type Unlimited struct{}

func (Unlimited) Acquire(context.Context, string) (Decision, error) {
	return Decision{Allowed: true, Remaining: -1}, nil
}

// untilNextWindow returns the time remaining until the next hour boundary.
func untilNextWindow(now time.Time) time.Duration {
	return now.Truncate(time.Hour).Add(time.Hour).Sub(now)
}
