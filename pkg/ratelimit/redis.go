package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares admission counters across processes. Each window is
// its own hour-stamped key; INCR is atomic, so concurrent callers cannot
// slip past the limit between check and increment.
type RedisLimiter struct {
	client *redis.Client
	limits map[string]int

	now func() time.Time
}

// NewRedis creates a Redis-backed limiter on an existing connection.
// Pass nil limits to use DefaultLimits.
func NewRedis(client *redis.Client, limits map[string]int) *RedisLimiter {
	if limits == nil {
		limits = DefaultLimits
	}
	return &RedisLimiter{client: client, limits: limits, now: time.Now}
}

func (rl *RedisLimiter) Acquire(ctx context.Context, service string) (Decision, error) {
	limit, metered := rl.limits[service]
	if !metered {
		return Decision{Allowed: true, Remaining: -1}, nil
	}

	now := rl.now()
	key := fmt.Sprintf("ratelimit:%s:%s", service, now.UTC().Format("2006010215"))

	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit counter for %s: %w", service, err)
	}
	if count == 1 {
		// Stale windows expire on their own
		rl.client.Expire(ctx, key, 2*time.Hour)
	}

	if count > int64(limit) {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: untilNextWindow(now)}, nil
	}
	return Decision{Allowed: true, Remaining: int64(limit) - count}, nil
}
