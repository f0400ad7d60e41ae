package cache

import (
	"context"
	"time"
)

// Fast is the ephemeral tier. Implementations must be safe for concurrent
// use. A failing fast tier degrades reads and writes to durable-only; its
// errors are never fatal.
type Fast interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Name identifies the tier in logs and probes.
	Name() string
}
