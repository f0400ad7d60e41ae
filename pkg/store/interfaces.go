package store

import (
	"context"
	"time"

	"fernweh/pkg/model"
)

// CacheStore handles typed key-value caching with freshness cutoffs.
type CacheStore interface {
	// GetCache returns the value for key if its row is younger than maxAge.
	// maxAge <= 0 disables the cutoff. Errors are treated as misses.
	GetCache(ctx context.Context, key string, maxAge time.Duration) ([]byte, bool)
	HasCache(ctx context.Context, key string, maxAge time.Duration) (bool, error)
	SetCache(ctx context.Context, key, cacheType string, val []byte) error
	DeleteCache(ctx context.Context, key string) error
	DeleteCachePrefix(ctx context.Context, prefix string) (int64, error)
	ListCacheKeys(ctx context.Context, prefix string) ([]string, error)
	CacheStats(ctx context.Context) ([]CacheTypeStats, error)
}

// CacheTypeStats summarizes the stored rows of one cache type.
type CacheTypeStats struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
	Bytes int64  `json:"bytes"`
}

// UsageStore handles the daily per-service request ledger.
type UsageStore interface {
	// AddUsage accumulates counter deltas onto the (day, service) row.
	AddUsage(ctx context.Context, day string, u model.Usage) error
	GetUsage(ctx context.Context, day string) ([]model.Usage, error)
	GetUsageSince(ctx context.Context, fromDay string) (map[string][]model.Usage, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}
