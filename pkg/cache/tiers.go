package cache

import (
	"context"
	"log/slog"

	"fernweh/pkg/store"
)

// Tiers coordinates the fast and durable cache tiers.
//
// Reads check the fast tier first, then the durable store with the type's
// TTL as freshness cutoff; durable hits are backfilled into the fast tier.
// Writes go to both tiers unconditionally. A failing fast tier degrades
// the call to durable-only; durable read errors surface as a miss.
type Tiers struct {
	fast    Fast
	durable store.CacheStore
}

// NewTiers creates the tier manager. fast may be nil for durable-only
// operation.
func NewTiers(fast Fast, durable store.CacheStore) *Tiers {
	return &Tiers{fast: fast, durable: durable}
}

// Get returns the cached value for key, honoring the type's TTL.
func (t *Tiers) Get(ctx context.Context, key string, typ Type) ([]byte, bool) {
	if t.fast != nil {
		val, hit, err := t.fast.Get(ctx, key)
		if err != nil {
			slog.Warn("Cache: fast tier read failed", "tier", t.fast.Name(), "key", key, "error", err)
		} else if hit {
			return val, true
		}
	}

	val, hit := t.durable.GetCache(ctx, key, typ.TTL())
	if !hit {
		return nil, false
	}

	// Backfill so the next read skips SQLite
	if t.fast != nil {
		if err := t.fast.Set(ctx, key, val, typ.TTL()); err != nil {
			slog.Warn("Cache: fast tier backfill failed", "tier", t.fast.Name(), "key", key, "error", err)
		}
	}

	return val, true
}

// Set writes the value to both tiers. The returned error covers the
// durable tier only; it is already logged here and safe to ignore for
// callers that treat caching as best-effort.
func (t *Tiers) Set(ctx context.Context, key string, typ Type, val []byte) error {
	if t.fast != nil {
		if err := t.fast.Set(ctx, key, val, typ.TTL()); err != nil {
			slog.Warn("Cache: fast tier write failed", "tier", t.fast.Name(), "key", key, "error", err)
		}
	}

	if err := t.durable.SetCache(ctx, key, string(typ), val); err != nil {
		slog.Error("Cache: durable write failed", "key", key, "error", err)
		return err
	}
	return nil
}

// Delete removes the key from both tiers.
func (t *Tiers) Delete(ctx context.Context, key string) error {
	if t.fast != nil {
		if err := t.fast.Delete(ctx, key); err != nil {
			slog.Warn("Cache: fast tier delete failed", "tier", t.fast.Name(), "key", key, "error", err)
		}
	}
	return t.durable.DeleteCache(ctx, key)
}
