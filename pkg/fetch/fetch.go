// Package fetch is the single gateway for metered external calls. Every
// enrichment lookup routes through Do: cache read, admission check,
// fetch, cache write. No other code path may call a rate-limited service.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"fernweh/pkg/cache"
	"fernweh/pkg/ratelimit"
	"fernweh/pkg/tracker"
)

// FetchFunc produces the value when the cache cannot.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Options configures one fetch. Type selects the TTL and is always
// required; the zero value of everything else is a working default.
type Options struct {
	Type cache.Type

	// Service routes the call through the rate limiter. Empty means
	// unmetered: no admission check, no usage tracking.
	Service string

	// SkipCache bypasses the cache read. The result is still written,
	// so a forced refresh repairs the entry for later callers.
	SkipCache bool
}

// Fetcher orchestrates cache lookup, admission and cache write around a
// caller-supplied fetch.
type Fetcher struct {
	tiers   *cache.Tiers
	limiter ratelimit.Limiter
	tracker *tracker.Tracker
}

// New creates a Fetcher. A nil limiter disables admission control; nil
// tiers disable caching (every call goes to the source).
func New(tiers *cache.Tiers, limiter ratelimit.Limiter, tr *tracker.Tracker) *Fetcher {
	if tr == nil {
		tr = tracker.New()
	}
	return &Fetcher{tiers: tiers, limiter: limiter, tracker: tr}
}

// Peek returns the cached bytes for key without admission checks and
// without fetching. For read paths that must not spend external budget.
func (f *Fetcher) Peek(ctx context.Context, key string, typ cache.Type) ([]byte, bool) {
	if f.tiers == nil {
		return nil, false
	}
	return f.tiers.Get(ctx, key, typ)
}

// PeekJSON decodes a cached entry into T without fetching. A corrupt
// entry reads as a miss.
func PeekJSON[T any](ctx context.Context, f *Fetcher, key string, typ cache.Type) (T, bool) {
	var out T
	raw, ok := f.Peek(ctx, key, typ)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false
	}
	return out, true
}

// Do runs one gated fetch. A denial surfaces as *ratelimit.Error and is
// never retried here. Cache write failures never fail the fetch.
func (f *Fetcher) Do(ctx context.Context, key string, opts Options, fn FetchFunc) ([]byte, error) {
	val, _, err := f.fetch(ctx, key, opts, fn)
	return val, err
}

func (f *Fetcher) fetch(ctx context.Context, key string, opts Options, fn FetchFunc) (val []byte, fromCache bool, err error) {
	if !opts.SkipCache && f.tiers != nil {
		if val, hit := f.tiers.Get(ctx, key, opts.Type); hit {
			if opts.Service != "" {
				f.tracker.TrackCacheHit(opts.Service)
			}
			slog.Debug("Fetch: cache hit", "key", key)
			return val, true, nil
		}
		if opts.Service != "" {
			f.tracker.TrackCacheMiss(opts.Service)
		}
		slog.Debug("Fetch: cache miss", "key", key)
	}

	if opts.Service != "" && f.limiter != nil {
		d, err := f.limiter.Acquire(ctx, opts.Service)
		if err != nil {
			// Counter store failure: do not touch the external service
			// when its budget cannot be verified
			return nil, false, fmt.Errorf("admission check for %s: %w", opts.Service, err)
		}
		if !d.Allowed {
			f.tracker.TrackRateLimited(opts.Service)
			slog.Warn("Fetch: admission denied", "service", opts.Service, "key", key, "retry_after", d.RetryAfter)
			return nil, false, &ratelimit.Error{Service: opts.Service, RetryAfter: d.RetryAfter}
		}
	}

	val, err = fn(ctx)
	if err != nil {
		return nil, false, err
	}

	if f.tiers != nil {
		// Write failures are logged by the cache layer
		_ = f.tiers.Set(ctx, key, opts.Type, val)
	}

	return val, false, nil
}

// JSON runs a gated fetch whose payload marshals to and from T. A cached
// entry that no longer unmarshals is dropped and fetched once more.
func JSON[T any](ctx context.Context, f *Fetcher, key string, opts Options, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	wrapped := func(ctx context.Context) ([]byte, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	raw, fromCache, err := f.fetch(ctx, key, opts, wrapped)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	} else if !fromCache {
		return zero, fmt.Errorf("unmarshal fetched payload for %s: %w", key, err)
	}

	// Corrupt cache entry: drop it and go to the source
	slog.Warn("Fetch: dropping corrupt cache entry", "key", key)
	_ = f.tiers.Delete(ctx, key)
	opts.SkipCache = true

	raw, _, err = f.fetch(ctx, key, opts, wrapped)
	if err != nil {
		return zero, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("unmarshal fetched payload for %s: %w", key, err)
	}
	return out, nil
}
