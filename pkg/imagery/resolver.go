// Package imagery resolves representative images for a location by
// walking its geographic hierarchy from most to least specific. Each
// level is queried against a primary search backend, with a fallback
// backend filling in when the yield across the walk is still poor. The
// walk stops early once the specific levels have produced enough, so a
// well-photographed town never costs a national or continental query.
package imagery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fernweh/pkg/dedup"
)

// Cascade defaults.
const (
	DefaultTargetCount = 20
	DefaultMaxPerLevel = 5
	DefaultMinPerLevel = 3
	DefaultMicroTTL    = time.Hour
	DefaultGlobalTerm  = "travel landscape"
)

// ResolverOptions tunes the cascade. The zero value is fully usable.
type ResolverOptions struct {
	// TargetCount is used when Resolve is called with target <= 0.
	TargetCount int
	// MaxPerLevel caps how many images a single level may contribute.
	MaxPerLevel int
	// MinPerLevel is the floor that triggers the fallback waterfall and
	// gates early termination.
	MinPerLevel int
	// MicroTTL bounds the per-level result cache. It is deliberately much
	// shorter than the main cache TTLs: search rankings shift, and a stale
	// level result would pin the whole walk.
	MicroTTL time.Duration
	// GlobalTerm is the generic last-resort query.
	GlobalTerm string
	// Now overrides the clock in tests.
	Now func() time.Time
}

func (o *ResolverOptions) applyDefaults() {
	if o.TargetCount <= 0 {
		o.TargetCount = DefaultTargetCount
	}
	if o.MaxPerLevel <= 0 {
		o.MaxPerLevel = DefaultMaxPerLevel
	}
	if o.MinPerLevel <= 0 {
		o.MinPerLevel = DefaultMinPerLevel
	}
	if o.MicroTTL <= 0 {
		o.MicroTTL = DefaultMicroTTL
	}
	if o.GlobalTerm == "" {
		o.GlobalTerm = DefaultGlobalTerm
	}
}

// Resolver walks a hierarchy level by level, caching each level's result
// for a short time so repeated loads of nearby locations reuse the
// generic rungs of the ladder.
type Resolver struct {
	primary  Source
	fallback Source
	opts     ResolverOptions

	mu    sync.Mutex
	micro map[string]microEntry
}

type microEntry struct {
	result  Result
	expires time.Time
}

// NewResolver builds a resolver over a primary and an optional fallback
// source. fallback may be nil; the waterfall is then skipped.
func NewResolver(primary, fallback Source, opts ResolverOptions) *Resolver {
	opts.applyDefaults()
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		opts:     opts,
		micro:    make(map[string]microEntry),
	}
}

// Resolve walks the hierarchy and returns one Result per visited level,
// most specific first. target <= 0 uses the configured TargetCount.
//
// Source failures contribute zero images and never abort the walk. If the
// whole walk stays under MinPerLevel, a single generic query is issued at
// the synthetic global level and appended when it produces anything, so
// callers degrade to stock travel imagery rather than nothing.
func (r *Resolver) Resolve(ctx context.Context, h Hierarchy, target int) []Result {
	if target <= 0 {
		target = r.opts.TargetCount
	}

	levels := h.Levels()
	results := make([]Result, 0, len(levels)+1)
	total := 0

	for _, lt := range levels {
		if ctx.Err() != nil {
			break
		}

		res := r.resolveLevel(ctx, lt, h, total)
		results = append(results, res)
		total += len(res.Images)

		// Stop descending to more generic levels once the specific ones
		// yield enough: at least the floor, and at least half the target.
		if total >= r.opts.MinPerLevel && total*2 >= target {
			slog.Debug("Imagery: early stop",
				"level", lt.Level.String(),
				"total", total,
				"target", target)
			break
		}
	}

	if total < r.opts.MinPerLevel && ctx.Err() == nil {
		if res := r.resolveGlobal(ctx); len(res.Images) > 0 {
			results = append(results, res)
			total += len(res.Images)
		}
	}

	slog.Debug("Imagery: resolved",
		"levels", len(results),
		"images", total,
		"target", target)
	return results
}

// resolveLevel produces the Result for a single rung. runningTotal is the
// image count across the walk so far, excluding this level; the fallback
// waterfall fires only when that total plus this level's primary yield is
// still under the floor.
func (r *Resolver) resolveLevel(ctx context.Context, lt LevelTerm, h Hierarchy, runningTotal int) Result {
	key := microKey(lt.Level, lt.Term)
	if res, ok := r.microGet(key); ok {
		slog.Debug("Imagery: micro-cache hit",
			"level", lt.Level.String(),
			"term", lt.Term,
			"images", len(res.Images))
		return res
	}

	primary := r.search(ctx, r.primary, Query{
		Term:     lt.Term,
		National: h.National,
		Regional: h.Regional,
		Limit:    r.opts.MaxPerLevel,
	})
	if len(primary) > r.opts.MaxPerLevel {
		primary = primary[:r.opts.MaxPerLevel]
	}

	images := primary
	src := SourcePrimary

	if runningTotal+len(primary) < r.opts.MinPerLevel && r.fallback != nil {
		need := r.opts.MaxPerLevel - len(primary)
		if need > 0 {
			fb := r.search(ctx, r.fallback, Query{
				Term:     lt.Term,
				National: h.National,
				Regional: h.Regional,
				Limit:    need,
			})
			if len(fb) > need {
				fb = fb[:need]
			}
			if len(fb) > 0 {
				if len(primary) > 0 {
					src = SourceMixed
				} else {
					src = SourceFallback
				}
				images = append(images, fb...)
			}
		}
	}

	res := Result{
		Level:  lt.Level,
		Term:   lt.Term,
		Images: dedup.Strings(images),
		Source: src,
	}
	r.microPut(key, res)
	return res
}

// resolveGlobal issues the fixed generic query. Cached like any level, so
// a burst of poorly covered locations shares one backend call.
func (r *Resolver) resolveGlobal(ctx context.Context) Result {
	key := microKey(LevelGlobal, r.opts.GlobalTerm)
	if res, ok := r.microGet(key); ok {
		return res
	}

	images := r.search(ctx, r.primary, Query{
		Term:  r.opts.GlobalTerm,
		Limit: r.opts.MaxPerLevel,
	})
	if len(images) > r.opts.MaxPerLevel {
		images = images[:r.opts.MaxPerLevel]
	}

	res := Result{
		Level:  LevelGlobal,
		Term:   r.opts.GlobalTerm,
		Images: dedup.Strings(images),
		Source: SourcePrimary,
	}
	r.microPut(key, res)
	return res
}

func (r *Resolver) search(ctx context.Context, src Source, q Query) []string {
	if src == nil {
		return nil
	}
	images, err := src.SearchImages(ctx, q)
	if err != nil {
		slog.Warn("Imagery: source failed",
			"source", src.Name(),
			"term", q.Term,
			"error", err)
		return nil
	}
	return images
}

// MicroCacheLen reports the number of micro-cache entries, fresh or not.
func (r *Resolver) MicroCacheLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.micro)
}

// SweepMicroCache drops expired entries and returns how many were removed.
func (r *Resolver) SweepMicroCache() int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, e := range r.micro {
		if now.After(e.expires) {
			delete(r.micro, key)
			removed++
		}
	}
	return removed
}

func microKey(level Level, term string) string {
	return fmt.Sprintf("%d:%s", int(level), strings.ToLower(term))
}

func (r *Resolver) microGet(key string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.micro[key]
	if !ok || r.now().After(e.expires) {
		return Result{}, false
	}
	return e.result, true
}

func (r *Resolver) microPut(key string, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.micro[key] = microEntry{result: res, expires: r.now().Add(r.opts.MicroTTL)}
}

func (r *Resolver) now() time.Time {
	if r.opts.Now != nil {
		return r.opts.Now()
	}
	return time.Now()
}
