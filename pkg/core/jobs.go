package core

import (
	"context"
	"log/slog"
	"time"

	"fernweh/pkg/db"
	"fernweh/pkg/db/maintenance"
	"fernweh/pkg/model"
	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
)

const (
	cachePruneEvery = 1 * time.Hour
	usageFlushEvery = 5 * time.Minute
	microSweepEvery = 15 * time.Minute
)

// NewCachePruneJob reclaims cache rows past their type's TTL and trims
// the usage ledger to its retention window.
func NewCachePruneJob(d *db.DB) *TimeJob {
	return NewTimeJob("CachePrune", cachePruneEvery, func(ctx context.Context) {
		if n := maintenance.PruneCache(d); n > 0 {
			slog.Info("CachePrune: removed stale entries", "rows", n)
		}
		if n := maintenance.PruneUsage(d); n > 0 {
			slog.Info("CachePrune: trimmed usage ledger", "rows", n)
		}
	})
}

// NewUsageFlushJob periodically persists API counter deltas to the
// daily ledger so a crash loses at most a few minutes of counts.
func NewUsageFlushJob(trk *tracker.Tracker, usage store.UsageStore) *TimeJob {
	return NewTimeJob("UsageFlush", usageFlushEvery, func(ctx context.Context) {
		FlushUsage(ctx, trk, usage)
	})
}

// FlushUsage drains the tracker's deltas into the ledger. Also called
// once at shutdown for the final partial interval.
func FlushUsage(ctx context.Context, trk *tracker.Tracker, usage store.UsageStore) {
	deltas := trk.Drain()
	if len(deltas) == 0 {
		return
	}
	day := time.Now().UTC().Format("2006-01-02")
	for service, d := range deltas {
		u := model.Usage{
			Service:     service,
			Success:     d.APISuccess,
			Failure:     d.APIFailures,
			RateLimited: d.RateLimited,
		}
		if err := usage.AddUsage(ctx, day, u); err != nil {
			slog.Warn("UsageFlush: ledger write failed", "service", service, "error", err)
		}
	}
	slog.Debug("UsageFlush: persisted deltas", "services", len(deltas), "day", day)
}

// Sweeper is implemented by the image resolver's micro-cache.
type Sweeper interface {
	SweepMicroCache() int
}

// NewMicroSweepJob drops expired entries from the resolver's in-process
// micro-cache so negative entries do not linger past their hour.
func NewMicroSweepJob(s Sweeper) *TimeJob {
	return NewTimeJob("MicroSweep", microSweepEvery, func(ctx context.Context) {
		if n := s.SweepMicroCache(); n > 0 {
			slog.Debug("MicroSweep: dropped expired entries", "count", n)
		}
	})
}
