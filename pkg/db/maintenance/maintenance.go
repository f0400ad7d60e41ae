// Package maintenance bundles the database housekeeping shared by the
// server's startup path and its scheduled jobs.
package maintenance

import (
	"log/slog"
	"time"

	"fernweh/pkg/cache"
	"fernweh/pkg/db"
)

// usageRetention keeps the daily ledger long enough for quota reviews.
const usageRetention = 90 * 24 * time.Hour

// Run executes all maintenance tasks once and blocks until completion.
// Individual task failures are logged, never returned, so a locked row
// cannot block startup.
func Run(d *db.DB) {
	slog.Info("Starting database maintenance")
	cacheRows := PruneCache(d)
	usageRows := PruneUsage(d)
	slog.Info("Database maintenance completed", "cache_rows", cacheRows, "usage_rows", usageRows)
}

// PruneCache removes cache rows past their type's TTL, every type in one
// pass. Returns the number of rows removed.
func PruneCache(d *db.DB) int64 {
	var total int64
	for _, ct := range cache.Types() {
		n, err := d.PruneCache(string(ct), ct.TTL())
		if err != nil {
			slog.Warn("Maintenance: cache prune failed", "type", ct, "error", err)
			continue
		}
		total += n
	}
	return total
}

// PruneUsage trims the usage ledger to its retention window.
func PruneUsage(d *db.DB) int64 {
	n, err := d.PruneUsage(usageRetention)
	if err != nil {
		slog.Warn("Maintenance: usage prune failed", "error", err)
		return 0
	}
	return n
}
