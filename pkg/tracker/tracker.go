package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per external service.
type Tracker struct {
	mu      sync.RWMutex
	stats   map[string]*ServiceStats
	drained map[string]ServiceStats
}

// ServiceStats holds metrics for a specific service.
// Fields are accessed atomically.
type ServiceStats struct {
	CacheHits   int64
	CacheMisses int64
	APISuccess  int64
	APIFailures int64
	APIZero     int64
	RateLimited int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats:   make(map[string]*ServiceStats),
		drained: make(map[string]ServiceStats),
	}
}

// getStats returns the stats object for a service, creating it if needed.
func (t *Tracker) getStats(service string) *ServiceStats {
	t.mu.RLock()
	s, ok := t.stats[service]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[service]; ok {
		return s
	}
	s = &ServiceStats{}
	t.stats[service] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(service string) {
	atomic.AddInt64(&t.getStats(service).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(service string) {
	atomic.AddInt64(&t.getStats(service).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(service string) {
	atomic.AddInt64(&t.getStats(service).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(service string) {
	atomic.AddInt64(&t.getStats(service).APIFailures, 1)
}

// TrackAPIZero counts calls that succeeded but returned no results.
func (t *Tracker) TrackAPIZero(service string) {
	atomic.AddInt64(&t.getStats(service).APIZero, 1)
}

// TrackRateLimited counts calls denied by the admission gate.
func (t *Tracker) TrackRateLimited(service string) {
	atomic.AddInt64(&t.getStats(service).RateLimited, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ServiceStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ServiceStats)
	for k, v := range t.stats {
		result[k] = ServiceStats{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			APIZero:     atomic.LoadInt64(&v.APIZero),
			RateLimited: atomic.LoadInt64(&v.RateLimited),
		}
	}
	return result
}

// Drain returns the API counter deltas accumulated since the previous
// call and remembers the new baseline. Counters themselves keep growing,
// so Snapshot stays cumulative for the stats endpoint. Cache counters are
// not drained; only API activity is persisted to the usage ledger.
func (t *Tracker) Drain() map[string]ServiceStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	deltas := make(map[string]ServiceStats)
	for name, v := range t.stats {
		cur := ServiceStats{
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			RateLimited: atomic.LoadInt64(&v.RateLimited),
		}
		base := t.drained[name]
		d := ServiceStats{
			APISuccess:  cur.APISuccess - base.APISuccess,
			APIFailures: cur.APIFailures - base.APIFailures,
			RateLimited: cur.RateLimited - base.RateLimited,
		}
		if d.APISuccess != 0 || d.APIFailures != 0 || d.RateLimited != 0 {
			deltas[name] = d
		}
		t.drained[name] = cur
	}
	return deltas
}
