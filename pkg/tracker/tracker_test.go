package tracker

import (
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	service := "test.service"

	// Test Initial State
	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	// Test Tracking
	tr.TrackCacheHit(service)
	tr.TrackCacheMiss(service)
	tr.TrackAPISuccess(service)
	tr.TrackAPIFailure(service)
	tr.TrackAPIZero(service)
	tr.TrackRateLimited(service)

	// Verify Snapshot
	stats = tr.Snapshot()
	sStats, ok := stats[service]
	if !ok {
		t.Fatalf("Expected stats for service %s", service)
	}

	if sStats.CacheHits != 1 {
		t.Errorf("Expected 1 CacheHit, got %d", sStats.CacheHits)
	}
	if sStats.CacheMisses != 1 {
		t.Errorf("Expected 1 CacheMiss, got %d", sStats.CacheMisses)
	}
	if sStats.APISuccess != 1 {
		t.Errorf("Expected 1 APISuccess, got %d", sStats.APISuccess)
	}
	if sStats.APIFailures != 1 {
		t.Errorf("Expected 1 APIFailure, got %d", sStats.APIFailures)
	}
	if sStats.APIZero != 1 {
		t.Errorf("Expected 1 APIZero, got %d", sStats.APIZero)
	}
	if sStats.RateLimited != 1 {
		t.Errorf("Expected 1 RateLimited, got %d", sStats.RateLimited)
	}
}

func TestDrain(t *testing.T) {
	tr := New()
	service := "flickr"

	tr.TrackAPISuccess(service)
	tr.TrackAPISuccess(service)
	tr.TrackRateLimited(service)

	// First drain returns everything so far
	deltas := tr.Drain()
	d, ok := deltas[service]
	if !ok {
		t.Fatal("Expected deltas for service")
	}
	if d.APISuccess != 2 || d.RateLimited != 1 {
		t.Errorf("First drain mismatch: %+v", d)
	}

	// Nothing happened since: no deltas
	deltas = tr.Drain()
	if len(deltas) != 0 {
		t.Errorf("Expected empty second drain, got %+v", deltas)
	}

	// New activity produces only the difference
	tr.TrackAPIFailure(service)
	deltas = tr.Drain()
	d = deltas[service]
	if d.APISuccess != 0 || d.APIFailures != 1 {
		t.Errorf("Third drain mismatch: %+v", d)
	}

	// Snapshot stays cumulative across drains
	snap := tr.Snapshot()[service]
	if snap.APISuccess != 2 || snap.APIFailures != 1 || snap.RateLimited != 1 {
		t.Errorf("Snapshot should be cumulative: %+v", snap)
	}
}
