package geonames

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/db"
	"fernweh/pkg/fetch"
	"fernweh/pkg/request"
	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
)

const lofthusJSON = `{"geonames":[
	{"geonameId":3147474,"name":"Kinsarvik","fcode":"PPL","countryCode":"NO","population":500,"lat":"60.3756","lng":"6.7194"},
	{"geonameId":3144571,"name":"Lofthus","fcode":"PPL","countryCode":"NO","population":600,"lat":"60.3260","lng":"6.6640"},
	{"geonameId":3137607,"name":"Ullensvang","fcode":"ADM2","countryCode":"NO","population":11000,"lat":"60.3190","lng":"6.6540"}
]}`

func testClient(t *testing.T, handler http.HandlerFunc, cached bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var f *fetch.Fetcher
	if cached {
		d, err := db.Init(filepath.Join(t.TempDir(), "geonames_test.db"))
		if err != nil {
			t.Fatalf("Failed to init DB: %v", err)
		}
		t.Cleanup(func() { d.Close() })
		tiers := cache.NewTiers(cache.NewMemory(), store.NewSQLiteStore(d))
		f = fetch.New(tiers, nil, tracker.New())
	} else {
		f = fetch.New(nil, nil, nil)
	}

	rc := request.New(tracker.New(), request.Config{Retries: 1})
	cfg := config.GeoNamesConfig{
		Endpoint: srv.URL,
		Username: "demo",
		Radius:   config.Distance(5000),
		MaxRows:  30,
	}
	return New(cfg, rc, f)
}

func TestNearbySortsAndFillsDistance(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("username"); got != "demo" {
			t.Errorf("username = %q", got)
		}
		w.Write([]byte(lofthusJSON))
	}, false)

	// Query from Lofthus itself: Lofthus first, Kinsarvik (6 km up the
	// fjord) last.
	places, err := c.Nearby(context.Background(), 60.3260, 6.6640, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(places) != 3 {
		t.Fatalf("got %d places, want 3", len(places))
	}

	if places[0].Name != "Lofthus" {
		t.Errorf("closest = %q, want Lofthus", places[0].Name)
	}
	if places[len(places)-1].Name != "Kinsarvik" {
		t.Errorf("farthest = %q, want Kinsarvik", places[len(places)-1].Name)
	}

	if places[0].DistanceM > 100 {
		t.Errorf("distance to own location = %.0fm", places[0].DistanceM)
	}
	if d := places[len(places)-1].DistanceM; d < 4000 || d > 9000 {
		t.Errorf("distance to Kinsarvik = %.0fm, want a few km", d)
	}
	if places[0].GeoNameID != 3144571 || places[0].FeatureCode != "PPL" {
		t.Errorf("place fields not mapped: %+v", places[0])
	}
}

func TestNearbySharesTileCache(t *testing.T) {
	var calls int64
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.Write([]byte(lofthusJSON))
	}, true)

	// Two requests a few centimeters apart land in the same tile and must
	// share one upstream call.
	if _, err := c.Nearby(context.Background(), 60.3260, 6.6640, 0); err != nil {
		t.Fatalf("first Nearby: %v", err)
	}
	if _, err := c.Nearby(context.Background(), 60.3260001, 6.6640001, 0); err != nil {
		t.Fatalf("second Nearby: %v", err)
	}

	if n := atomic.LoadInt64(&calls); n != 1 {
		t.Errorf("upstream called %d times, want 1 per tile", n)
	}
}

func TestCachedNearby(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(lofthusJSON))
	}, true)

	// Cold: nothing cached for the tile yet.
	if _, ok := c.CachedNearby(context.Background(), 60.3260, 6.6640, 0); ok {
		t.Fatal("CachedNearby hit before anything was fetched")
	}

	if _, err := c.Nearby(context.Background(), 60.3260, 6.6640, 0); err != nil {
		t.Fatalf("Nearby: %v", err)
	}

	// Warm: a point a few centimeters away lands in the same tile and
	// hits, with distances relative to the new caller.
	places, ok := c.CachedNearby(context.Background(), 60.3260001, 6.6640001, 0)
	if !ok {
		t.Fatal("CachedNearby miss after Nearby populated the tile")
	}
	if len(places) != 3 || places[0].Name != "Lofthus" {
		t.Errorf("places = %v", places)
	}
	if places[0].DistanceM <= 0 {
		t.Error("peeked places must carry caller-relative distances")
	}
}

func TestNearbyStatusError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":{"message":"user account not enabled to use the free webservice","value":10}}`))
	}, false)

	if _, err := c.Nearby(context.Background(), 60.3, 6.6, 0); err == nil {
		t.Fatal("expected error for in-band status")
	}
}

func TestNearbyNoUsername(t *testing.T) {
	rc := request.New(tracker.New(), request.Config{})
	c := New(config.GeoNamesConfig{Endpoint: "http://unused"}, rc, fetch.New(nil, nil, nil))

	if _, err := c.Nearby(context.Background(), 60.3, 6.6, 0); err == nil {
		t.Fatal("expected error without username")
	}
	if c.Configured() {
		t.Error("Configured() = true without username")
	}
}

func TestNearbySkipsUnparsableCoordinates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"geonames":[
			{"geonameId":1,"name":"Good","fcode":"PPL","lat":"60.1","lng":"6.1"},
			{"geonameId":2,"name":"Bad","fcode":"PPL","lat":"not-a-number","lng":"6.2"}
		]}`))
	}, false)

	places, err := c.Nearby(context.Background(), 60.1, 6.1, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}
	if len(places) != 1 || places[0].Name != "Good" {
		t.Errorf("places = %v, want the parsable entry only", places)
	}
}
