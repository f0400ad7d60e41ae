package brave

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/db"
	"fernweh/pkg/fetch"
	"fernweh/pkg/imagery"
	"fernweh/pkg/request"
	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rc := request.New(tracker.New(), request.Config{Retries: 1})
	c := New(config.BraveConfig{Endpoint: srv.URL, Key: "test-key"}, rc, fetch.New(nil, nil, nil))
	return c, srv
}

func TestSearchImages(t *testing.T) {
	var gotQuery, gotToken string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotToken = r.Header.Get("X-Subscription-Token")
		w.Write([]byte(`{"results":[
			{"properties":{"url":"https://img.example/lofthus-1.jpg"}},
			{"properties":{"url":""},"thumbnail":{"src":"https://img.example/lofthus-2.jpg"}},
			{"properties":{"url":"https://img.example/lofthus-1.jpg"}},
			{"properties":{"url":"https://img.example/lofthus-3.jpg"}}
		]}`))
	})

	urls, err := c.SearchImages(context.Background(), imagery.Query{
		Term:     "Lofthus",
		Regional: "Vestland",
		National: "Norway",
		Limit:    5,
	})
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}

	if gotQuery != "Lofthus Vestland Norway" {
		t.Errorf("query = %q, want contextual term", gotQuery)
	}
	if gotToken != "test-key" {
		t.Errorf("subscription token = %q", gotToken)
	}

	// Duplicate dropped, thumbnail fallback used for the empty property.
	want := []string{
		"https://img.example/lofthus-1.jpg",
		"https://img.example/lofthus-2.jpg",
		"https://img.example/lofthus-3.jpg",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
}

func TestSearchImagesLimit(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[
			{"properties":{"url":"https://img.example/a.jpg"}},
			{"properties":{"url":"https://img.example/b.jpg"}},
			{"properties":{"url":"https://img.example/c.jpg"}}
		]}`))
	})

	urls, err := c.SearchImages(context.Background(), imagery.Query{Term: "Bergen", Limit: 2})
	if err != nil {
		t.Fatalf("SearchImages: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("got %d urls, want limit 2 applied locally", len(urls))
	}
}

func TestCachedImages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results":[{"properties":{"url":"https://img.example/odda-1.jpg"}}]}`))
	}))
	t.Cleanup(srv.Close)

	d, err := db.Init(filepath.Join(t.TempDir(), "brave_test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	tiers := cache.NewTiers(cache.NewMemory(), store.NewSQLiteStore(d))

	rc := request.New(tracker.New(), request.Config{Retries: 1})
	c := New(config.BraveConfig{Endpoint: srv.URL, Key: "test-key"}, rc, fetch.New(tiers, nil, tracker.New()))

	q := imagery.Query{Term: "Odda", Regional: "Vestland", National: "Norway", Limit: 5}

	if _, ok := c.CachedImages(context.Background(), q); ok {
		t.Fatal("CachedImages hit before anything was fetched")
	}

	if _, err := c.SearchImages(context.Background(), q); err != nil {
		t.Fatalf("SearchImages: %v", err)
	}

	urls, ok := c.CachedImages(context.Background(), q)
	if !ok || len(urls) != 1 || urls[0] != "https://img.example/odda-1.jpg" {
		t.Errorf("CachedImages = %v, %v after search", urls, ok)
	}
}

func TestSearchImagesNoKey(t *testing.T) {
	rc := request.New(tracker.New(), request.Config{})
	c := New(config.BraveConfig{Endpoint: "http://unused"}, rc, fetch.New(nil, nil, nil))

	if _, err := c.SearchImages(context.Background(), imagery.Query{Term: "Bergen"}); err == nil {
		t.Fatal("expected error without API key")
	}
	if c.Configured() {
		t.Error("Configured() = true without key")
	}
}

func TestBuildTerm(t *testing.T) {
	tests := []struct {
		name string
		q    imagery.Query
		want string
	}{
		{
			name: "local with context",
			q:    imagery.Query{Term: "Lofthus", Regional: "Vestland", National: "Norway"},
			want: "Lofthus Vestland Norway",
		},
		{
			name: "regional term skips itself",
			q:    imagery.Query{Term: "Vestland", Regional: "Vestland", National: "Norway"},
			want: "Vestland Norway",
		},
		{
			name: "national term stands alone",
			q:    imagery.Query{Term: "Norway", Regional: "Vestland", National: "Norway"},
			want: "Norway",
		},
		{
			name: "continental term stands alone",
			q:    imagery.Query{Term: "Europe", National: "Norway"},
			want: "Europe",
		},
		{
			name: "global term untouched",
			q:    imagery.Query{Term: "travel landscape"},
			want: "travel landscape",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildTerm(tt.q); got != tt.want {
				t.Errorf("buildTerm = %q, want %q", got, tt.want)
			}
		})
	}
}
