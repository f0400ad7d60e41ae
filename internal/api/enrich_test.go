package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fernweh/pkg/enrich"
	"fernweh/pkg/imagery"
)

// cannedResolver returns a fixed cascade result for every location.
type cannedResolver struct {
	results []imagery.Result
}

func (c *cannedResolver) Resolve(ctx context.Context, h imagery.Hierarchy, target int) []imagery.Result {
	return c.results
}

func testEnrichService() *enrich.Service {
	return enrich.New(
		enrich.Config{BatchDelay: -time.Nanosecond, ImageTarget: 4},
		enrich.Deps{Resolver: &cannedResolver{results: []imagery.Result{{
			Level:  imagery.LevelLocal,
			Term:   "Lofthus",
			Images: []string{"https://img.example/1.jpg", "https://img.example/2.jpg"},
			Source: imagery.SourcePrimary,
		}}}},
	)
}

func TestHandleBatch(t *testing.T) {
	h := NewEnrichHandler(testEnrichService())

	body := `{"activities":[
		{"id":"a1","title":"Fruit farm walk","location":{"name":"Lofthus","country":"Norway"}},
		{"id":"a2","title":"Mystery"},
		{"id":"a3","title":"Glacier hike","description":"Blue ice.","location":{"name":"Buarbreen","country":"Norway"}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/enrich", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleBatch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %d, want 200", w.Code)
	}
	var resp enrichResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(resp.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(resp.Items))
	}
	if resp.Failed != 1 {
		t.Errorf("failed: got %d, want 1", resp.Failed)
	}
	if resp.Items[0].Error != "" {
		t.Errorf("item 0 error: %q", resp.Items[0].Error)
	}
	if len(resp.Items[0].Activity.ImageURLs) != 2 {
		t.Errorf("item 0 images: got %d, want 2", len(resp.Items[0].Activity.ImageURLs))
	}
	// The location-less activity fails in its slot without sinking the batch
	if !strings.Contains(resp.Items[1].Error, "no location") {
		t.Errorf("item 1 error: got %q", resp.Items[1].Error)
	}
	if resp.Items[2].Activity.Description != "Blue ice." {
		t.Errorf("item 2 description overwritten: %q", resp.Items[2].Activity.Description)
	}
}

func TestHandleBatchBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Garbage", "not json"},
		{"NoActivities", `{"activities":[]}`},
		{"EmptyObject", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEnrichHandler(testEnrichService())
			req := httptest.NewRequest(http.MethodPost, "/api/enrich", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleBatch(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("StatusCode: got %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleStartWatch(t *testing.T) {
	h := NewEnrichHandler(testEnrichService())
	req := httptest.NewRequest(http.MethodPost, "/api/enrich/watch",
		strings.NewReader(`{"location":{"name":"Odda","region":"Vestland","country":"Norway"}}`))
	w := httptest.NewRecorder()

	h.HandleStartWatch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("StatusCode: got %d, want 200", w.Code)
	}
	var resp watchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.WatchID == "" {
		t.Error("expected a watch id")
	}
}

func TestHandleStartWatchBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Garbage", "not json"},
		{"NoLocation", `{}`},
		{"EmptyLocation", `{"location":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEnrichHandler(testEnrichService())
			req := httptest.NewRequest(http.MethodPost, "/api/enrich/watch", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			h.HandleStartWatch(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("StatusCode: got %d, want 400", w.Code)
			}
		})
	}
}

// TestWatchSocketStreamsUpdates runs the whole watch flow over a real
// server: start over HTTP, attach over the socket, drain to completion.
// Going through NewServer also proves the logging middleware passes the
// hijack through for the upgrade.
func TestWatchSocketStreamsUpdates(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := ts.Client().Post(ts.URL+"/api/enrich/watch", "application/json",
		strings.NewReader(`{"location":{"name":"Lofthus","region":"Vestland","country":"Norway"}}`))
	if err != nil {
		t.Fatalf("start watch: %v", err)
	}
	var started watchResponse
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if started.WatchID == "" {
		t.Fatal("no watch id")
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/enrich/watch?id=" + started.WatchID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var updates []watchUpdate
	for {
		var u watchUpdate
		if err := conn.ReadJSON(&u); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			t.Fatalf("read: %v", err)
		}
		updates = append(updates, u)
	}

	if len(updates) < 2 {
		t.Fatalf("updates: got %d, want at least 2", len(updates))
	}
	first, last := updates[0], updates[len(updates)-1]
	if !first.Loading || first.Progress >= last.Progress {
		t.Errorf("first update: %+v", first)
	}
	if last.Progress != 100 || last.Loading {
		t.Errorf("last update: %+v", last)
	}
	if len(last.Data.Images) == 0 {
		t.Error("final snapshot has no images")
	}

	// The consumed watch must not be replayable. The release runs as the
	// first handler unwinds, so give it a moment.
	deadline := time.Now().Add(2 * time.Second)
	for {
		c2, r2, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			if r2 == nil || r2.StatusCode != http.StatusNotFound {
				t.Fatalf("replay handshake: %v", err)
			}
			break
		}
		c2.Close()
		if time.Now().After(deadline) {
			t.Fatal("watch still replayable after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatchSocketUnknownID(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/enrich/watch?id=f2f1e9a0-dead-beef-0000-000000000000"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake status: %+v", resp)
	}
}

func TestWatchSocketRequiresID(t *testing.T) {
	h := NewEnrichHandler(testEnrichService())
	req := httptest.NewRequest(http.MethodGet, "/api/enrich/watch", http.NoBody)
	w := httptest.NewRecorder()

	h.HandleWatchSocket(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("StatusCode: got %d, want 400", w.Code)
	}
}
