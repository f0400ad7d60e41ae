package flickr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"fernweh/pkg/config"
	"fernweh/pkg/fetch"
	"fernweh/pkg/request"
	"fernweh/pkg/tracker"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	rc := request.New(tracker.New(), request.Config{Retries: 1})
	return New(config.FlickrConfig{Endpoint: srv.URL, Key: "test-key"}, rc, fetch.New(nil, nil, nil))
}

func TestPhotosOf(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("method"); got != "flickr.photos.search" {
			t.Errorf("method = %q", got)
		}
		if got := q.Get("text"); got != "Vøringsfossen" {
			t.Errorf("text = %q", got)
		}
		if got := q.Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q", got)
		}
		w.Write([]byte(`{"stat":"ok","photos":{"photo":[
			{"id":"101","secret":"aaa","server":"65535"},
			{"id":"102","secret":"bbb","server":"65535"},
			{"id":"","secret":"ccc","server":"65535"},
			{"id":"103","secret":"ddd","server":"65040"}
		]}}`))
	})

	urls, err := c.PhotosOf(context.Background(), "Vøringsfossen", 10)
	if err != nil {
		t.Fatalf("PhotosOf: %v", err)
	}

	want := []string{
		"https://live.staticflickr.com/65535/101_aaa_b.jpg",
		"https://live.staticflickr.com/65535/102_bbb_b.jpg",
		"https://live.staticflickr.com/65040/103_ddd_b.jpg",
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

func TestPhotosOfLimit(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat":"ok","photos":{"photo":[
			{"id":"1","secret":"a","server":"1"},
			{"id":"2","secret":"b","server":"1"},
			{"id":"3","secret":"c","server":"1"}
		]}}`))
	})

	urls, err := c.PhotosOf(context.Background(), "Odda", 2)
	if err != nil {
		t.Fatalf("PhotosOf: %v", err)
	}
	if len(urls) != 2 {
		t.Errorf("got %d urls, want 2", len(urls))
	}
}

func TestPhotosOfAPIError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stat":"fail","code":100,"message":"Invalid API Key"}`))
	})

	_, err := c.PhotosOf(context.Background(), "Odda", 5)
	if err == nil {
		t.Fatal("expected error for stat=fail")
	}
}

func TestPhotosOfNoKey(t *testing.T) {
	rc := request.New(tracker.New(), request.Config{})
	c := New(config.FlickrConfig{Endpoint: "http://unused"}, rc, fetch.New(nil, nil, nil))

	if _, err := c.PhotosOf(context.Background(), "Odda", 5); err == nil {
		t.Fatal("expected error without API key")
	}
}
