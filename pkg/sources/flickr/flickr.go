// Package flickr adapts the Flickr photo directory. Used by enrichment to
// top up activity photo sets when the resolver cascade falls short of the
// target.
package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/dedup"
	"fernweh/pkg/fetch"
	"fernweh/pkg/request"
)

// fetchCount is the fixed page size requested upstream; callers with
// smaller limits share the cache entry.
const fetchCount = 20

// Client talks to the Flickr REST API.
type Client struct {
	cfg     config.FlickrConfig
	rc      *request.Client
	fetcher *fetch.Fetcher
}

// New creates a Flickr client.
func New(cfg config.FlickrConfig, rc *request.Client, f *fetch.Fetcher) *Client {
	return &Client{cfg: cfg, rc: rc, fetcher: f}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.Key != "" }

// PhotosOf searches the directory for photos of a place and returns
// direct image URLs, most relevant first, at most limit.
func (c *Client) PhotosOf(ctx context.Context, place string, limit int) ([]string, error) {
	if c.cfg.Key == "" {
		return nil, fmt.Errorf("flickr: no API key configured")
	}
	place = strings.TrimSpace(place)
	if place == "" {
		return nil, fmt.Errorf("flickr: empty place")
	}

	key := cache.Key(cache.TypeImage, "flickr", place)
	urls, err := fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeImage,
		Service: "flickr",
	}, func(ctx context.Context) ([]string, error) {
		return c.search(ctx, place)
	})
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(urls) > limit {
		urls = urls[:limit]
	}
	return urls, nil
}

// response mirrors the photos.search payload. Flickr reports errors
// in-band with stat "fail".
type response struct {
	Stat    string `json:"stat"`
	Message string `json:"message"`
	Photos  struct {
		Photo []struct {
			ID     string `json:"id"`
			Secret string `json:"secret"`
			Server string `json:"server"`
		} `json:"photo"`
	} `json:"photos"`
}

func (c *Client) search(ctx context.Context, place string) ([]string, error) {
	v := url.Values{}
	v.Set("method", "flickr.photos.search")
	v.Set("api_key", c.cfg.Key)
	v.Set("text", place)
	v.Set("sort", "relevance")
	v.Set("content_type", "1") // photos only
	v.Set("media", "photos")
	v.Set("safe_search", "1")
	v.Set("per_page", strconv.Itoa(fetchCount))
	v.Set("format", "json")
	v.Set("nojsoncallback", "1")

	body, err := c.rc.Get(ctx, c.cfg.Endpoint+"?"+v.Encode())
	if err != nil {
		return nil, fmt.Errorf("flickr search %q: %w", place, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("flickr: decode response: %w", err)
	}
	if resp.Stat != "ok" {
		return nil, fmt.Errorf("flickr: %s", resp.Message)
	}

	urls := make([]string, 0, len(resp.Photos.Photo))
	for _, p := range resp.Photos.Photo {
		if p.ID == "" || p.Secret == "" || p.Server == "" {
			continue
		}
		urls = append(urls, photoURL(p.Server, p.ID, p.Secret))
	}
	return dedup.Strings(urls), nil
}

// photoURL builds the static CDN URL for the large (1024px) size.
func photoURL(server, id, secret string) string {
	return fmt.Sprintf("https://live.staticflickr.com/%s/%s_%s_b.jpg", server, id, secret)
}
