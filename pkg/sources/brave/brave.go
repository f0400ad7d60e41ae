// Package brave adapts the Brave image search API, the primary image
// source of the resolver cascade.
package brave

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
	"fernweh/pkg/geo"
	"fernweh/pkg/imagery"
	"fernweh/pkg/request"
)

// fetchCount is the fixed result count requested upstream. Every query
// asks for the same count so callers with different limits share one
// cache entry; the limit is applied locally.
const fetchCount = 20

// Client implements imagery.Source against the Brave image search API.
type Client struct {
	cfg     config.BraveConfig
	rc      *request.Client
	fetcher *fetch.Fetcher
}

// New creates a Brave client.
func New(cfg config.BraveConfig, rc *request.Client, f *fetch.Fetcher) *Client {
	return &Client{cfg: cfg, rc: rc, fetcher: f}
}

// Name implements imagery.Source.
func (c *Client) Name() string { return "brave" }

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.cfg.Key != "" }

// response mirrors the fields we use of the image search payload.
type response struct {
	Results []struct {
		Title      string `json:"title"`
		Properties struct {
			URL string `json:"url"`
		} `json:"properties"`
		Thumbnail struct {
			Src string `json:"src"`
		} `json:"thumbnail"`
	} `json:"results"`
}

// SearchImages implements imagery.Source.
func (c *Client) SearchImages(ctx context.Context, q imagery.Query) ([]string, error) {
	if c.cfg.Key == "" {
		return nil, fmt.Errorf("brave: no API key configured")
	}

	term := buildTerm(q)
	key := cache.Key(cache.TypeImage, "brave", term)

	urls, err := fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeImage,
		Service: "brave",
	}, func(ctx context.Context) ([]string, error) {
		return c.search(ctx, term)
	})
	if err != nil {
		return nil, err
	}

	if q.Limit > 0 && len(urls) > q.Limit {
		urls = urls[:q.Limit]
	}
	return urls, nil
}

// CachedImages returns the cached result set for a query without
// spending search budget. A miss returns false; nothing is fetched.
func (c *Client) CachedImages(ctx context.Context, q imagery.Query) ([]string, bool) {
	key := cache.Key(cache.TypeImage, "brave", buildTerm(q))
	urls, ok := fetch.PeekJSON[[]string](ctx, c.fetcher, key, cache.TypeImage)
	if !ok {
		return nil, false
	}
	if q.Limit > 0 && len(urls) > q.Limit {
		urls = urls[:q.Limit]
	}
	return urls, true
}

// buildTerm sharpens sub-national terms with their surrounding context so
// the engine does not wander off to namesakes elsewhere. National and
// continental terms (and the generic global query) stand on their own.
func buildTerm(q imagery.Query) string {
	term := strings.TrimSpace(q.Term)
	if term == "" || strings.EqualFold(term, q.National) || geo.IsContinent(term) {
		return term
	}

	parts := []string{term}
	if q.Regional != "" && !strings.EqualFold(term, q.Regional) {
		parts = append(parts, q.Regional)
	}
	if q.National != "" {
		parts = append(parts, q.National)
	}
	return strings.Join(parts, " ")
}

func (c *Client) search(ctx context.Context, term string) ([]string, error) {
	v := url.Values{}
	v.Set("q", term)
	v.Set("count", strconv.Itoa(fetchCount))
	v.Set("safesearch", "strict")

	body, err := c.rc.GetWithHeaders(ctx, c.cfg.Endpoint+"?"+v.Encode(), map[string]string{
		"Accept":               "application/json",
		"X-Subscription-Token": c.cfg.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("brave search %q: %w", term, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("brave: decode response: %w", err)
	}

	urls := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		u := r.Properties.URL
		if u == "" {
			u = r.Thumbnail.Src
		}
		if u != "" {
			urls = append(urls, u)
		}
	}
	return dedup.Strings(urls), nil
}
