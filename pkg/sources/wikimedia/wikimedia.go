// Package wikimedia adapts the MediaWiki API as the community-sourced
// fallback image source and as a text source for location summaries.
package wikimedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/dedup"
	"fernweh/pkg/fetch"
	"fernweh/pkg/imagery"
	"fernweh/pkg/request"
)

// fetchCount is the fixed page count requested per search so callers with
// different limits share one cache entry.
const fetchCount = 10

// thumbSize is the requested thumbnail width in pixels.
const thumbSize = 800

// Client talks to the MediaWiki API.
type Client struct {
	cfg     config.WikimediaConfig
	rc      *request.Client
	fetcher *fetch.Fetcher
}

// New creates a Wikimedia client.
func New(cfg config.WikimediaConfig, rc *request.Client, f *fetch.Fetcher) *Client {
	return &Client{cfg: cfg, rc: rc, fetcher: f}
}

// Name implements imagery.Source.
func (c *Client) Name() string { return "wikimedia" }

func (c *Client) endpoint() string {
	if c.cfg.Endpoint != "" {
		return c.cfg.Endpoint
	}
	lang := c.cfg.Language
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
}

// SearchImages implements imagery.Source. Wikipedia article titles are
// already canonical, so unlike the primary engine the query is the bare
// term without geographic context.
func (c *Client) SearchImages(ctx context.Context, q imagery.Query) ([]string, error) {
	term := strings.TrimSpace(q.Term)
	if term == "" {
		return nil, fmt.Errorf("wikimedia: empty search term")
	}

	key := cache.Key(cache.TypeImage, "wikimedia", term)
	urls, err := fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeImage,
		Service: "wikimedia",
	}, func(ctx context.Context) ([]string, error) {
		return c.searchImages(ctx, term)
	})
	if err != nil {
		return nil, err
	}

	if q.Limit > 0 && len(urls) > q.Limit {
		urls = urls[:q.Limit]
	}
	return urls, nil
}

func (c *Client) searchImages(ctx context.Context, term string) ([]string, error) {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("generator", "search")
	v.Set("gsrsearch", term)
	v.Set("gsrnamespace", "0")
	v.Set("gsrlimit", strconv.Itoa(fetchCount))
	v.Set("prop", "pageimages")
	v.Set("piprop", "thumbnail")
	v.Set("pithumbsize", strconv.Itoa(thumbSize))
	v.Set("format", "json")
	v.Set("redirects", "1")

	body, err := c.rc.Get(ctx, c.endpoint()+"?"+v.Encode())
	if err != nil {
		return nil, fmt.Errorf("wikimedia search %q: %w", term, err)
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Index     int    `json:"index"`
				Title     string `json:"title"`
				Thumbnail struct {
					Source string `json:"source"`
					Width  int    `json:"width"`
					Height int    `json:"height"`
				} `json:"thumbnail"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("wikimedia: decode response: %w", err)
	}

	// The pages object is a map; search rank lives in the index field.
	type thumb struct {
		index  int
		source string
		width  int
		height int
	}
	thumbs := make([]thumb, 0, len(resp.Query.Pages))
	for _, p := range resp.Query.Pages {
		if p.Thumbnail.Source == "" {
			continue
		}
		thumbs = append(thumbs, thumb{p.Index, p.Thumbnail.Source, p.Thumbnail.Width, p.Thumbnail.Height})
	}
	sort.Slice(thumbs, func(i, j int) bool { return thumbs[i].index < thumbs[j].index })

	urls := make([]string, 0, len(thumbs))
	for _, t := range thumbs {
		if isUnwantedImage(t.source) {
			continue
		}
		// Portrait-shaped images are almost never landscape photography.
		if t.width > 0 && float64(t.height) > float64(t.width)*1.3 {
			continue
		}
		urls = append(urls, t.source)
	}
	return dedup.Strings(urls), nil
}

// Summary fetches the plain-text intro of an article. Used as description
// context for locations that lack one.
func (c *Client) Summary(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("wikimedia: empty title")
	}

	key := cache.Key(cache.TypeLocation, "wikimedia", "summary", title)
	return fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeLocation,
		Service: "wikimedia",
	}, func(ctx context.Context) (string, error) {
		return c.fetchSummary(ctx, title)
	})
}

// CachedSummary returns the cached article intro for title, if present.
// Nothing is fetched on a miss.
func (c *Client) CachedSummary(ctx context.Context, title string) (string, bool) {
	key := cache.Key(cache.TypeLocation, "wikimedia", "summary", title)
	s, ok := fetch.PeekJSON[string](ctx, c.fetcher, key, cache.TypeLocation)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func (c *Client) fetchSummary(ctx context.Context, title string) (string, error) {
	v := url.Values{}
	v.Set("action", "query")
	v.Set("prop", "extracts")
	v.Set("exintro", "1")
	v.Set("explaintext", "1")
	v.Set("titles", title)
	v.Set("format", "json")
	v.Set("redirects", "1")

	body, err := c.rc.Get(ctx, c.endpoint()+"?"+v.Encode())
	if err != nil {
		return "", fmt.Errorf("wikimedia summary %q: %w", title, err)
	}

	var resp struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("wikimedia: decode response: %w", err)
	}

	for _, page := range resp.Query.Pages {
		if page.Extract != "" {
			return strings.TrimSpace(page.Extract), nil
		}
	}
	return "", fmt.Errorf("wikimedia: no article for %q", title)
}

// isUnwantedImage rejects vector graphics, icons, maps and other images
// that are technically on the page but useless as location imagery.
func isUnwantedImage(name string) bool {
	lower := strings.ToLower(name)

	for _, ext := range []string{".svg", ".svg.png", ".gif", ".tif", ".ogv", ".webm"} {
		if strings.Contains(lower, ext) {
			return true
		}
	}

	keywords := []string{
		"logo", "icon", "flag", "coat_of_arms", "coat of arms", "wappen",
		"insignia", "locator", "diagram", "chart", "stub", "placeholder",
		"collage", "montage", "signature", "seal",
	}
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	// "map" needs word-ish boundaries: "Map_of_Norway" yes, "maple" no.
	if strings.Contains(lower, "map_") || strings.Contains(lower, "_map") ||
		strings.Contains(lower, "map of") {
		return true
	}

	return false
}
