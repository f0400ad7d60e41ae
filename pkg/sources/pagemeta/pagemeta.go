// Package pagemeta extracts social-preview images from arbitrary web
// pages: og:image and twitter:image meta tags plus the older
// <link rel="image_src"> form. Pages are untrusted input, so the body
// read is capped and the tokenizer stops once the head closes.
package pagemeta

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"fernweh/pkg/cache"
	"fernweh/pkg/dedup"
	"fernweh/pkg/fetch"
	"fernweh/pkg/request"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// metaImageKeys are the meta property/name values that carry a preview
// image URL in their content attribute.
var metaImageKeys = map[string]bool{
	"og:image":            true,
	"og:image:url":        true,
	"og:image:secure_url": true,
	"twitter:image":       true,
	"twitter:image:src":   true,
}

// Client fetches pages and extracts their preview images.
type Client struct {
	rc      *request.Client
	fetcher *fetch.Fetcher
}

// New creates a pagemeta client.
func New(rc *request.Client, f *fetch.Fetcher) *Client {
	return &Client{rc: rc, fetcher: f}
}

// Extract returns the preview image URLs declared in the head of the
// page at pageURL, absolutized and in document order.
func (c *Client) Extract(ctx context.Context, pageURL string) ([]string, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return nil, fmt.Errorf("pagemeta: invalid url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("pagemeta: unsupported url %q", pageURL)
	}

	// Page URLs are case-sensitive and unbounded, so the cache key
	// carries a digest instead of the raw URL.
	key := cache.Key(cache.TypeImage, "pagemeta", hashURL(base.String()))
	return fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeImage,
		Service: "pagemeta",
	}, func(ctx context.Context) ([]string, error) {
		body, err := c.rc.GetCapped(ctx, base.String(), maxBodyBytes)
		if err != nil {
			return nil, fmt.Errorf("pagemeta: fetch %s: %w", base.Host, err)
		}
		return extract(body, base), nil
	})
}

// extract tokenizes the page head and collects candidate image URLs.
// Truncated input is fine: the tokenizer stops at the cut.
func extract(body []byte, base *url.URL) []string {
	z := html.NewTokenizer(bytes.NewReader(body))
	var candidates []string

	for {
		switch z.Next() {
		case html.ErrorToken:
			return absolutize(candidates, base)
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "head" {
				return absolutize(candidates, base)
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			attrs := tagAttrs(z)
			switch string(name) {
			case "meta":
				key := attrs["property"]
				if key == "" {
					key = attrs["name"]
				}
				if metaImageKeys[strings.ToLower(key)] && attrs["content"] != "" {
					candidates = append(candidates, attrs["content"])
				}
			case "link":
				if strings.EqualFold(attrs["rel"], "image_src") && attrs["href"] != "" {
					candidates = append(candidates, attrs["href"])
				}
			case "base":
				if href := attrs["href"]; href != "" {
					if bu, err := url.Parse(href); err == nil {
						base = base.ResolveReference(bu)
					}
				}
			}
		}
	}
}

func tagAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string)
	for {
		k, v, more := z.TagAttr()
		key := strings.ToLower(string(k))
		if _, seen := attrs[key]; !seen {
			attrs[key] = strings.TrimSpace(string(v))
		}
		if !more {
			return attrs
		}
	}
}

func absolutize(candidates []string, base *url.URL) []string {
	urls := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		u, err := url.Parse(strings.TrimSpace(cand))
		if err != nil {
			continue
		}
		abs := base.ResolveReference(u)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			continue
		}
		urls = append(urls, abs.String())
	}
	return dedup.Strings(urls)
}

func hashURL(u string) string {
	h := fnv.New64a()
	h.Write([]byte(u))
	return fmt.Sprintf("%016x", h.Sum64())
}
