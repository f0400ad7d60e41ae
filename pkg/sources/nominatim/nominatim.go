// Package nominatim adapts the OSM Nominatim geocoder. The public
// instance allows at most one request per second, so on top of the hourly
// admission gate every network call waits on a local pacer.
package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/fetch"
	"fernweh/pkg/model"
	"fernweh/pkg/request"
)

// ErrNoResults marks a query the geocoder could not match. Callers can
// distinguish it from transport failures.
var ErrNoResults = errors.New("nominatim: no results")

// Client talks to a Nominatim instance.
type Client struct {
	cfg     config.NominatimConfig
	rc      *request.Client
	fetcher *fetch.Fetcher
	pace    *rate.Limiter
}

// New creates a Nominatim client.
func New(cfg config.NominatimConfig, rc *request.Client, f *fetch.Fetcher) *Client {
	return &Client{
		cfg:     cfg,
		rc:      rc,
		fetcher: f,
		// Usage policy of the public instance: 1 request/second.
		pace: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// place mirrors a jsonv2 result. Coordinates come back as strings.
type place struct {
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
	Address     struct {
		Village      string `json:"village"`
		Town         string `json:"town"`
		City         string `json:"city"`
		Hamlet       string `json:"hamlet"`
		Municipality string `json:"municipality"`
		County       string `json:"county"`
		State        string `json:"state"`
		Country      string `json:"country"`
	} `json:"address"`
}

func (p place) toResult() (model.GeocodeResult, error) {
	lat, errLat := strconv.ParseFloat(p.Lat, 64)
	lon, errLon := strconv.ParseFloat(p.Lon, 64)
	if errLat != nil || errLon != nil {
		return model.GeocodeResult{}, fmt.Errorf("nominatim: unparsable coordinates %q,%q", p.Lat, p.Lon)
	}

	settlement := p.Address.Village
	for _, alt := range []string{p.Address.Town, p.Address.City, p.Address.Hamlet} {
		if settlement == "" {
			settlement = alt
		}
	}

	return model.GeocodeResult{
		DisplayName: p.DisplayName,
		Lat:         lat,
		Lon:         lon,
		Class:       p.Category,
		Type:        p.Type,
		Importance:  p.Importance,
		Village:     settlement,
		County:      p.Address.County,
		State:       p.Address.State,
		Country:     p.Address.Country,
	}, nil
}

// Geocode resolves a free-form query to its best match.
func (c *Client) Geocode(ctx context.Context, query string) (model.GeocodeResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return model.GeocodeResult{}, fmt.Errorf("nominatim: empty query")
	}

	key := cache.Key(cache.TypeLocation, "nominatim", "search", query)
	return fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeLocation,
		Service: "nominatim",
	}, func(ctx context.Context) (model.GeocodeResult, error) {
		return c.search(ctx, query)
	})
}

func (c *Client) search(ctx context.Context, query string) (model.GeocodeResult, error) {
	v := url.Values{}
	v.Set("q", query)
	v.Set("format", "jsonv2")
	v.Set("limit", "5")
	v.Set("addressdetails", "1")
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}

	body, err := c.get(ctx, "/search", v)
	if err != nil {
		return model.GeocodeResult{}, fmt.Errorf("nominatim search %q: %w", query, err)
	}

	var places []place
	if err := json.Unmarshal(body, &places); err != nil {
		return model.GeocodeResult{}, fmt.Errorf("nominatim: decode response: %w", err)
	}

	// Results come ranked; take the first one with usable coordinates.
	for _, p := range places {
		if res, err := p.toResult(); err == nil {
			return res, nil
		}
	}
	return model.GeocodeResult{}, fmt.Errorf("%w for %q", ErrNoResults, query)
}

// Reverse resolves coordinates to the containing place.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (model.GeocodeResult, error) {
	latStr := strconv.FormatFloat(lat, 'f', 5, 64)
	lonStr := strconv.FormatFloat(lon, 'f', 5, 64)

	key := cache.Key(cache.TypeLocation, "nominatim", "reverse", latStr, lonStr)
	return fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypeLocation,
		Service: "nominatim",
	}, func(ctx context.Context) (model.GeocodeResult, error) {
		return c.reverse(ctx, latStr, lonStr)
	})
}

func (c *Client) reverse(ctx context.Context, latStr, lonStr string) (model.GeocodeResult, error) {
	v := url.Values{}
	v.Set("lat", latStr)
	v.Set("lon", lonStr)
	v.Set("format", "jsonv2")
	v.Set("addressdetails", "1")
	v.Set("zoom", "14") // settlement granularity
	if c.cfg.Email != "" {
		v.Set("email", c.cfg.Email)
	}

	body, err := c.get(ctx, "/reverse", v)
	if err != nil {
		return model.GeocodeResult{}, fmt.Errorf("nominatim reverse: %w", err)
	}

	// Reverse returns a single object; errors come in-band.
	var single struct {
		place
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &single); err != nil {
		return model.GeocodeResult{}, fmt.Errorf("nominatim: decode response: %w", err)
	}
	if single.Error != "" {
		return model.GeocodeResult{}, fmt.Errorf("%w: %s", ErrNoResults, single.Error)
	}
	return single.toResult()
}

func (c *Client) get(ctx context.Context, path string, v url.Values) ([]byte, error) {
	if err := c.pace.Wait(ctx); err != nil {
		return nil, err
	}
	endpoint := strings.TrimSuffix(c.cfg.Endpoint, "/") + path
	return c.rc.Get(ctx, endpoint+"?"+v.Encode())
}
