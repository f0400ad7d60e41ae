// Package geonames adapts the GeoNames geographic database for
// nearby-place lookups. Queries are snapped to H3 tiles so every point
// within a tile shares one upstream call and one cache entry.
package geonames

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	h3 "github.com/uber/h3-go/v4"

	"fernweh/pkg/cache"
	"fernweh/pkg/config"
	"fernweh/pkg/fetch"
	"fernweh/pkg/geo"
	"fernweh/pkg/model"
	"fernweh/pkg/request"
)

// tileRes is the H3 resolution for query snapping. Resolution 7 cells are
// roughly 2.5 km across, comfortably inside the default search radius.
const tileRes = 7

// Client talks to the GeoNames web services.
type Client struct {
	cfg     config.GeoNamesConfig
	rc      *request.Client
	fetcher *fetch.Fetcher
}

// New creates a GeoNames client.
func New(cfg config.GeoNamesConfig, rc *request.Client, f *fetch.Fetcher) *Client {
	return &Client{cfg: cfg, rc: rc, fetcher: f}
}

// Configured reports whether a username is present.
func (c *Client) Configured() bool { return c.cfg.Username != "" }

// Nearby returns places around the point, closest first, with DistanceM
// filled relative to the requested coordinates. radiusM <= 0 uses the
// configured default.
func (c *Client) Nearby(ctx context.Context, lat, lon, radiusM float64) ([]model.Place, error) {
	if c.cfg.Username == "" {
		return nil, fmt.Errorf("geonames: no username configured")
	}

	radiusKM := c.radiusKM(radiusM)
	key, center, err := tileKey(lat, lon, radiusKM)
	if err != nil {
		return nil, err
	}

	places, err := fetch.JSON(ctx, c.fetcher, key, fetch.Options{
		Type:    cache.TypePOI,
		Service: "geonames",
	}, func(ctx context.Context) ([]model.Place, error) {
		// Query from the tile center, not the request point, so the
		// cached result is valid for the whole tile.
		return c.findNearby(ctx, center.Lat, center.Lng, radiusKM)
	})
	if err != nil {
		return nil, err
	}

	return withDistances(places, lat, lon), nil
}

// CachedNearby returns the cached tile result for the point, distances
// filled for the caller. Nothing is fetched on a miss.
func (c *Client) CachedNearby(ctx context.Context, lat, lon, radiusM float64) ([]model.Place, bool) {
	key, _, err := tileKey(lat, lon, c.radiusKM(radiusM))
	if err != nil {
		return nil, false
	}
	places, ok := fetch.PeekJSON[[]model.Place](ctx, c.fetcher, key, cache.TypePOI)
	if !ok {
		return nil, false
	}
	return withDistances(places, lat, lon), true
}

func (c *Client) radiusKM(radiusM float64) int {
	if radiusM <= 0 {
		radiusM = float64(c.cfg.Radius)
	}
	if radiusM <= 0 {
		radiusM = 5000
	}
	km := int(radiusM / 1000)
	if km < 1 {
		km = 1
	}
	return km
}

// tileKey snaps the point to its H3 tile and returns the cache key and
// tile center.
func tileKey(lat, lon float64, radiusKM int) (string, h3.LatLng, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lon), tileRes)
	if err != nil {
		return "", h3.LatLng{}, fmt.Errorf("geonames: tile for (%.4f, %.4f): %w", lat, lon, err)
	}
	center, err := h3.CellToLatLng(cell)
	if err != nil {
		return "", h3.LatLng{}, fmt.Errorf("geonames: center of %s: %w", cell, err)
	}
	return cache.Key(cache.TypePOI, "geonames", cell.String(), strconv.Itoa(radiusKM)), center, nil
}

// withDistances fills DistanceM relative to the caller's point and sorts
// closest first. Distances are never cached; the input slice stays as
// decoded.
func withDistances(places []model.Place, lat, lon float64) []model.Place {
	origin := geo.Point{Lat: lat, Lon: lon}
	out := make([]model.Place, len(places))
	copy(out, places)
	for i := range out {
		out[i].DistanceM = geo.Distance(origin, geo.Point{Lat: out[i].Lat, Lon: out[i].Lon})
	}
	geo.SortByDistance(out, origin, func(p model.Place) geo.Point {
		return geo.Point{Lat: p.Lat, Lon: p.Lon}
	})
	return out
}

// nearbyResponse mirrors findNearbyJSON. GeoNames reports errors in-band
// and encodes coordinates as strings.
type nearbyResponse struct {
	Status *struct {
		Message string `json:"message"`
		Value   int    `json:"value"`
	} `json:"status"`
	Geonames []struct {
		GeoNameID   int64  `json:"geonameId"`
		Name        string `json:"name"`
		FCode       string `json:"fcode"`
		CountryCode string `json:"countryCode"`
		Population  int64  `json:"population"`
		Lat         string `json:"lat"`
		Lng         string `json:"lng"`
	} `json:"geonames"`
}

func (c *Client) findNearby(ctx context.Context, lat, lon float64, radiusKM int) ([]model.Place, error) {
	maxRows := c.cfg.MaxRows
	if maxRows <= 0 {
		maxRows = 30
	}

	v := url.Values{}
	v.Set("lat", strconv.FormatFloat(lat, 'f', 5, 64))
	v.Set("lng", strconv.FormatFloat(lon, 'f', 5, 64))
	v.Set("radius", strconv.Itoa(radiusKM))
	v.Set("maxRows", strconv.Itoa(maxRows))
	v.Set("style", "FULL")
	v.Set("username", c.cfg.Username)

	endpoint := strings.TrimSuffix(c.cfg.Endpoint, "/") + "/findNearbyJSON"
	body, err := c.rc.Get(ctx, endpoint+"?"+v.Encode())
	if err != nil {
		return nil, fmt.Errorf("geonames nearby: %w", err)
	}

	var resp nearbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("geonames: decode response: %w", err)
	}
	if resp.Status != nil && resp.Status.Message != "" {
		return nil, fmt.Errorf("geonames: %s (code %d)", resp.Status.Message, resp.Status.Value)
	}

	places := make([]model.Place, 0, len(resp.Geonames))
	for _, g := range resp.Geonames {
		plat, errLat := strconv.ParseFloat(g.Lat, 64)
		plon, errLon := strconv.ParseFloat(g.Lng, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		places = append(places, model.Place{
			GeoNameID:   g.GeoNameID,
			Name:        g.Name,
			FeatureCode: g.FCode,
			CountryCode: g.CountryCode,
			Population:  g.Population,
			Lat:         plat,
			Lon:         plon,
		})
	}
	return places, nil
}
