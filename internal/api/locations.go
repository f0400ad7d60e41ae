package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fernweh/pkg/model"
	"fernweh/pkg/sources/nominatim"
)

// Geocoder resolves free-text queries and coordinates to places.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (model.GeocodeResult, error)
	Reverse(ctx context.Context, lat, lon float64) (model.GeocodeResult, error)
}

// PlaceFinder looks up named places around a coordinate.
type PlaceFinder interface {
	Nearby(ctx context.Context, lat, lon, radiusM float64) ([]model.Place, error)
}

// LocationsHandler serves geocoding and nearby-place lookups.
type LocationsHandler struct {
	geocoder Geocoder
	places   PlaceFinder
}

func NewLocationsHandler(geocoder Geocoder, places PlaceFinder) *LocationsHandler {
	return &LocationsHandler{geocoder: geocoder, places: places}
}

type nearbyPlacesResponse struct {
	Lat    float64       `json:"lat"`
	Lon    float64       `json:"lon"`
	Places []model.Place `json:"places"`
}

// HandleNearby returns places around a point, closest first.
// GET /api/locations/nearby?lat=..&lon=..[&radius=..][&limit=..]
func (h *LocationsHandler) HandleNearby(w http.ResponseWriter, r *http.Request) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	lon, err := parseFloatParam(r, "lon")
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	radius := 0.0
	if s := r.URL.Query().Get("radius"); s != "" {
		radius, err = strconv.ParseFloat(s, 64)
		if err != nil || radius < 0 {
			writeBadRequest(w, "invalid radius")
			return
		}
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
	}

	places, err := h.places.Nearby(r.Context(), lat, lon, radius)
	if err != nil {
		writeError(w, err)
		return
	}
	if limit > 0 && len(places) > limit {
		places = places[:limit]
	}
	if places == nil {
		places = []model.Place{}
	}
	writeJSON(w, http.StatusOK, nearbyPlacesResponse{Lat: lat, Lon: lon, Places: places})
}

// geocodeRequest carries either a free-text query (forward) or a
// coordinate pair (reverse).
type geocodeRequest struct {
	Query string   `json:"query,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Lon   *float64 `json:"lon,omitempty"`
}

// HandleGeocode resolves a query or coordinate pair to a place.
// POST /api/geocode with {"query": "..."} or {"lat": .., "lon": ..}
func (h *LocationsHandler) HandleGeocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	var (
		result model.GeocodeResult
		err    error
	)
	switch {
	case strings.TrimSpace(req.Query) != "":
		result, err = h.geocoder.Geocode(r.Context(), req.Query)
	case req.Lat != nil && req.Lon != nil:
		result, err = h.geocoder.Reverse(r.Context(), *req.Lat, *req.Lon)
	default:
		writeBadRequest(w, "query or lat/lon is required")
		return
	}

	if err != nil {
		if errors.Is(err, nominatim.ErrNoResults) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
