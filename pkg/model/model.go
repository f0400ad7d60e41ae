package model

import (
	"time"
)

// Location represents the geographic context of a blog post or activity.
// The administrative fields mirror the specificity ladder used by the
// image resolver; unset fields are skipped, never searched as empty strings.
type Location struct {
	Name     string `json:"name"`     // settlement / local name, e.g. "Lofthus"
	District string `json:"district"` // sub-county district, where the country has one
	County   string `json:"county"`   // e.g. "Ullensvang"
	Region   string `json:"region"`   // state / province, e.g. "Vestland"
	Country  string `json:"country"`  // e.g. "Norway"

	// Continent is derived from Country when empty.
	Continent string `json:"continent,omitempty"`

	// Coordinates (0,0 = unknown)
	Lat float64 `json:"lat,omitempty"`
	Lon float64 `json:"lon,omitempty"`
}

// PrimaryTerm returns the most specific non-empty term of the location.
// Priority: Name > District > County > Region > Country.
func (l Location) PrimaryTerm() string {
	for _, t := range []string{l.Name, l.District, l.County, l.Region, l.Country} {
		if t != "" {
			return t
		}
	}
	return ""
}

// HasCoords reports whether the location carries usable coordinates.
func (l Location) HasCoords() bool {
	return l.Lat != 0 || l.Lon != 0
}

// Activity represents one trip activity queued for enrichment.
type Activity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    Location `json:"location"`

	// Enrichment output
	ImageURLs []string `json:"image_urls,omitempty"`
}

// Place represents a nearby point of interest from the geographic database.
type Place struct {
	GeoNameID   int64   `json:"geoname_id"`
	Name        string  `json:"name"`
	FeatureCode string  `json:"feature_code"` // e.g. "PPL", "CSTL", "MT"
	CountryCode string  `json:"country_code"`
	Population  int64   `json:"population,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`

	// Distance from the query point, meters. Filled by the caller.
	DistanceM float64 `json:"distance_m"`
}

// GeocodeResult represents a normalized geocoder response.
type GeocodeResult struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Class       string  `json:"class"` // e.g. "place", "boundary"
	Type        string  `json:"type"`  // e.g. "village", "administrative"
	Importance  float64 `json:"importance"`

	// Address breakdown, as far as the geocoder provides it.
	Village string `json:"village,omitempty"`
	County  string `json:"county,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Validation represents the AI content-validation verdict for a location.
type Validation struct {
	Passed    bool      `json:"passed"`
	Score     float64   `json:"score"` // 0.0 - 1.0
	Issues    []string  `json:"issues,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// LocationContent is the progressively assembled payload for a location
// page: the immediate stage fills what is already cached, the enhanced
// stage runs the full resolver, the validated stage adds the AI verdict.
type LocationContent struct {
	Location    Location    `json:"location"`
	Description string      `json:"description,omitempty"`
	Images      []string    `json:"images"`
	Nearby      []Place     `json:"nearby,omitempty"`
	Validation  *Validation `json:"validation,omitempty"`
}

// Usage holds per-service request counters for a single day.
type Usage struct {
	Service     string `json:"service"`
	Success     int64  `json:"success"`
	Failure     int64  `json:"failure"`
	RateLimited int64  `json:"rateLimited"`
}
