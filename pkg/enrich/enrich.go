// Package enrich composes the acquisition layer into the operations the
// blog platform calls: batch activity enrichment, progressive location
// loading and the watch plumbing that streams loads to clients.
package enrich

import (
	"context"
	"time"

	"fernweh/pkg/apisession"
	"fernweh/pkg/imagery"
	"fernweh/pkg/model"
)

// minViableImages is the floor below which a result set counts as
// sparse and the assistant is asked for alternative search terms.
const minViableImages = 3

// ImageResolver runs the hierarchical image cascade.
type ImageResolver interface {
	Resolve(ctx context.Context, h imagery.Hierarchy, target int) []imagery.Result
}

// ImagePeeker reads the primary image source's cache without fetching.
type ImagePeeker interface {
	CachedImages(ctx context.Context, q imagery.Query) ([]string, bool)
}

// PhotoDirectory searches a photo service for a free-form term.
type PhotoDirectory interface {
	PhotosOf(ctx context.Context, place string, limit int) ([]string, error)
}

// Summarizer provides encyclopedia summaries, with a cached-only peek.
type Summarizer interface {
	Summary(ctx context.Context, title string) (string, error)
	CachedSummary(ctx context.Context, title string) (string, bool)
}

// NearbyFinder returns places around a coordinate, with a cached-only peek.
type NearbyFinder interface {
	Nearby(ctx context.Context, lat, lon, radiusM float64) ([]model.Place, error)
	CachedNearby(ctx context.Context, lat, lon, radiusM float64) ([]model.Place, bool)
}

// Assistant is the subset of AI tasks enrichment uses.
type Assistant interface {
	ValidateContent(ctx context.Context, name, country, description string) (model.Validation, error)
	FillLocationGap(ctx context.Context, name, country, material string) (string, error)
	SearchStrategy(ctx context.Context, local, regional, national string) ([]string, error)
}

// Config tunes enrichment runs. Zero values fall back to defaults.
type Config struct {
	BatchSize   int           // activities per chunk
	BatchDelay  time.Duration // pause between chunks
	ImageTarget int           // images per activity / location
}

func (c *Config) applyDefaults() {
	if c.ImageTarget <= 0 {
		c.ImageTarget = imagery.DefaultTargetCount
	}
}

// Deps are the collaborators of the enrichment service. Resolver is
// required for image work; everything else is optional and its absence
// degrades the corresponding feature.
type Deps struct {
	Resolver  ImageResolver
	Peek      ImagePeeker
	Photos    PhotoDirectory
	Summaries Summarizer
	Nearby    NearbyFinder
	Assistant Assistant
}

// Service runs enrichment operations.
type Service struct {
	cfg     Config
	deps    Deps
	watches *apisession.Store[Watch]
}

// New creates the enrichment service.
func New(cfg Config, deps Deps) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:     cfg,
		deps:    deps,
		watches: apisession.New(watchTTL, newWatch),
	}
}

// hierarchyFor maps a location onto the resolver's specificity ladder.
func hierarchyFor(loc model.Location) imagery.Hierarchy {
	return imagery.Hierarchy{
		Local:       loc.Name,
		District:    loc.District,
		County:      loc.County,
		Regional:    loc.Region,
		National:    loc.Country,
		Continental: loc.Continent,
	}
}
