package enrich

import (
	"context"
	"log/slog"

	"fernweh/pkg/dedup"
	"fernweh/pkg/imagery"
	"fernweh/pkg/model"
	"fernweh/pkg/progressive"
)

// LoadLocation assembles a location page in stages: first whatever is
// already cached, then the full resolve, then the AI verdict. Each stage
// is emitted through onUpdate; the best content reached is returned even
// when a later stage fails.
func (s *Service) LoadLocation(ctx context.Context, loc model.Location, onUpdate func(progressive.Update[model.LocationContent])) (model.LocationContent, error) {
	if onUpdate == nil {
		onUpdate = func(progressive.Update[model.LocationContent]) {}
	}
	stages := progressive.Stages[model.LocationContent]{
		Immediate: func(ctx context.Context) (model.LocationContent, error) {
			return s.immediateContent(ctx, loc), nil
		},
		Enhanced: func(ctx context.Context, prev model.LocationContent) (model.LocationContent, error) {
			return s.enhancedContent(ctx, loc, prev), nil
		},
	}
	if s.deps.Assistant != nil {
		stages.Validated = func(ctx context.Context, prev model.LocationContent) (model.LocationContent, error) {
			return s.validatedContent(ctx, loc, prev)
		}
	}
	return progressive.Run(ctx, stages, onUpdate)
}

// immediateContent fills the page from caches only. No budget is spent;
// whatever is missing arrives with the enhanced stage.
func (s *Service) immediateContent(ctx context.Context, loc model.Location) model.LocationContent {
	content := model.LocationContent{Location: loc, Images: []string{}}

	if s.deps.Peek != nil {
		h := hierarchyFor(loc)
		var urls []string
		for _, lt := range h.Levels() {
			cached, ok := s.deps.Peek.CachedImages(ctx, imagery.Query{
				Term:     lt.Term,
				National: h.National,
				Regional: h.Regional,
				Limit:    imagery.DefaultMaxPerLevel,
			})
			if !ok {
				continue
			}
			urls = append(urls, cached...)
			if len(urls) >= s.cfg.ImageTarget {
				break
			}
		}
		urls = dedup.Strings(urls)
		if len(urls) > s.cfg.ImageTarget {
			urls = urls[:s.cfg.ImageTarget]
		}
		content.Images = urls
	}

	if s.deps.Summaries != nil {
		if summary, ok := s.deps.Summaries.CachedSummary(ctx, loc.PrimaryTerm()); ok {
			content.Description = summary
		}
	}
	if s.deps.Nearby != nil && loc.HasCoords() {
		if places, ok := s.deps.Nearby.CachedNearby(ctx, loc.Lat, loc.Lon, 0); ok {
			content.Nearby = places
		}
	}
	return content
}

// enhancedContent runs the full lookups, keeping anything the immediate
// stage already found when a lookup fails or comes back empty.
func (s *Service) enhancedContent(ctx context.Context, loc model.Location, prev model.LocationContent) model.LocationContent {
	content := prev

	h := hierarchyFor(loc)
	if s.deps.Resolver != nil && !h.IsZero() {
		images := imagery.Flatten(s.deps.Resolver.Resolve(ctx, h, s.cfg.ImageTarget), s.cfg.ImageTarget)
		if len(images) > 0 {
			content.Images = images
		}
	}
	if content.Description == "" {
		content.Description = s.describe(ctx, loc)
	}
	if s.deps.Nearby != nil && loc.HasCoords() {
		places, err := s.deps.Nearby.Nearby(ctx, loc.Lat, loc.Lon, 0)
		if err != nil {
			slog.Debug("Enrich: nearby lookup failed", "location", loc.PrimaryTerm(), "error", err)
		} else {
			content.Nearby = places
		}
	}
	return content
}

// validatedContent attaches the AI verdict to the description. A page
// without a description has nothing to check and passes through.
func (s *Service) validatedContent(ctx context.Context, loc model.Location, prev model.LocationContent) (model.LocationContent, error) {
	if prev.Description == "" {
		return prev, nil
	}
	verdict, err := s.deps.Assistant.ValidateContent(ctx, loc.PrimaryTerm(), loc.Country, prev.Description)
	if err != nil {
		return prev, err
	}
	content := prev
	content.Validation = &verdict
	return content, nil
}
