package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"fernweh/pkg/batch"
	"fernweh/pkg/dedup"
	"fernweh/pkg/imagery"
	"fernweh/pkg/model"
)

// EnrichActivities fills images and missing descriptions for a set of
// activities. Items are processed in chunks with a pause in between so a
// large import does not burn through hourly budgets; per-item failures
// land in their result slot and never abort the batch.
func (s *Service) EnrichActivities(ctx context.Context, acts []model.Activity, onProgress func(done, total int)) ([]batch.Result[model.Activity], error) {
	return batch.Process(ctx, acts, s.enrichActivity, batch.Options{
		Size:       s.cfg.BatchSize,
		Delay:      s.cfg.BatchDelay,
		OnProgress: onProgress,
	})
}

func (s *Service) enrichActivity(ctx context.Context, act model.Activity) (model.Activity, error) {
	h := hierarchyFor(act.Location)
	if h.IsZero() {
		return act, fmt.Errorf("activity %q: no location to search for", act.ID)
	}

	target := s.cfg.ImageTarget
	images := imagery.Flatten(s.deps.Resolver.Resolve(ctx, h, target), target)
	if len(images) < target {
		images = s.directoryFill(ctx, images, act.Location.PrimaryTerm(), target)
	}
	if len(images) < minViableImages {
		images = s.strategyFill(ctx, images, act.Location, target)
	}
	act.ImageURLs = images

	if act.Description == "" {
		act.Description = s.describe(ctx, act.Location)
	}
	return act, nil
}

// directoryFill tops up an image set from the photo directory. Best
// effort: on error the set is returned as it was.
func (s *Service) directoryFill(ctx context.Context, images []string, term string, target int) []string {
	if s.deps.Photos == nil || term == "" || len(images) >= target {
		return images
	}
	photos, err := s.deps.Photos.PhotosOf(ctx, term, target-len(images))
	if err != nil {
		slog.Debug("Enrich: directory fill failed", "term", term, "error", err)
		return images
	}
	merged := dedup.Strings(append(images, photos...))
	if len(merged) > target {
		merged = merged[:target]
	}
	return merged
}

// strategyFill asks the assistant for alternative search terms when the
// cascade came back sparse, and feeds them to the photo directory.
func (s *Service) strategyFill(ctx context.Context, images []string, loc model.Location, target int) []string {
	if s.deps.Assistant == nil || s.deps.Photos == nil {
		return images
	}
	terms, err := s.deps.Assistant.SearchStrategy(ctx, loc.PrimaryTerm(), loc.Region, loc.Country)
	if err != nil {
		slog.Debug("Enrich: no search strategy", "location", loc.PrimaryTerm(), "error", err)
		return images
	}
	for _, term := range terms {
		if len(images) >= target {
			break
		}
		images = s.directoryFill(ctx, images, term, target)
	}
	return images
}

// describe drafts a description from encyclopedia material. When the
// assistant is unavailable or fails, the raw summary is better than
// nothing; when there is no material at all, the description stays empty.
func (s *Service) describe(ctx context.Context, loc model.Location) string {
	term := loc.PrimaryTerm()
	if s.deps.Summaries == nil || term == "" {
		return ""
	}
	material, err := s.deps.Summaries.Summary(ctx, term)
	if err != nil || material == "" {
		slog.Debug("Enrich: no summary material", "term", term, "error", err)
		return ""
	}
	if s.deps.Assistant == nil {
		return material
	}
	desc, err := s.deps.Assistant.FillLocationGap(ctx, term, loc.Country, material)
	if err != nil {
		slog.Debug("Enrich: gap fill failed", "term", term, "error", err)
		return material
	}
	return desc
}
