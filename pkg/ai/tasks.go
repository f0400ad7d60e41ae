package ai

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"fernweh/pkg/cache"
	"fernweh/pkg/fetch"
	"fernweh/pkg/model"
)

// Task names passed to the provider. They identify prompts in logs and
// per-task usage stats.
const (
	TaskValidate = "validate_content"
	TaskGapFill  = "location_gapfill"
	TaskStrategy = "search_strategy"
)

const validatePrompt = `You review draft content for a travel blog. Assess this description of %s (%s) for factual plausibility, tone and usefulness to travellers.

Description:
%s

Respond with JSON: {"passed": true|false, "score": 0.0-1.0, "issues": ["..."]}. List at most three issues, or an empty list when the description passes cleanly.`

const gapFillPrompt = `Write a two-sentence travel-blog description of %s (%s). Ground every claim in the source material below; do not invent facts beyond it.

Source material:
%s

Respond with JSON: {"description": "..."}.`

const strategyPrompt = `An image search for the place below returned too few usable results. Suggest up to five alternative search terms a stock-photo search would understand: landmark names, nearby natural features, or broader scenic phrasings.

Place: %s
Region: %s
Country: %s

Respond with JSON: {"terms": ["..."]}.`

// Tasks wraps a Provider with the cached enrichment calls. Every task
// routes through the fetch gateway so results share the AI admission
// budget and their typed TTLs.
type Tasks struct {
	provider Provider
	fetcher  *fetch.Fetcher
}

// NewTasks creates the task layer over a provider.
func NewTasks(p Provider, f *fetch.Fetcher) *Tasks {
	return &Tasks{provider: p, fetcher: f}
}

// ValidateContent asks the backend whether a location description is
// publishable. The verdict is cached; a changed description re-checks
// because the key carries a digest of the text.
func (t *Tasks) ValidateContent(ctx context.Context, name, country, description string) (model.Validation, error) {
	if t.provider == nil {
		return model.Validation{}, fmt.Errorf("ai: no provider configured")
	}

	key := cache.Key(cache.TypeValidation, "gemini", name, country, digest(description))
	return fetch.JSON(ctx, t.fetcher, key, fetch.Options{
		Type:    cache.TypeValidation,
		Service: "gemini",
	}, func(ctx context.Context) (model.Validation, error) {
		prompt := fmt.Sprintf(validatePrompt, name, country, description)
		var v model.Validation
		if err := t.provider.GenerateJSON(ctx, TaskValidate, prompt, &v); err != nil {
			return model.Validation{}, fmt.Errorf("validate %s: %w", name, err)
		}
		v.CheckedAt = time.Now().UTC()
		return v, nil
	})
}

type gapFillResponse struct {
	Description string `json:"description"`
}

// FillLocationGap drafts a short description for a location that has
// none, grounded in the supplied source material (typically a wikimedia
// summary).
func (t *Tasks) FillLocationGap(ctx context.Context, name, country, material string) (string, error) {
	if t.provider == nil {
		return "", fmt.Errorf("ai: no provider configured")
	}
	if material == "" {
		return "", fmt.Errorf("ai: no source material for %s", name)
	}

	key := cache.Key(cache.TypeGapFill, "gemini", name, country, digest(material))
	out, err := fetch.JSON(ctx, t.fetcher, key, fetch.Options{
		Type:    cache.TypeGapFill,
		Service: "gemini",
	}, func(ctx context.Context) (gapFillResponse, error) {
		prompt := fmt.Sprintf(gapFillPrompt, name, country, material)
		var r gapFillResponse
		if err := t.provider.GenerateJSON(ctx, TaskGapFill, prompt, &r); err != nil {
			return gapFillResponse{}, fmt.Errorf("gap-fill %s: %w", name, err)
		}
		return r, nil
	})
	if err != nil {
		return "", err
	}
	return out.Description, nil
}

type strategyResponse struct {
	Terms []string `json:"terms"`
}

// SearchStrategy suggests alternative search terms when the image
// cascade for a place comes back sparse.
func (t *Tasks) SearchStrategy(ctx context.Context, local, regional, national string) ([]string, error) {
	if t.provider == nil {
		return nil, fmt.Errorf("ai: no provider configured")
	}

	key := cache.Key(cache.TypeStrategy, "gemini", local, regional, national)
	out, err := fetch.JSON(ctx, t.fetcher, key, fetch.Options{
		Type:    cache.TypeStrategy,
		Service: "gemini",
	}, func(ctx context.Context) (strategyResponse, error) {
		prompt := fmt.Sprintf(strategyPrompt, local, regional, national)
		var r strategyResponse
		if err := t.provider.GenerateJSON(ctx, TaskStrategy, prompt, &r); err != nil {
			return strategyResponse{}, fmt.Errorf("search strategy %s: %w", local, err)
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return out.Terms, nil
}

// digest keys free-form text without storing it.
func digest(s string) string {
	h := fnv.New64a()
	h.Write([]byte(s))
	return fmt.Sprintf("%016x", h.Sum64())
}
