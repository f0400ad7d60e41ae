package enrich

import (
	"context"
	"fmt"
	"sync"

	"fernweh/pkg/imagery"
	"fernweh/pkg/model"
)

// Fakes for the service's collaborators. All are safe for the
// concurrent calls a batch chunk makes.

type fakeResolver struct {
	mu      sync.Mutex
	results []imagery.Result
	calls   int
	target  int
	last    imagery.Hierarchy
}

func (f *fakeResolver) Resolve(_ context.Context, h imagery.Hierarchy, target int) []imagery.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = h
	f.target = target
	return f.results
}

type fakePeek struct {
	byTerm map[string][]string
}

func (f *fakePeek) CachedImages(_ context.Context, q imagery.Query) ([]string, bool) {
	urls, ok := f.byTerm[q.Term]
	return urls, ok
}

type fakePhotos struct {
	mu     sync.Mutex
	byTerm map[string][]string
	err    error
	terms  []string
}

func (f *fakePhotos) PhotosOf(_ context.Context, place string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terms = append(f.terms, place)
	if f.err != nil {
		return nil, f.err
	}
	photos := f.byTerm[place]
	if len(photos) > limit {
		photos = photos[:limit]
	}
	return photos, nil
}

type fakeSummaries struct {
	mu      sync.Mutex
	summary string
	err     error
	cached  map[string]string
	calls   int
}

func (f *fakeSummaries) Summary(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeSummaries) CachedSummary(_ context.Context, title string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.cached[title]
	return s, ok
}

type fakeNearby struct {
	mu     sync.Mutex
	places []model.Place
	cached []model.Place
	err    error
	calls  int
}

func (f *fakeNearby) Nearby(_ context.Context, lat, lon, radiusM float64) ([]model.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

func (f *fakeNearby) CachedNearby(_ context.Context, lat, lon, radiusM float64) ([]model.Place, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached == nil {
		return nil, false
	}
	return f.cached, true
}

type fakeAssistant struct {
	mu sync.Mutex

	verdict       model.Validation
	validateErr   error
	validateCalls int

	gapText  string
	gapErr   error
	gapCalls int

	terms         []string
	strategyErr   error
	strategyCalls int
}

func (f *fakeAssistant) ValidateContent(_ context.Context, name, country, description string) (model.Validation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validateCalls++
	if f.validateErr != nil {
		return model.Validation{}, f.validateErr
	}
	return f.verdict, nil
}

func (f *fakeAssistant) FillLocationGap(_ context.Context, name, country, material string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gapCalls++
	if f.gapErr != nil {
		return "", f.gapErr
	}
	return f.gapText, nil
}

func (f *fakeAssistant) SearchStrategy(_ context.Context, local, regional, national string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strategyCalls++
	if f.strategyErr != nil {
		return nil, f.strategyErr
	}
	return f.terms, nil
}

func imgs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://img.example/%s-%d.jpg", prefix, i)
	}
	return out
}

func lofthusActivity(id string) model.Activity {
	return model.Activity{
		ID:    id,
		Title: "Fruit farm walk",
		Location: model.Location{
			Name:    "Lofthus",
			County:  "Ullensvang",
			Region:  "Vestland",
			Country: "Norway",
			Lat:     60.3261,
			Lon:     6.6640,
		},
	}
}
