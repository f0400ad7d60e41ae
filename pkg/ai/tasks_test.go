package ai

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"fernweh/pkg/cache"
	"fernweh/pkg/db"
	"fernweh/pkg/fetch"
	"fernweh/pkg/store"
	"fernweh/pkg/tracker"
)

type fakeProvider struct {
	response string
	err      error
	tasks    []string
	prompts  []string
}

func (f *fakeProvider) GenerateText(_ context.Context, task, prompt string) (string, error) {
	f.tasks = append(f.tasks, task)
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func (f *fakeProvider) GenerateJSON(_ context.Context, task, prompt string, target any) error {
	f.tasks = append(f.tasks, task)
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.response), target)
}

func (f *fakeProvider) HealthCheck(context.Context) error { return f.err }

func cachedFetcher(t *testing.T) *fetch.Fetcher {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "ai_test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	tiers := cache.NewTiers(cache.NewMemory(), store.NewSQLiteStore(d))
	return fetch.New(tiers, nil, tracker.New())
}

func TestValidateContent(t *testing.T) {
	p := &fakeProvider{response: `{"passed": true, "score": 0.92, "issues": []}`}
	tasks := NewTasks(p, fetch.New(nil, nil, nil))

	v, err := tasks.ValidateContent(context.Background(), "Lofthus", "Norway", "Orchard village on the Sørfjorden arm of the Hardangerfjord.")
	if err != nil {
		t.Fatalf("ValidateContent: %v", err)
	}

	if !v.Passed || v.Score != 0.92 {
		t.Errorf("verdict = %+v", v)
	}
	if v.CheckedAt.IsZero() {
		t.Error("CheckedAt not set")
	}
	if len(p.tasks) != 1 || p.tasks[0] != TaskValidate {
		t.Errorf("tasks = %v", p.tasks)
	}
	if !strings.Contains(p.prompts[0], "Lofthus") || !strings.Contains(p.prompts[0], "Hardangerfjord") {
		t.Errorf("prompt missing location or description: %q", p.prompts[0])
	}
}

func TestValidateContentCachedByDescription(t *testing.T) {
	p := &fakeProvider{response: `{"passed": true, "score": 0.8}`}
	tasks := NewTasks(p, cachedFetcher(t))
	ctx := context.Background()

	if _, err := tasks.ValidateContent(ctx, "Odda", "Norway", "First draft."); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := tasks.ValidateContent(ctx, "Odda", "Norway", "First draft."); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if len(p.tasks) != 1 {
		t.Fatalf("provider called %d times for identical content, want 1", len(p.tasks))
	}

	// A changed description must not reuse the old verdict.
	if _, err := tasks.ValidateContent(ctx, "Odda", "Norway", "Second draft."); err != nil {
		t.Fatalf("third call: %v", err)
	}
	if len(p.tasks) != 2 {
		t.Fatalf("provider called %d times after content change, want 2", len(p.tasks))
	}
}

func TestFillLocationGap(t *testing.T) {
	p := &fakeProvider{response: `{"description": "Voss sits between fjord arms and is known for whitewater."}`}
	tasks := NewTasks(p, fetch.New(nil, nil, nil))

	desc, err := tasks.FillLocationGap(context.Background(), "Voss", "Norway", "Voss is a municipality in Vestland county.")
	if err != nil {
		t.Fatalf("FillLocationGap: %v", err)
	}
	if !strings.Contains(desc, "whitewater") {
		t.Errorf("description = %q", desc)
	}
	if p.tasks[0] != TaskGapFill {
		t.Errorf("task = %q", p.tasks[0])
	}
}

func TestFillLocationGapNoMaterial(t *testing.T) {
	p := &fakeProvider{}
	tasks := NewTasks(p, fetch.New(nil, nil, nil))

	if _, err := tasks.FillLocationGap(context.Background(), "Voss", "Norway", ""); err == nil {
		t.Fatal("expected error without source material")
	}
	if len(p.tasks) != 0 {
		t.Error("provider must not be called without material")
	}
}

func TestSearchStrategy(t *testing.T) {
	p := &fakeProvider{response: `{"terms": ["Vøringsfossen waterfall", "Hardangervidda plateau"]}`}
	tasks := NewTasks(p, fetch.New(nil, nil, nil))

	terms, err := tasks.SearchStrategy(context.Background(), "Eidfjord", "Vestland", "Norway")
	if err != nil {
		t.Fatalf("SearchStrategy: %v", err)
	}
	if len(terms) != 2 || terms[0] != "Vøringsfossen waterfall" {
		t.Errorf("terms = %v", terms)
	}
	if p.tasks[0] != TaskStrategy {
		t.Errorf("task = %q", p.tasks[0])
	}
}

func TestTasksProviderFailure(t *testing.T) {
	p := &fakeProvider{err: errors.New("model overloaded")}
	tasks := NewTasks(p, fetch.New(nil, nil, nil))
	ctx := context.Background()

	if _, err := tasks.ValidateContent(ctx, "Odda", "Norway", "text"); err == nil {
		t.Error("ValidateContent should surface provider error")
	}
	if _, err := tasks.FillLocationGap(ctx, "Odda", "Norway", "material"); err == nil {
		t.Error("FillLocationGap should surface provider error")
	}
	if _, err := tasks.SearchStrategy(ctx, "Odda", "Vestland", "Norway"); err == nil {
		t.Error("SearchStrategy should surface provider error")
	}
}

func TestTasksNoProvider(t *testing.T) {
	tasks := NewTasks(nil, fetch.New(nil, nil, nil))
	ctx := context.Background()

	if _, err := tasks.ValidateContent(ctx, "Odda", "Norway", "text"); err == nil {
		t.Error("expected error without provider")
	}
	if _, err := tasks.FillLocationGap(ctx, "Odda", "Norway", "material"); err == nil {
		t.Error("expected error without provider")
	}
	if _, err := tasks.SearchStrategy(ctx, "Odda", "Vestland", "Norway"); err == nil {
		t.Error("expected error without provider")
	}
}
