package enrich

import (
	"context"
	"errors"
	"testing"

	"fernweh/pkg/imagery"
	"fernweh/pkg/model"
	"fernweh/pkg/progressive"
)

func oddaLocation() model.Location {
	return model.Location{
		Name:    "Odda",
		County:  "Ullensvang",
		Region:  "Vestland",
		Country: "Norway",
		Lat:     60.0694,
		Lon:     6.5462,
	}
}

func collectUpdates() (func(progressive.Update[model.LocationContent]), *[]progressive.Update[model.LocationContent]) {
	var updates []progressive.Update[model.LocationContent]
	return func(u progressive.Update[model.LocationContent]) {
		updates = append(updates, u)
	}, &updates
}

func TestLoadLocationStages(t *testing.T) {
	resolver := &fakeResolver{results: []imagery.Result{
		{Level: imagery.LevelLocal, Term: "Odda", Images: imgs("odda", 3)},
	}}
	peek := &fakePeek{byTerm: map[string][]string{"Odda": {"https://img.example/cached-odda.jpg"}}}
	summaries := &fakeSummaries{
		cached:  map[string]string{"Odda": "Odda is a town in Ullensvang."},
		summary: "Odda is a town at the head of the Sørfjorden.",
	}
	nearby := &fakeNearby{
		cached: []model.Place{{Name: "Trolltunga"}},
		places: []model.Place{{Name: "Trolltunga"}, {Name: "Buarbreen"}},
	}
	assistant := &fakeAssistant{verdict: model.Validation{Passed: true, Score: 0.9}}
	svc := New(Config{ImageTarget: 10}, Deps{
		Resolver: resolver, Peek: peek, Summaries: summaries, Nearby: nearby, Assistant: assistant,
	})

	onUpdate, updates := collectUpdates()
	content, err := svc.LoadLocation(context.Background(), oddaLocation(), onUpdate)
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	if len(*updates) != 3 {
		t.Fatalf("got %d updates, want 3", len(*updates))
	}

	imm := (*updates)[0]
	if imm.Stage != progressive.StageImmediate || imm.Progress != progressive.ProgressImmediate || !imm.Loading {
		t.Errorf("immediate update = %+v", imm)
	}
	if len(imm.Data.Images) != 1 || imm.Data.Images[0] != "https://img.example/cached-odda.jpg" {
		t.Errorf("immediate images = %v", imm.Data.Images)
	}
	if imm.Data.Description != "Odda is a town in Ullensvang." {
		t.Errorf("immediate description = %q", imm.Data.Description)
	}
	if len(imm.Data.Nearby) != 1 {
		t.Errorf("immediate nearby = %v", imm.Data.Nearby)
	}

	enh := (*updates)[1]
	if enh.Stage != progressive.StageEnhanced || enh.Progress != progressive.ProgressEnhanced {
		t.Errorf("enhanced update = %+v", enh)
	}
	if len(enh.Data.Images) != 3 {
		t.Errorf("enhanced images = %v", enh.Data.Images)
	}
	if len(enh.Data.Nearby) != 2 {
		t.Errorf("enhanced nearby = %v", enh.Data.Nearby)
	}
	// The cached description satisfied the page; no refetch.
	if summaries.calls != 0 {
		t.Errorf("summary fetched %d times despite cache hit", summaries.calls)
	}

	val := (*updates)[2]
	if val.Stage != progressive.StageValidated || val.Progress != progressive.ProgressComplete || val.Loading {
		t.Errorf("validated update = %+v", val)
	}
	if val.Data.Validation == nil || !val.Data.Validation.Passed {
		t.Errorf("validation = %+v", val.Data.Validation)
	}
	if assistant.validateCalls != 1 {
		t.Errorf("validate calls = %d, want 1", assistant.validateCalls)
	}
	if content.Validation == nil || len(content.Images) != 3 {
		t.Errorf("returned content = %+v", content)
	}
}

func TestLoadLocationColdCache(t *testing.T) {
	resolver := &fakeResolver{results: []imagery.Result{
		{Level: imagery.LevelLocal, Term: "Odda", Images: imgs("odda", 2)},
	}}
	summaries := &fakeSummaries{summary: "Odda is a town at the head of the Sørfjorden."}
	nearby := &fakeNearby{places: []model.Place{{Name: "Trolltunga"}}}
	svc := New(Config{ImageTarget: 10}, Deps{
		Resolver: resolver, Peek: &fakePeek{}, Summaries: summaries, Nearby: nearby,
	})

	onUpdate, updates := collectUpdates()
	content, err := svc.LoadLocation(context.Background(), oddaLocation(), onUpdate)
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	imm := (*updates)[0]
	if len(imm.Data.Images) != 0 || imm.Data.Description != "" || imm.Data.Nearby != nil {
		t.Errorf("cold immediate stage not empty: %+v", imm.Data)
	}

	// Without an assistant the run closes with a final marker, and the
	// description falls back to the raw summary.
	last := (*updates)[len(*updates)-1]
	if last.Stage != progressive.StageFinal || last.Err != nil {
		t.Errorf("closing update = %+v", last)
	}
	if content.Description != summaries.summary {
		t.Errorf("description = %q, want raw summary", content.Description)
	}
	if content.Validation != nil {
		t.Errorf("unexpected validation: %+v", content.Validation)
	}
	if len(content.Images) != 2 || len(content.Nearby) != 1 {
		t.Errorf("content = %+v", content)
	}
}

func TestLoadLocationValidationFailure(t *testing.T) {
	resolver := &fakeResolver{results: []imagery.Result{
		{Level: imagery.LevelLocal, Term: "Odda", Images: imgs("odda", 2)},
	}}
	summaries := &fakeSummaries{summary: "Odda is a town at the head of the Sørfjorden."}
	assistant := &fakeAssistant{
		gapText:     "Odda pairs glacier hikes with fjord views.",
		validateErr: errors.New("model offline"),
	}
	svc := New(Config{ImageTarget: 10}, Deps{Resolver: resolver, Summaries: summaries, Assistant: assistant})

	onUpdate, updates := collectUpdates()
	content, err := svc.LoadLocation(context.Background(), oddaLocation(), onUpdate)
	if err != nil {
		t.Fatalf("validation failure must not fail the load: %v", err)
	}

	last := (*updates)[len(*updates)-1]
	if last.Stage != progressive.StageFinal || last.Err == nil {
		t.Errorf("closing update = %+v", last)
	}
	if content.Validation != nil {
		t.Errorf("validation attached despite failure: %+v", content.Validation)
	}
	if content.Description != assistant.gapText {
		t.Errorf("description = %q", content.Description)
	}
}

func TestLoadLocationNoDescriptionSkipsValidation(t *testing.T) {
	resolver := &fakeResolver{}
	assistant := &fakeAssistant{verdict: model.Validation{Passed: true}}
	svc := New(Config{ImageTarget: 10}, Deps{Resolver: resolver, Assistant: assistant})

	onUpdate, updates := collectUpdates()
	content, err := svc.LoadLocation(context.Background(), oddaLocation(), onUpdate)
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	if assistant.validateCalls != 0 {
		t.Errorf("validated an empty description")
	}
	if content.Validation != nil {
		t.Errorf("validation = %+v, want none", content.Validation)
	}
	last := (*updates)[len(*updates)-1]
	if last.Progress != progressive.ProgressComplete || last.Loading {
		t.Errorf("closing update = %+v", last)
	}
}

func TestLoadLocationNoCoordsSkipsNearby(t *testing.T) {
	nearby := &fakeNearby{places: []model.Place{{Name: "Trolltunga"}}}
	svc := New(Config{ImageTarget: 10}, Deps{Resolver: &fakeResolver{}, Nearby: nearby})

	loc := model.Location{Name: "Odda", Country: "Norway"}
	content, err := svc.LoadLocation(context.Background(), loc, nil)
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	if nearby.calls != 0 {
		t.Errorf("nearby queried without coordinates")
	}
	if content.Nearby != nil {
		t.Errorf("nearby = %+v, want none", content.Nearby)
	}
}
