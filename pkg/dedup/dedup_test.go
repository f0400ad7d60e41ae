package dedup

import (
	"reflect"
	"testing"
)

func TestByKey(t *testing.T) {
	type place struct {
		ID   string
		Name string
	}

	items := []place{
		{ID: "q1", Name: "Lofthus"},
		{ID: "q2", Name: "Odda"},
		{ID: "q1", Name: "Lofthus (duplicate)"},
		{ID: "q3", Name: "Bergen"},
		{ID: "q2", Name: "Odda (duplicate)"},
	}

	got := ByKey(items, func(p place) string { return p.ID })

	if len(got) != 3 {
		t.Fatalf("Expected 3 distinct items, got %d", len(got))
	}
	// First occurrence wins, relative order preserved
	if got[0].Name != "Lofthus" || got[1].Name != "Odda" || got[2].Name != "Bergen" {
		t.Errorf("Unexpected order or survivors: %+v", got)
	}
}

func TestByKeyEmptyKeys(t *testing.T) {
	items := []string{"", "a", "", "b"}
	got := ByKey(items, func(s string) string { return s })
	want := []string{"", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Empty keys should dedupe among themselves: got %v, want %v", got, want)
	}
}

func TestByKeyShortInputs(t *testing.T) {
	if got := ByKey(nil, func(s string) string { return s }); len(got) != 0 {
		t.Errorf("nil input should stay empty, got %v", got)
	}
	one := []string{"x"}
	if got := ByKey(one, func(s string) string { return s }); len(got) != 1 || got[0] != "x" {
		t.Errorf("Single item should pass through, got %v", got)
	}
}

func TestStrings(t *testing.T) {
	urls := []string{
		"https://img.example/a.jpg",
		"https://img.example/b.jpg",
		"https://img.example/a.jpg",
		"https://img.example/c.jpg",
		"https://img.example/b.jpg",
	}
	got := Strings(urls)
	want := []string{
		"https://img.example/a.jpg",
		"https://img.example/b.jpg",
		"https://img.example/c.jpg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Strings() = %v, want %v", got, want)
	}
}
