package imagery

import "testing"

func TestLevelsOrderAndSkipping(t *testing.T) {
	tests := []struct {
		name string
		h    Hierarchy
		want []LevelTerm
	}{
		{
			name: "full ladder",
			h: Hierarchy{
				Local:       "Lofthus",
				District:    "Ullensvang",
				County:      "Hardanger",
				Regional:    "Vestland",
				National:    "Norway",
				Continental: "Europe",
			},
			want: []LevelTerm{
				{LevelLocal, "Lofthus"},
				{LevelDistrict, "Ullensvang"},
				{LevelCounty, "Hardanger"},
				{LevelRegional, "Vestland"},
				{LevelNational, "Norway"},
				{LevelContinental, "Europe"},
			},
		},
		{
			name: "sparse ladder keeps order",
			h:    Hierarchy{National: "Norway", Continental: "Europe"},
			want: []LevelTerm{
				{LevelNational, "Norway"},
				{LevelContinental, "Europe"},
			},
		},
		{
			name: "local only",
			h:    Hierarchy{Local: "Bergen"},
			want: []LevelTerm{{LevelLocal, "Bergen"}},
		},
		{
			name: "empty",
			h:    Hierarchy{},
			want: nil,
		},
		{
			name: "whitespace counts as unset",
			h:    Hierarchy{Local: "  ", Regional: " Vestland "},
			want: []LevelTerm{{LevelRegional, "Vestland"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.h.Levels()
			if len(got) != len(tt.want) {
				t.Fatalf("got %d levels %v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("level %d = %v/%q, want %v/%q",
						i, got[i].Level, got[i].Term, tt.want[i].Level, tt.want[i].Term)
				}
			}
		})
	}
}

func TestLevelsDerivesContinent(t *testing.T) {
	levels := Hierarchy{National: "Norway"}.Levels()
	if len(levels) != 2 {
		t.Fatalf("got %d levels %v, want national + derived continental", len(levels), levels)
	}
	if levels[1].Level != LevelContinental || levels[1].Term != "Europe" {
		t.Errorf("derived level = %v/%q, want continental/Europe", levels[1].Level, levels[1].Term)
	}

	// Explicit continental wins over derivation.
	levels = Hierarchy{National: "Norway", Continental: "Scandinavia"}.Levels()
	if levels[len(levels)-1].Term != "Scandinavia" {
		t.Errorf("explicit continental overridden: %v", levels)
	}

	// Unknown countries simply have no continental rung.
	levels = Hierarchy{National: "Atlantis"}.Levels()
	if len(levels) != 1 {
		t.Errorf("unknown country grew a continent: %v", levels)
	}
}

func TestLevelString(t *testing.T) {
	if got := LevelLocal.String(); got != "local" {
		t.Errorf("LevelLocal = %q", got)
	}
	if got := LevelGlobal.String(); got != "global" {
		t.Errorf("LevelGlobal = %q", got)
	}
	if got := Level(99).String(); got != "unknown" {
		t.Errorf("Level(99) = %q", got)
	}
}

func TestHierarchyIsZero(t *testing.T) {
	if !(Hierarchy{}).IsZero() {
		t.Error("empty hierarchy not zero")
	}
	if (Hierarchy{Local: "Odda"}).IsZero() {
		t.Error("set hierarchy reported zero")
	}
}
