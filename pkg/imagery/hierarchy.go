package imagery

import (
	"strings"

	"fernweh/pkg/geo"
)

// Hierarchy holds the geographic terms for one location, from most to
// least specific. Any field may be empty; empty levels are skipped during
// resolution. Continental is usually left blank and derived from National.
type Hierarchy struct {
	Local       string `json:"local,omitempty"`
	District    string `json:"district,omitempty"`
	County      string `json:"county,omitempty"`
	Regional    string `json:"regional,omitempty"`
	National    string `json:"national,omitempty"`
	Continental string `json:"continental,omitempty"`
}

// LevelTerm pairs a ladder level with its search term.
type LevelTerm struct {
	Level Level
	Term  string
}

// Levels returns the set levels in walk order, most specific first. An
// unset Continental is derived from National when the country is known.
func (h Hierarchy) Levels() []LevelTerm {
	continental := h.Continental
	if continental == "" && h.National != "" {
		if c, ok := geo.ContinentOf(h.National); ok {
			continental = c
		}
	}

	all := []LevelTerm{
		{LevelLocal, h.Local},
		{LevelDistrict, h.District},
		{LevelCounty, h.County},
		{LevelRegional, h.Regional},
		{LevelNational, h.National},
		{LevelContinental, continental},
	}

	levels := make([]LevelTerm, 0, len(all))
	for _, lt := range all {
		if strings.TrimSpace(lt.Term) == "" {
			continue
		}
		lt.Term = strings.TrimSpace(lt.Term)
		levels = append(levels, lt)
	}
	return levels
}

// IsZero reports whether no level is set.
func (h Hierarchy) IsZero() bool {
	return h == Hierarchy{}
}
