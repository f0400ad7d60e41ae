package imagery

import "context"

// Query describes one image search. National and Regional carry the
// surrounding hierarchy so a source can disambiguate short place names
// ("Odda" alone finds little; "Odda Norway" finds the town).
type Query struct {
	Term     string
	National string
	Regional string
	Limit    int
}

// Source is an image search backend. SearchImages returns direct image
// URLs, best first, at most Limit. Implementations route through the
// fetcher so results are cached and rate-limited per service.
type Source interface {
	Name() string
	SearchImages(ctx context.Context, q Query) ([]string, error)
}

// ResultSource tags which backend(s) produced a level's images.
type ResultSource string

const (
	SourcePrimary  ResultSource = "primary"
	SourceFallback ResultSource = "fallback"
	SourceMixed    ResultSource = "mixed"
)

// Result is the outcome for one visited level of the ladder.
type Result struct {
	Level  Level        `json:"level"`
	Term   string       `json:"term"`
	Images []string     `json:"images"`
	Source ResultSource `json:"source"`
}
