package imagery

// Level is one rung of the geographic specificity ladder, from a single
// town up to the whole planet. Lower values are more specific.
type Level int

const (
	LevelLocal Level = iota
	LevelDistrict
	LevelCounty
	LevelRegional
	LevelNational
	LevelContinental
	// LevelGlobal is synthetic: it has no term in a hierarchy and is only
	// queried as a last resort with a fixed generic term.
	LevelGlobal
)

var levelNames = map[Level]string{
	LevelLocal:       "local",
	LevelDistrict:    "district",
	LevelCounty:      "county",
	LevelRegional:    "regional",
	LevelNational:    "national",
	LevelContinental: "continental",
	LevelGlobal:      "global",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}
