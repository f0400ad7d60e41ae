package geo

import "strings"

// Continent names as used throughout the platform.
const (
	Africa       = "Africa"
	Asia         = "Asia"
	Europe       = "Europe"
	NorthAmerica = "North America"
	SouthAmerica = "South America"
	Oceania      = "Oceania"
	Antarctica   = "Antarctica"
)

// ContinentOf returns the continent for a country name. Common aliases
// ("USA", "UK", "Czech Republic") are resolved first. The second return is
// false when the country is unknown.
func ContinentOf(country string) (string, bool) {
	key := normalize(country)
	if key == "" {
		return "", false
	}
	if canonical, ok := countryAliases[key]; ok {
		key = canonical
	}
	continent, ok := countryContinent[key]
	return continent, ok
}

// IsContinent reports whether name is one of the seven continents.
func IsContinent(name string) bool {
	switch normalize(name) {
	case "africa", "asia", "europe", "north america", "south america", "oceania", "antarctica":
		return true
	}
	return false
}

// NormalizeCountry resolves aliases to the canonical country name, in title
// case as the search backends expect it. Unknown names pass through trimmed.
func NormalizeCountry(name string) string {
	key := normalize(name)
	if canonical, ok := countryAliases[key]; ok {
		key = canonical
	}
	if _, ok := countryContinent[key]; ok {
		return titleCase(key)
	}
	return strings.TrimSpace(name)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		// Keep connective words lowercase: "bosnia and herzegovina".
		if i > 0 && (w == "and" || w == "of" || w == "the") {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// countryAliases maps common alternative spellings to canonical table keys.
var countryAliases = map[string]string{
	"usa":                            "united states",
	"us":                             "united states",
	"united states of america":      "united states",
	"america":                        "united states",
	"uk":                             "united kingdom",
	"great britain":                  "united kingdom",
	"england":                        "united kingdom",
	"scotland":                       "united kingdom",
	"wales":                          "united kingdom",
	"northern ireland":               "united kingdom",
	"czech republic":                 "czechia",
	"holland":                        "netherlands",
	"the netherlands":                "netherlands",
	"burma":                          "myanmar",
	"côte d'ivoire":                  "ivory coast",
	"cote d'ivoire":                  "ivory coast",
	"cape verde":                     "cabo verde",
	"swaziland":                      "eswatini",
	"macedonia":                      "north macedonia",
	"east timor":                     "timor-leste",
	"republic of korea":              "south korea",
	"korea":                          "south korea",
	"russian federation":             "russia",
	"uae":                            "united arab emirates",
	"drc":                            "democratic republic of the congo",
	"dr congo":                       "democratic republic of the congo",
	"republic of the congo":          "congo",
	"türkiye":                        "turkey",
	"turkiye":                        "turkey",
	"vatican":                        "vatican city",
	"holy see":                       "vatican city",
	"federated states of micronesia": "micronesia",
}

// countryContinent is the static country→continent table, keyed by
// lowercase canonical name. Commonly blogged territories are included
// alongside sovereign states.
var countryContinent = map[string]string{
	// Europe
	"albania": Europe, "andorra": Europe, "austria": Europe, "belarus": Europe,
	"belgium": Europe, "bosnia and herzegovina": Europe, "bulgaria": Europe,
	"croatia": Europe, "cyprus": Europe, "czechia": Europe, "denmark": Europe,
	"estonia": Europe, "finland": Europe, "france": Europe, "germany": Europe,
	"greece": Europe, "hungary": Europe, "iceland": Europe, "ireland": Europe,
	"italy": Europe, "kosovo": Europe, "latvia": Europe, "liechtenstein": Europe,
	"lithuania": Europe, "luxembourg": Europe, "malta": Europe, "moldova": Europe,
	"monaco": Europe, "montenegro": Europe, "netherlands": Europe,
	"north macedonia": Europe, "norway": Europe, "poland": Europe,
	"portugal": Europe, "romania": Europe, "russia": Europe, "san marino": Europe,
	"serbia": Europe, "slovakia": Europe, "slovenia": Europe, "spain": Europe,
	"sweden": Europe, "switzerland": Europe, "ukraine": Europe,
	"united kingdom": Europe, "vatican city": Europe,
	"faroe islands": Europe, "gibraltar": Europe, "isle of man": Europe,
	"jersey": Europe, "guernsey": Europe,

	// Asia
	"afghanistan": Asia, "armenia": Asia, "azerbaijan": Asia, "bahrain": Asia,
	"bangladesh": Asia, "bhutan": Asia, "brunei": Asia, "cambodia": Asia,
	"china": Asia, "georgia": Asia, "india": Asia, "indonesia": Asia,
	"iran": Asia, "iraq": Asia, "israel": Asia, "japan": Asia, "jordan": Asia,
	"kazakhstan": Asia, "kuwait": Asia, "kyrgyzstan": Asia, "laos": Asia,
	"lebanon": Asia, "malaysia": Asia, "maldives": Asia, "mongolia": Asia,
	"myanmar": Asia, "nepal": Asia, "north korea": Asia, "oman": Asia,
	"pakistan": Asia, "palestine": Asia, "philippines": Asia, "qatar": Asia,
	"saudi arabia": Asia, "singapore": Asia, "south korea": Asia,
	"sri lanka": Asia, "syria": Asia, "taiwan": Asia, "tajikistan": Asia,
	"thailand": Asia, "timor-leste": Asia, "turkey": Asia, "turkmenistan": Asia,
	"united arab emirates": Asia, "uzbekistan": Asia, "vietnam": Asia,
	"yemen": Asia, "hong kong": Asia, "macau": Asia,

	// Africa
	"algeria": Africa, "angola": Africa, "benin": Africa, "botswana": Africa,
	"burkina faso": Africa, "burundi": Africa, "cabo verde": Africa,
	"cameroon": Africa, "central african republic": Africa, "chad": Africa,
	"comoros": Africa, "congo": Africa,
	"democratic republic of the congo": Africa, "djibouti": Africa,
	"egypt": Africa, "equatorial guinea": Africa, "eritrea": Africa,
	"eswatini": Africa, "ethiopia": Africa, "gabon": Africa, "gambia": Africa,
	"ghana": Africa, "guinea": Africa, "guinea-bissau": Africa,
	"ivory coast": Africa, "kenya": Africa, "lesotho": Africa,
	"liberia": Africa, "libya": Africa, "madagascar": Africa, "malawi": Africa,
	"mali": Africa, "mauritania": Africa, "mauritius": Africa,
	"morocco": Africa, "mozambique": Africa, "namibia": Africa,
	"niger": Africa, "nigeria": Africa, "rwanda": Africa,
	"sao tome and principe": Africa, "senegal": Africa, "seychelles": Africa,
	"sierra leone": Africa, "somalia": Africa, "south africa": Africa,
	"south sudan": Africa, "sudan": Africa, "tanzania": Africa, "togo": Africa,
	"tunisia": Africa, "uganda": Africa, "zambia": Africa, "zimbabwe": Africa,
	"reunion": Africa,

	// North America
	"antigua and barbuda": NorthAmerica, "bahamas": NorthAmerica,
	"barbados": NorthAmerica, "belize": NorthAmerica, "canada": NorthAmerica,
	"costa rica": NorthAmerica, "cuba": NorthAmerica, "dominica": NorthAmerica,
	"dominican republic": NorthAmerica, "el salvador": NorthAmerica,
	"grenada": NorthAmerica, "guatemala": NorthAmerica, "haiti": NorthAmerica,
	"honduras": NorthAmerica, "jamaica": NorthAmerica, "mexico": NorthAmerica,
	"nicaragua": NorthAmerica, "panama": NorthAmerica,
	"saint kitts and nevis": NorthAmerica, "saint lucia": NorthAmerica,
	"saint vincent and the grenadines": NorthAmerica,
	"trinidad and tobago":              NorthAmerica,
	"united states":                    NorthAmerica,
	"puerto rico":                      NorthAmerica, "greenland": NorthAmerica,
	"bermuda": NorthAmerica,

	// South America
	"argentina": SouthAmerica, "bolivia": SouthAmerica, "brazil": SouthAmerica,
	"chile": SouthAmerica, "colombia": SouthAmerica, "ecuador": SouthAmerica,
	"guyana": SouthAmerica, "paraguay": SouthAmerica, "peru": SouthAmerica,
	"suriname": SouthAmerica, "uruguay": SouthAmerica,
	"venezuela": SouthAmerica,

	// Oceania
	"australia": Oceania, "fiji": Oceania, "kiribati": Oceania,
	"marshall islands": Oceania, "micronesia": Oceania, "nauru": Oceania,
	"new zealand": Oceania, "palau": Oceania, "papua new guinea": Oceania,
	"samoa": Oceania, "solomon islands": Oceania, "tonga": Oceania,
	"tuvalu": Oceania, "vanuatu": Oceania, "french polynesia": Oceania,
	"new caledonia": Oceania,

	// Antarctica
	"antarctica": Antarctica,
}
