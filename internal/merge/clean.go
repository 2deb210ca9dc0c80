package merge

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// brandAliases folds the many ways sellers write a manufacturer onto one
// canonical name. Longest alias wins so "case ih" is not half-matched by
// "case".
var brandAliases = map[string]string{
	"j.i. case":               "case",
	"j.i.case":                "case",
	"ji case":                 "case",
	"case ih":                 "case",
	"farmall":                 "case farmall",
	"mccormick farmall":       "case farmall",
	"international harvester": "international",
	"mccormick-deering":       "international",
	"mccormick":               "international",
	"ih":                      "international",
	"massey-harris":           "massey harris",
	"massey-ferguson":         "massey ferguson",
	"mf":                      "massey ferguson",
	"minneapolis-moline":      "minneapolis moline",
	"ford new holland":        "new holland",
	"fordson":                 "ford",
	"deere":                   "john deere",
	"jd":                      "john deere",
	"allis-chalmers":          "allis chalmers",
	"ac":                      "allis chalmers",
	"deutz-fahr":              "deutz",
	"deutz allis":             "deutz",
	"ls":                      "ls tractor",
}

// modelAliases rewrites known market names onto the catalog's model naming.
var modelAliases = map[string]string{
	"massey harris 44":         "massey harris 44-6",
	"massey harris 44 special": "massey harris 44-6",
	"massey harris 101":        "massey harris 101 super",
	"ford jubilee":             "ford golden jubilee",
	"case farmall super m":     "case farmall m",
	"case farmall super h":     "case farmall h",
	"case farmall super c":     "case farmall c",
	"case farmall super a":     "case farmall a",
	"kubota bx23":              "kubota bx23s",
	"kubota bx25":              "kubota bx25d",
}

// descriptorTerms carry no identity: configuration and trim words stripped
// before matching.
var descriptorTerms = []string{
	"tractor", "mfwd", "2wd", "4wd", "series", "diesel", "gas",
	"utility", "row crop", "standard", "industrial", "agricultural",
	"orchard", "vineyard", "high crop", "wheatland", "rice special",
	"special", "deluxe", "premium", "classic", "limited",
}

var (
	leadingYear    = regexp.MustCompile(`^((?:19|20)\d{2})\s+(.+)$`)
	parenthetical  = regexp.MustCompile(`\(.*?\)`)
	specialChars   = regexp.MustCompile(`[^\w\s-]`)
	multiSpace     = regexp.MustCompile(`\s+`)
	numberAnywhere = regexp.MustCompile(`\d+(?:\.\d+)?`)

	sortedBrandAliases = sortAliasesByLength(brandAliases)
	sortedModelAliases = sortAliasesByLength(modelAliases)
	descriptorPatterns = compileDescriptors()
)

// Longest alias first, so "case ih" wins over "case".
func sortAliasesByLength(aliases map[string]string) []string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}

func compileDescriptors() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(descriptorTerms))
	for _, term := range descriptorTerms {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(term)+`\b`))
	}
	return out
}

// CleanModelName canonicalizes a free-text brand+model string for matching.
// Model years survive only for 2000-or-newer machines, where the year is
// part of the market identity.
func CleanModelName(model string) string {
	if model == "" {
		return ""
	}
	model = strings.ToLower(strings.TrimSpace(model))

	year := ""
	if m := leadingYear.FindStringSubmatch(model); m != nil {
		year = m[1]
		model = m[2]
	}

	for _, alias := range sortedBrandAliases {
		if model == alias || strings.HasPrefix(model, alias+" ") {
			model = brandAliases[alias] + model[len(alias):]
			break
		}
	}
	for _, alias := range sortedModelAliases {
		if model == alias || strings.HasPrefix(model, alias+" ") {
			model = modelAliases[alias]
			break
		}
	}

	for _, pattern := range descriptorPatterns {
		model = pattern.ReplaceAllString(model, "")
	}
	model = parenthetical.ReplaceAllString(model, "")
	model = specialChars.ReplaceAllString(model, "")
	model = strings.TrimSpace(multiSpace.ReplaceAllString(model, " "))

	if year != "" {
		if y, err := strconv.Atoi(year); err == nil && y >= 2000 {
			model = year + " " + model
		}
	}
	return model
}

// CleanHorsepower extracts a numeric horsepower from catalog text like
// "85 hp (63.4 kW)".
func CleanHorsepower(hp string) *float64 {
	if hp == "" {
		return nil
	}
	m := numberAnywhere.FindString(hp)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}
