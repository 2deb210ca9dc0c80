package merge

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// DefaultThreshold is the minimum similarity for a fuzzy catalog match.
const DefaultThreshold = 0.80

// SpecRecord is one catalog entry of manufacturer specifications.
type SpecRecord struct {
	Brand      string `json:"brand"`
	Model      string `json:"model"`
	Horsepower string `json:"horsepower"`
	Years      string `json:"years"`
	URL        string `json:"url,omitempty"`
}

// Matcher resolves cleaned listing names against a specification catalog,
// exact match first, then brand-restricted fuzzy match.
type Matcher struct {
	byName    map[string]SpecRecord
	names     []string
	metric    *metrics.SorensenDice
	threshold float64
}

// NewMatcher indexes the catalog under cleaned names. A later duplicate of
// a cleaned name does not displace the first entry.
func NewMatcher(specs []SpecRecord, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{
		byName:    make(map[string]SpecRecord, len(specs)),
		metric:    metrics.NewSorensenDice(),
		threshold: threshold,
	}
	for _, spec := range specs {
		name := CleanModelName(spec.Brand + " " + spec.Model)
		if name == "" {
			continue
		}
		if _, ok := m.byName[name]; ok {
			continue
		}
		m.byName[name] = spec
		m.names = append(m.names, name)
	}
	return m
}

// Match looks up a raw listing title. The second return reports whether a
// catalog entry was found at or above the similarity threshold.
func (m *Matcher) Match(title string) (SpecRecord, bool) {
	name := CleanModelName(title)
	if name == "" {
		return SpecRecord{}, false
	}
	if spec, ok := m.byName[name]; ok {
		return spec, true
	}

	brand := firstWord(name)
	best := ""
	bestScore := 0.0
	for _, candidate := range m.names {
		if brand != "" && firstWord(candidate) != brand {
			continue
		}
		score := strutil.Similarity(name, candidate, m.metric)
		if score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	if bestScore < m.threshold {
		return SpecRecord{}, false
	}
	return m.byName[best], true
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i >= 0 {
		return s[:i]
	}
	return s
}
