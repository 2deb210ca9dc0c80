// Package merge joins scraped auction listings with a manufacturer
// specification catalog using fuzzy model-name matching.
package merge

import (
	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

// MergedListing is an auction listing enriched with catalog specifications
// when a match was found.
type MergedListing struct {
	crawl.Listing
	Matched         bool     `json:"matched"`
	CatalogModel    string   `json:"catalog_model,omitempty"`
	Horsepower      *float64 `json:"horsepower,omitempty"`
	ProductionYears string   `json:"production_years,omitempty"`
	SpecURL         string   `json:"spec_url,omitempty"`
}

// Report summarizes one merge run.
type Report struct {
	Total     int      `json:"total"`
	Matched   int      `json:"matched"`
	MatchRate float64  `json:"match_rate"`
	Unmatched []string `json:"unmatched"`
}

// Merge enriches every listing it can match. Unmatched listings are kept in
// the output, flagged and listed in the report.
func Merge(listings []crawl.Listing, matcher *Matcher, log *zap.Logger) ([]MergedListing, Report) {
	out := make([]MergedListing, 0, len(listings))
	report := Report{Total: len(listings)}

	for _, listing := range listings {
		merged := MergedListing{Listing: listing}
		title := listing.Brand + " " + listing.Model
		if spec, ok := matcher.Match(title); ok {
			merged.Matched = true
			merged.CatalogModel = spec.Brand + " " + spec.Model
			merged.Horsepower = CleanHorsepower(spec.Horsepower)
			merged.ProductionYears = spec.Years
			merged.SpecURL = spec.URL
			report.Matched++
		} else {
			report.Unmatched = append(report.Unmatched, title)
			log.Debug("no catalog match", zap.String("title", title))
		}
		out = append(out, merged)
	}

	if report.Total > 0 {
		report.MatchRate = float64(report.Matched) / float64(report.Total)
	}
	return out, report
}
