// Package extract pulls raw attribute mappings out of rendered catalog item
// elements. Every field is optional and extracted independently; a missing
// field never aborts the record.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

// Most listings bury the meter reading inside the free-text specs blob, in
// wildly inconsistent phrasings. Patterns are tried in order, most specific
// first.
var hoursPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:hrs?|hours?)\b`),
	regexp.MustCompile(`(?i)(?:hrs?|hours?)[^\d]*(\d+(?:,\d{3})*(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(?:showing|shows?|reading|reads?)\s+(\d+(?:,\d{3})*(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:hrs?|hours?)?\s*(?:showing|indicated)`),
	regexp.MustCompile(`(?i)(\d+(?:,\d{3})*(?:\.\d+)?)\s*(?:engine|original|actual)\s*(?:hrs?|hours?)`),
	regexp.MustCompile(`(?i)(?:engine|original|actual)\s*(?:hrs?|hours?)[^\d]*(\d+(?:,\d{3})*(?:\.\d+)?)`),
}

var nonHourChars = regexp.MustCompile(`[^\d.,]`)

// FieldExtractor implements crawl.Extractor for the auction catalog's
// listing markup.
type FieldExtractor struct{}

// New returns a FieldExtractor.
func New() *FieldExtractor {
	return &FieldExtractor{}
}

// Extract parses one item element's HTML into a raw record. Only fields that
// were actually found are present in the result.
func (e *FieldExtractor) Extract(itemHTML string) (crawl.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(itemHTML))
	if err != nil {
		return nil, fmt.Errorf("parse item html: %w", err)
	}

	rec := crawl.RawRecord{}
	setIfPresent(rec, crawl.FieldTitle, trimmedText(doc.Find(".listing-name h3")))
	setIfPresent(rec, crawl.FieldPrice, trimmedText(doc.Find(".auction-listing-price > .listing-price")))
	setIfPresent(rec, crawl.FieldSoldDate, trimmedText(labeledField(doc, "Sold:").Find(".basic-non-bold")))
	setIfPresent(rec, crawl.FieldCondition, trimmedText(labeledField(doc, "Condition:").Find(".listing-field-value")))
	setIfPresent(rec, crawl.FieldLocation, trimmedText(doc.Find(".auction-event-details .auction-event-details")))

	specs := trimmedText(labeledField(doc, "Specs:").Find(".listing-field-value"))
	setIfPresent(rec, crawl.FieldSpecs, specs)

	hours := hoursFromSpecs(specs)
	if hours == "" {
		hours = trimmedText(labeledField(doc, "Hours:").Find(".listing-field-value"))
	}
	setIfPresent(rec, crawl.FieldHours, hours)

	return rec, nil
}

// labeledField selects the field-label blocks whose text carries the given
// label, e.g. "Sold:" or "Condition:".
func labeledField(doc *goquery.Document, label string) *goquery.Selection {
	return doc.Find("div.listing-field-label").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), label)
	})
}

// hoursFromSpecs digs a plausible meter reading out of the specs text.
// Matches outside a sane range are rejected and the next pattern tried.
func hoursFromSpecs(specs string) string {
	if specs == "" {
		return ""
	}
	for _, pattern := range hoursPatterns {
		m := pattern.FindStringSubmatch(specs)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		cleaned := strings.ReplaceAll(nonHourChars.ReplaceAllString(candidate, ""), ",", "")
		value, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		if value >= 0 && value <= 100000 {
			return candidate
		}
	}
	return ""
}

func trimmedText(s *goquery.Selection) string {
	return strings.TrimSpace(s.First().Text())
}

func setIfPresent(rec crawl.RawRecord, key, value string) {
	if value != "" {
		rec[key] = value
	}
}
