// Package normalize converts raw text attributes into typed listings.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

var (
	nonPriceChars = regexp.MustCompile(`[^\d.]`)
	nonHourChars  = regexp.MustCompile(`[^\d.,]`)
	firstNumber   = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d+)?`)
)

// ListingNormalizer implements crawl.Normalizer.
type ListingNormalizer struct{}

// New returns a ListingNormalizer.
func New() *ListingNormalizer {
	return &ListingNormalizer{}
}

// Normalize converts a raw record into a typed listing. A nil result means
// the record carried nothing usable and is discarded, not an error.
func (ListingNormalizer) Normalize(raw crawl.RawRecord) *crawl.Listing {
	if len(raw) == 0 {
		return nil
	}
	listing := &crawl.Listing{
		SoldDate:  raw[crawl.FieldSoldDate],
		Condition: raw[crawl.FieldCondition],
		Specs:     raw[crawl.FieldSpecs],
		Location:  raw[crawl.FieldLocation],
	}
	listing.Brand, listing.Model = splitTitle(raw[crawl.FieldTitle])
	listing.Price = parsePrice(raw[crawl.FieldPrice])
	listing.Hours = parseHours(raw[crawl.FieldHours])
	return listing
}

// splitTitle treats the first word as the brand and the rest as the model.
func splitTitle(title string) (brand, model string) {
	parts := strings.Fields(title)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func parsePrice(text string) *float64 {
	if text == "" {
		return nil
	}
	numeric := nonPriceChars.ReplaceAllString(text, "")
	if numeric == "" {
		return nil
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return nil
	}
	return &value
}

func parseHours(text string) *float64 {
	if text == "" {
		return nil
	}
	cleaned := strings.ReplaceAll(nonHourChars.ReplaceAllString(text, ""), ",", "")
	if value, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return &value
	}
	// Malformed reading; fall back to the first number anywhere in the text.
	if m := firstNumber.FindString(text); m != "" {
		if value, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64); err == nil {
			return &value
		}
	}
	return nil
}
