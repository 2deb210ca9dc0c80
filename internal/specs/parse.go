package specs

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/agdata/tractorcrawl/internal/merge"
)

// parseBrandPage pulls model rows out of a brand page's menu tables. Each
// usable row carries a linked model name, a power figure, and the production
// years.
func parseBrandPage(baseURL, brand string, body []byte) ([]merge.SpecRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s page: %w", brand, err)
	}

	var records []merge.SpecRecord
	doc.Find("table.tdMenu1 tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		link := cells.Eq(0).Find("a").First()
		model := strings.TrimSpace(link.Text())
		if model == "" {
			return
		}
		records = append(records, merge.SpecRecord{
			Brand:      brand,
			Model:      model,
			Horsepower: cleanPower(cells.Eq(1).Text()),
			Years:      strings.TrimSpace(cells.Eq(2).Text()),
			URL:        resolveModelURL(baseURL, link.AttrOr("href", "")),
		})
	})
	return records, nil
}

// cleanPower reduces a power cell to the bare figure: "52.5 HP (39.1 kW)"
// becomes "52.5".
func cleanPower(raw string) string {
	power := strings.ToLower(strings.TrimSpace(raw))
	power = strings.ReplaceAll(power, "hp", "")
	if i := strings.Index(power, "("); i >= 0 {
		power = power[:i]
	}
	return strings.TrimSpace(power)
}

func resolveModelURL(baseURL, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
