package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agdata/tractorcrawl/internal/crawl"
	"github.com/agdata/tractorcrawl/internal/extract"
)

const fullListing = `
<div class="listing-wrapper US-listing">
  <div class="listing-name"><h3>John Deere 4020 Diesel</h3></div>
  <div class="auction-listing-price">
    <span class="listing-price">$23,500</span>
  </div>
  <div class="listing-field-label">Sold: <span class="basic-non-bold">Aug 12, 2026</span></div>
  <div class="listing-field-label">Condition: <span class="listing-field-value">Used</span></div>
  <div class="listing-field-label">Specs: <span class="listing-field-value">Cab, 2WD, 5,432 hrs showing, dual remotes</span></div>
  <div class="auction-event-details">
    <div class="auction-event-details">Ames, Iowa</div>
  </div>
</div>`

func TestExtractFullListing(t *testing.T) {
	t.Parallel()

	rec, err := extract.New().Extract(fullListing)
	require.NoError(t, err)

	assert.Equal(t, "John Deere 4020 Diesel", rec[crawl.FieldTitle])
	assert.Equal(t, "$23,500", rec[crawl.FieldPrice])
	assert.Equal(t, "Aug 12, 2026", rec[crawl.FieldSoldDate])
	assert.Equal(t, "Used", rec[crawl.FieldCondition])
	assert.Equal(t, "Cab, 2WD, 5,432 hrs showing, dual remotes", rec[crawl.FieldSpecs])
	assert.Equal(t, "5,432", rec[crawl.FieldHours])
	assert.Equal(t, "Ames, Iowa", rec[crawl.FieldLocation])
}

func TestExtractSparseListing(t *testing.T) {
	t.Parallel()

	rec, err := extract.New().Extract(`<div class="listing-name"><h3>Kubota L3901</h3></div>`)
	require.NoError(t, err)

	assert.Equal(t, "Kubota L3901", rec[crawl.FieldTitle])
	assert.NotContains(t, rec, crawl.FieldPrice)
	assert.NotContains(t, rec, crawl.FieldSoldDate)
	assert.NotContains(t, rec, crawl.FieldHours)
}

func TestExtractHoursFromDedicatedField(t *testing.T) {
	t.Parallel()

	html := `
<div class="listing-field-label">Specs: <span class="listing-field-value">Cab, MFWD, dual remotes</span></div>
<div class="listing-field-label">Hours: <span class="listing-field-value">1,200</span></div>`

	rec, err := extract.New().Extract(html)
	require.NoError(t, err)
	assert.Equal(t, "1,200", rec[crawl.FieldHours])
}

func TestExtractHoursPhrasings(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"3,212 hrs":                     "3,212",
		"hours: 845":                    "845",
		"showing 12,001 on the meter":   "12,001",
		"2150 engine hours, new rubber": "2150",
		"498.5 hours showing":           "498.5",
	}
	for specs, want := range cases {
		html := `<div class="listing-field-label">Specs: <span class="listing-field-value">` + specs + `</span></div>`
		rec, err := extract.New().Extract(html)
		require.NoError(t, err)
		assert.Equal(t, want, rec[crawl.FieldHours], "specs %q", specs)
	}
}

func TestExtractRejectsImplausibleHours(t *testing.T) {
	t.Parallel()

	html := `<div class="listing-field-label">Specs: <span class="listing-field-value">serial 123456789 hrs unknown</span></div>`
	rec, err := extract.New().Extract(html)
	require.NoError(t, err)
	assert.NotContains(t, rec, crawl.FieldHours)
}
