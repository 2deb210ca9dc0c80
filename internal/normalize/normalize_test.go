package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agdata/tractorcrawl/internal/crawl"
	"github.com/agdata/tractorcrawl/internal/normalize"
)

func TestNormalizeFullRecord(t *testing.T) {
	t.Parallel()

	listing := normalize.New().Normalize(crawl.RawRecord{
		crawl.FieldTitle:     "Kubota L3901 HST",
		crawl.FieldPrice:     "$23,500",
		crawl.FieldSoldDate:  "Aug 12, 2026",
		crawl.FieldHours:     "1,234.5",
		crawl.FieldCondition: "Used",
		crawl.FieldSpecs:     "Cab, 4WD",
		crawl.FieldLocation:  "Ames, Iowa",
	})

	require.NotNil(t, listing)
	assert.Equal(t, "Kubota", listing.Brand)
	assert.Equal(t, "L3901 HST", listing.Model)
	require.NotNil(t, listing.Price)
	assert.InDelta(t, 23500, *listing.Price, 0.01)
	require.NotNil(t, listing.Hours)
	assert.InDelta(t, 1234.5, *listing.Hours, 0.01)
	assert.Equal(t, "Aug 12, 2026", listing.SoldDate)
	assert.Equal(t, "Ames, Iowa", listing.Location)
}

func TestNormalizeEmptyRecordIsDiscarded(t *testing.T) {
	t.Parallel()

	assert.Nil(t, normalize.New().Normalize(crawl.RawRecord{}))
	assert.Nil(t, normalize.New().Normalize(nil))
}

func TestNormalizeUnparseableNumbersStayNil(t *testing.T) {
	t.Parallel()

	listing := normalize.New().Normalize(crawl.RawRecord{
		crawl.FieldTitle: "Ford 8N",
		crawl.FieldPrice: "Call for price",
	})

	require.NotNil(t, listing)
	assert.Nil(t, listing.Price)
	assert.Nil(t, listing.Hours)
}

func TestNormalizeHoursFallsBackToFirstNumber(t *testing.T) {
	t.Parallel()

	listing := normalize.New().Normalize(crawl.RawRecord{
		crawl.FieldTitle: "Ford 8N",
		crawl.FieldHours: "2,100 hrs. approx. 350 on rebuild",
	})

	require.NotNil(t, listing)
	require.NotNil(t, listing.Hours)
	assert.InDelta(t, 2100, *listing.Hours, 0.01)
}
