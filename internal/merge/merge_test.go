package merge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

func TestMergeEnrichesMatchedListings(t *testing.T) {
	t.Parallel()

	listings := []crawl.Listing{
		{Brand: "John", Model: "Deere 4020 Diesel"},
		{Brand: "Farmhand", Model: "F11 Loader"},
	}
	matcher := NewMatcher(catalog(), DefaultThreshold)

	merged, report := Merge(listings, matcher, zap.NewNop())

	require.Len(t, merged, 2)
	assert.True(t, merged[0].Matched)
	assert.Equal(t, "John Deere 4020", merged[0].CatalogModel)
	require.NotNil(t, merged[0].Horsepower)
	assert.InDelta(t, 94, *merged[0].Horsepower, 0.01)
	assert.Equal(t, "1964-1972", merged[0].ProductionYears)

	assert.False(t, merged[1].Matched, "unmatched listings stay in the output")

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Matched)
	assert.InDelta(t, 0.5, report.MatchRate, 0.001)
	assert.Equal(t, []string{"Farmhand F11 Loader"}, report.Unmatched)
}

func TestMergeEmptyInput(t *testing.T) {
	t.Parallel()

	merged, report := Merge(nil, NewMatcher(catalog(), DefaultThreshold), zap.NewNop())

	assert.Empty(t, merged)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.MatchRate)
}

func TestWriteMergedRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	listingsPath := filepath.Join(dir, "listings.json")
	specsPath := filepath.Join(dir, "specs.json")

	writeFixture(t, listingsPath, []crawl.Listing{{Brand: "Ford", Model: "8N"}})
	writeFixture(t, specsPath, catalog())

	listings, err := LoadListings(listingsPath)
	require.NoError(t, err)
	specs, err := LoadSpecs(specsPath)
	require.NoError(t, err)

	merged, report := Merge(listings, NewMatcher(specs, DefaultThreshold), zap.NewNop())
	require.NoError(t, WriteMerged(dir, merged, report))

	data, err := os.ReadFile(filepath.Join(dir, "merged.json"))
	require.NoError(t, err)
	var out []MergedListing
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)
	assert.True(t, out[0].Matched)
	assert.Equal(t, "1947-1952", out[0].ProductionYears)

	assert.FileExists(t, filepath.Join(dir, "merged.csv"))
	assert.FileExists(t, filepath.Join(dir, "merge_report.json"))
}

func TestWriteMergedReplacesFilesInPlace(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"merged.json", "merge_report.json", "merged.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("stale"), 0o600))
	}

	merged := []MergedListing{{Listing: crawl.Listing{Brand: "Ford", Model: "8N"}, Matched: true}}
	require.NoError(t, WriteMerged(dir, merged, Report{Total: 1, Matched: 1, MatchRate: 1}))

	data, err := os.ReadFile(filepath.Join(dir, "merged.json"))
	require.NoError(t, err)
	var out []MergedListing
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 1)

	var report Report
	reportData, err := os.ReadFile(filepath.Join(dir, "merge_report.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(reportData, &report))
	assert.Equal(t, 1, report.Total)

	// Temp files from the write-then-rename step never linger.
	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLoadListingsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadListings(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func writeFixture(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}
