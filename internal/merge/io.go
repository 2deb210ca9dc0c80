package merge

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

// LoadListings reads a crawl output JSON file.
func LoadListings(path string) ([]crawl.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	var listings []crawl.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("parse listings %s: %w", path, err)
	}
	return listings, nil
}

// LoadSpecs reads a specification catalog JSON file.
func LoadSpecs(path string) ([]SpecRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read specs: %w", err)
	}
	var specs []SpecRecord
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse specs %s: %w", path, err)
	}
	return specs, nil
}

var mergedCSVHeader = []string{
	"brand", "model", "price", "sold_date", "hours", "condition",
	"location", "matched", "catalog_model", "horsepower", "production_years",
}

// WriteMerged writes the merged output as JSON and CSV, and the report as
// JSON, replacing any previous run's files.
func WriteMerged(dir string, merged []MergedListing, report Report) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "merged.json"), merged); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, "merge_report.json"), report); err != nil {
		return err
	}
	return writeCSV(filepath.Join(dir, "merged.csv"), merged)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func writeCSV(path string, merged []MergedListing) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(mergedCSVHeader); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, m := range merged {
		row := []string{
			m.Brand, m.Model, floatField(m.Price), m.SoldDate,
			floatField(m.Hours), m.Condition, m.Location,
			strconv.FormatBool(m.Matched), m.CatalogModel,
			floatField(m.Horsepower), m.ProductionYears,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv: %w", err)
	}
	return os.Rename(tmp, path)
}

func floatField(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
