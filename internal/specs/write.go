package specs

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agdata/tractorcrawl/internal/merge"
)

var catalogCSVHeader = []string{"brand", "model", "horsepower", "years", "url"}

// WriteCatalog writes the scraped catalog as JSON and CSV, replacing any
// previous run's files.
func WriteCatalog(dir string, records []merge.SpecRecord) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeCatalogJSON(filepath.Join(dir, "tractor_specs.json"), records); err != nil {
		return err
	}
	return writeCatalogCSV(filepath.Join(dir, "tractor_specs.csv"), records)
}

func writeCatalogJSON(path string, records []merge.SpecRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

func writeCatalogCSV(path string, records []merge.SpecRecord) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(catalogCSVHeader); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		if err := w.Write([]string{r.Brand, r.Model, r.Horsepower, r.Years, r.URL}); err != nil {
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
