// Package sink persists the accumulated listing set to flat files.
package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

var csvHeader = []string{"brand", "model", "price", "sold_date", "hours", "condition", "specs", "location"}

// FileSink rewrites a JSON file and a CSV file whole on every flush. The
// in-memory set is the source of truth; each write goes to a temp file and
// is renamed into place, so a crash mid-flush never truncates the previous
// output.
type FileSink struct {
	dir      string
	jsonName string
	csvName  string
	logger   *zap.Logger
}

// NewFileSink returns a sink rooted at dir.
func NewFileSink(dir, jsonName, csvName string, logger *zap.Logger) (*FileSink, error) {
	if dir == "" {
		dir = "."
	}
	if jsonName == "" {
		jsonName = "auction_results.json"
	}
	if csvName == "" {
		csvName = "auction_results.csv"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
	}
	return &FileSink{dir: dir, jsonName: jsonName, csvName: csvName, logger: logger}, nil
}

// Flush writes the full listing set to both output files.
func (s *FileSink) Flush(ctx context.Context, listings []crawl.Listing) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("flush canceled: %w", err)
	}
	if err := s.writeJSON(listings); err != nil {
		return err
	}
	if err := s.writeCSV(listings); err != nil {
		return err
	}
	s.logger.Info("results saved",
		zap.Int("records", len(listings)),
		zap.String("json", filepath.Join(s.dir, s.jsonName)),
		zap.String("csv", filepath.Join(s.dir, s.csvName)),
	)
	return nil
}

// JSONPath returns the path of the JSON output file.
func (s *FileSink) JSONPath() string { return filepath.Join(s.dir, s.jsonName) }

// CSVPath returns the path of the CSV output file.
func (s *FileSink) CSVPath() string { return filepath.Join(s.dir, s.csvName) }

func (s *FileSink) writeJSON(listings []crawl.Listing) error {
	payload, err := json.MarshalIndent(listings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal listings: %w", err)
	}
	return s.replaceFile(s.jsonName, payload)
}

func (s *FileSink) writeCSV(listings []crawl.Listing) error {
	tmp, err := os.CreateTemp(s.dir, s.csvName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp csv: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(csvHeader); err != nil {
		tmp.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, l := range listings {
		row := []string{
			l.Brand,
			l.Model,
			formatFloat(l.Price),
			l.SoldDate,
			formatFloat(l.Hours),
			l.Condition,
			l.Specs,
			l.Location,
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp csv: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, s.csvName)); err != nil {
		return fmt.Errorf("replace csv: %w", err)
	}
	return nil
}

func (s *FileSink) replaceFile(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
