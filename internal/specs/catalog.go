// Package specs scrapes the tractordata.com specification catalog: one page
// per brand, each carrying tables of model, horsepower, and production
// years. The output feeds the merge tool's matcher.
package specs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/agdata/tractorcrawl/internal/merge"
)

// DefaultBrands is the catalog's brand coverage.
var DefaultBrands = []string{
	"AGCO", "Allis Chalmers", "Belarus", "Big Bud", "Case", "Case IH",
	"Caterpillar", "Challenger", "Claas", "Deutz", "Deutz-Fahr", "Fendt",
	"Ford", "International Harvester", "John Deere", "Kioti", "Kubota",
	"Landini", "Mahindra", "Massey Ferguson", "McCormick",
	"Minneapolis-Moline", "New Holland", "Oliver", "Same", "Steiger",
	"Valtra", "Versatile", "White", "Yanmar", "Zetor",
}

// brandSlugs lists the brands whose catalog URL slug is not derivable by
// lowercasing and stripping separators.
var brandSlugs = map[string]string{
	"Case IH":                 "caseih",
	"International Harvester": "ih",
	"Massey Ferguson":         "massey-ferguson",
	"Minneapolis-Moline":      "minneapolis-moline",
	"New Holland":             "newholland",
	"Deutz-Fahr":              "deutz-fahr",
	"McCormick":               "mccormick",
	"Big Bud":                 "bigbud",
}

// BrandPageURL returns the catalog page listing every model of a brand.
func BrandPageURL(baseURL, brand string) string {
	slug, ok := brandSlugs[brand]
	if !ok {
		slug = strings.ToLower(brand)
		for _, cut := range []string{" ", "-", "."} {
			slug = strings.ReplaceAll(slug, cut, "")
		}
	}
	return fmt.Sprintf("%s/farm-tractors/tractor-brands/%s/%s-tractors.html", baseURL, slug, slug)
}

// Config controls the catalog scrape.
type Config struct {
	BaseURL      string
	Brands       []string
	Workers      int
	FetchTimeout time.Duration
	RequestDelay time.Duration
}

// DefaultConfig matches the pacing the catalog site tolerates.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "https://www.tractordata.com",
		Workers:      4,
		FetchTimeout: 10 * time.Second,
		RequestDelay: time.Second,
	}
}

// Scraper walks one brand page per brand and collects its model tables.
type Scraper struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewScraper builds a Scraper.
func NewScraper(cfg Config, logger *zap.Logger) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if len(cfg.Brands) == 0 {
		cfg.Brands = DefaultBrands
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = DefaultConfig().RequestDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		logger:  logger,
	}
}

// ScrapeAll fetches every brand page over a bounded worker set and returns
// the combined catalog, sorted by brand then model. A brand that fails to
// fetch or parse is logged and skipped; the scrape fails only when it is
// interrupted or when no brand yields anything.
func (s *Scraper) ScrapeAll(ctx context.Context) ([]merge.SpecRecord, error) {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		records []merge.SpecRecord
	)
	g.SetLimit(s.cfg.Workers)

	for _, brand := range s.cfg.Brands {
		g.Go(func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("catalog pacing: %w", err)
			}
			brandRecords, err := s.scrapeBrand(brand)
			if err != nil {
				s.logger.Warn("brand page failed", zap.String("brand", brand), zap.Error(err))
				return nil
			}
			s.logger.Info("brand scraped",
				zap.String("brand", brand),
				zap.Int("models", len(brandRecords)))
			mu.Lock()
			records = append(records, brandRecords...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no brand yielded catalog records")
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Brand != records[j].Brand {
			return records[i].Brand < records[j].Brand
		}
		return records[i].Model < records[j].Model
	})
	return records, nil
}

func (s *Scraper) scrapeBrand(brand string) ([]merge.SpecRecord, error) {
	body, err := s.fetch(BrandPageURL(s.cfg.BaseURL, brand))
	if err != nil {
		return nil, err
	}
	return parseBrandPage(s.cfg.BaseURL, brand, body)
}
