package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/specs"
)

func newSpecsCmd() *cobra.Command {
	var outDir string
	var brands []string

	cmd := &cobra.Command{
		Use:   "specs",
		Short: "Scrapes the tractor specification catalog",
		Long: `Walks one catalog page per brand and collects every model's
horsepower and production years, then writes the catalog as JSON and CSV
for the merge command to match against.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSpecs(cmd, outDir, brands)
		},
	}

	cmd.Flags().StringVar(&outDir, "out", ".", "output directory for the catalog files")
	cmd.Flags().StringSliceVar(&brands, "brands", nil, "brands to scrape (default: the full catalog)")

	return cmd
}

func runSpecs(cmd *cobra.Command, outDir string, brands []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config().Specs
	logger := appInstance.Logger()

	if len(brands) == 0 {
		brands = cfg.Brands
	}
	scraper := specs.NewScraper(specs.Config{
		BaseURL:      cfg.BaseURL,
		Brands:       brands,
		Workers:      cfg.Workers,
		FetchTimeout: cfg.FetchTimeout(),
		RequestDelay: cfg.RequestDelay(),
	}, logger)

	records, err := scraper.ScrapeAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("scrape catalog: %w", err)
	}
	if err := specs.WriteCatalog(outDir, records); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	logger.Info("catalog scrape finished", zap.Int("models", len(records)))
	return nil
}
