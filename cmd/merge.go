package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/merge"
)

func newMergeCmd() *cobra.Command {
	var listingsPath, specsPath, outDir string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Joins crawled listings with a specification catalog",
		Long: `Matches each crawled auction listing against a manufacturer
specification catalog by cleaned model name, exact match first and fuzzy
match second, and writes the enriched dataset plus a match report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMerge(cmd, listingsPath, specsPath, outDir, threshold)
		},
	}

	cmd.Flags().StringVar(&listingsPath, "listings", "auction_results.json", "crawled listings JSON file")
	cmd.Flags().StringVar(&specsPath, "specs", "tractor_specs.json", "specification catalog JSON file")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory for merged files")
	cmd.Flags().Float64Var(&threshold, "threshold", merge.DefaultThreshold, "minimum fuzzy match similarity")

	return cmd
}

func runMerge(cmd *cobra.Command, listingsPath, specsPath, outDir string, threshold float64) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	logger := appInstance.Logger()

	listings, err := merge.LoadListings(listingsPath)
	if err != nil {
		return err
	}
	specs, err := merge.LoadSpecs(specsPath)
	if err != nil {
		return err
	}

	matcher := merge.NewMatcher(specs, threshold)
	merged, report := merge.Merge(listings, matcher, logger)
	if err := merge.WriteMerged(outDir, merged, report); err != nil {
		return fmt.Errorf("write merged output: %w", err)
	}

	logger.Info("merge finished",
		zap.Int("total", report.Total),
		zap.Int("matched", report.Matched),
		zap.Float64("match_rate", report.MatchRate))
	return nil
}
