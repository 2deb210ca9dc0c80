// Package cmd defines and implements the CLI commands for the tractorcrawl
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agdata/tractorcrawl/internal/app"
)

var cfgFile string

// appKeyType is the key for storing the App in the command context.
type appKeyType struct{}

var appKey appKeyType

// newApp is the application factory. It is a variable so tests can replace
// it with a factory returning a preconfigured container.
var newApp = app.New

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tractorcrawl",
		Short: "Scrapes used-tractor auction results from a hostile catalog site",
		Long: `tractorcrawl walks the paginated auction-results catalog with rotating
egress identities and short-lived headless browser sessions, extracts sale
records, and writes them to flat files after every batch so partial results
survive a failed run.`,

		// Runs after flag parsing but before the subcommand. Builds the DI
		// container and injects it into the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cfgFile)
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*app.App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults are built in)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newSpecsCmd())
	cmd.AddCommand(newMergeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
