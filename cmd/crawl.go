package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agdata/tractorcrawl/internal/browser"
	"github.com/agdata/tractorcrawl/internal/crawl"
	"github.com/agdata/tractorcrawl/internal/extract"
	"github.com/agdata/tractorcrawl/internal/identity"
	"github.com/agdata/tractorcrawl/internal/logging"
	"github.com/agdata/tractorcrawl/internal/normalize"
	"github.com/agdata/tractorcrawl/internal/ops"
	"github.com/agdata/tractorcrawl/internal/sink"
)

func newCrawlCmd() *cobra.Command {
	var startPage, endPage int

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls a page range of auction results",
		Long: `Fetches the configured catalog pages in small batches, rotating egress
identities and opening a fresh headless browser per attempt. Accumulated
results are flushed to the output files after every batch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), startPage, endPage)
		},
	}

	cmd.Flags().IntVar(&startPage, "start", 1, "first catalog page to fetch")
	cmd.Flags().IntVar(&endPage, "end", 1, "last catalog page to fetch (inclusive)")

	return cmd
}

func runCrawl(ctx context.Context, startPage, endPage int) error {
	appInstance, err := resolveApp(ctx)
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := logging.WithRun(appInstance.Logger())

	if cfg.Ops.Enabled {
		ops.NewServer(cfg.Ops.Port, logger).Start(ctx)
	}

	source := identity.NewListSource(cfg.Identity.Providers, cfg.Identity.FetchTimeout(), logger)
	prober := identity.NewHTTPProber(cfg.Identity.ProbeURL, cfg.Identity.ProbeTimeout())
	pool := identity.NewPool(identity.Config{
		ProbeURL:           cfg.Identity.ProbeURL,
		RefreshInterval:    cfg.Identity.RefreshInterval(),
		EmptyRetryCooldown: cfg.Identity.EmptyRetryCooldown(),
		CandidateCap:       cfg.Identity.CandidateCap,
		KeepTarget:         cfg.Identity.KeepTarget,
		ProbeTimeout:       cfg.Identity.ProbeTimeout(),
		ProbeParallelism:   cfg.Identity.ProbeParallelism,
	}, source, prober, logger)

	deps := crawl.JobDeps{
		Target: crawl.TargetConfig{
			BaseURL:      cfg.Crawl.BaseURL,
			Category:     cfg.Crawl.Category,
			SortTerm:     cfg.Crawl.SortTerm,
			PageLimit:    cfg.Crawl.PageLimit,
			ItemSelector: cfg.Crawl.ItemSelector,
			WaitTimeout:  cfg.Crawl.WaitTimeout(),
		},
		Pacing: crawl.DefaultPacing(),
		Browser: crawl.SessionConfig{
			WindowW:     cfg.Browser.WindowWidth,
			WindowH:     cfg.Browser.WindowHeight,
			InitTimeout: cfg.Browser.InitTimeout(),
			NavTimeout:  cfg.Browser.NavTimeout(),
		},
		MaxAttempts: cfg.Crawl.MaxAttempts,
		Sessions:    browser.NewFactory(logger),
		Identities:  pool,
		Extractor:   extract.New(),
		Limiter:     rate.NewLimiter(rate.Limit(cfg.Crawl.NavQPS), 1),
		Pauser:      crawl.TimerPauser{},
		Logger:      logger,
	}

	store, err := sink.NewFileSink(cfg.Sink.Dir, cfg.Sink.JSONFile, cfg.Sink.CSVFile, logger)
	if err != nil {
		return fmt.Errorf("init result store: %w", err)
	}

	orchestrator := crawl.New(
		crawl.Config{
			BatchSize: cfg.Crawl.BatchSize,
			Workers:   cfg.Crawl.Workers,
		},
		func(page int) crawl.Job { return crawl.NewPageJob(page, deps) },
		normalize.New(),
		store,
		logger,
	)

	if err := orchestrator.Run(ctx, startPage, endPage); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("crawl command finished",
		zap.String("json", store.JSONPath()),
		zap.String("csv", store.CSVPath()))
	return nil
}
