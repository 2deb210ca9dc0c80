package crawl

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/metrics"
)

// Config controls the orchestrator's batching and pacing. Concurrency stays
// deliberately low to respect the target site's load limits.
type Config struct {
	BatchSize     int
	Workers       int
	BatchDelayMin time.Duration
	BatchDelayMax time.Duration
}

// DefaultConfig matches the run parameters the crawl was tuned with.
func DefaultConfig() Config {
	return Config{
		BatchSize:     2,
		Workers:       2,
		BatchDelayMin: 3 * time.Second,
		BatchDelayMax: 5 * time.Second,
	}
}

// JobFactory builds one fresh job per page. The orchestrator uses it both in
// the pooled main pass and in the serial post-pass retry sweep.
type JobFactory func(page int) Job

// Orchestrator partitions a page range into batches, fans jobs out over a
// bounded worker pool, accumulates normalized records, and flushes the whole
// accumulated set after every batch. Pages that yield nothing on the first
// pass get exactly one more serial attempt after the main pass.
type Orchestrator struct {
	cfg        Config
	newJob     JobFactory
	normalizer Normalizer
	sink       Sink
	pauser     Pauser
	logger     *zap.Logger

	// mu serializes record accumulation with the flush-to-store step.
	mu       sync.Mutex
	listings []Listing
	failed   []int
}

// New builds an Orchestrator.
func New(cfg Config, newJob JobFactory, normalizer Normalizer, sink Sink, logger *zap.Logger) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.BatchDelayMin <= 0 && cfg.BatchDelayMax <= 0 {
		cfg.BatchDelayMin = DefaultConfig().BatchDelayMin
		cfg.BatchDelayMax = DefaultConfig().BatchDelayMax
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:        cfg,
		newJob:     newJob,
		normalizer: normalizer,
		sink:       sink,
		pauser:     TimerPauser{},
		logger:     logger,
	}
}

type pageResult struct {
	page    int
	records []RawRecord
}

// Run crawls [startPage, endPage]. Single page failures never abort the run;
// only an interruption of the orchestration loop itself is returned as an
// error, and then only after a best-effort flush of whatever accumulated.
func (o *Orchestrator) Run(ctx context.Context, startPage, endPage int) error {
	if startPage < 1 || endPage < startPage {
		return fmt.Errorf("invalid page range [%d, %d]", startPage, endPage)
	}
	o.logger.Info("crawl started",
		zap.Int("start_page", startPage),
		zap.Int("end_page", endPage),
		zap.Int("batch_size", o.cfg.BatchSize),
		zap.Int("workers", o.cfg.Workers),
	)

	for batchStart := startPage; batchStart <= endPage; batchStart += o.cfg.BatchSize {
		batchEnd := batchStart + o.cfg.BatchSize - 1
		if batchEnd > endPage {
			batchEnd = endPage
		}
		o.logger.Info("processing batch", zap.Int("first_page", batchStart), zap.Int("last_page", batchEnd))

		for _, res := range o.runBatch(ctx, batchStart, batchEnd) {
			o.collect(res, metrics.OutcomeScraped)
		}
		o.flush(ctx)

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl interrupted: %w", err)
		}
		if batchEnd < endPage {
			o.pauser.Pause(ctx, randomBetween(o.cfg.BatchDelayMin, o.cfg.BatchDelayMax))
		}
	}

	o.retryFailedPages(ctx)
	o.flush(ctx)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	o.logSummary()
	return nil
}

// runBatch executes one job per page over the worker pool and returns the
// results in completion order. It blocks until every job in the batch is
// terminal; batches never overlap.
func (o *Orchestrator) runBatch(ctx context.Context, firstPage, lastPage int) []pageResult {
	out := make(chan pageResult, lastPage-firstPage+1)
	sem := make(chan struct{}, o.cfg.Workers)
	var wg sync.WaitGroup

	for page := firstPage; page <= lastPage; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			metrics.WorkerStarted()
			defer metrics.WorkerFinished()

			job := o.newJob(page)
			out <- pageResult{page: page, records: job.Run(ctx)}
		}(page)
	}
	wg.Wait()
	close(out)

	results := make([]pageResult, 0, lastPage-firstPage+1)
	for res := range out {
		results = append(results, res)
	}
	return results
}

// collect folds one page result into the accumulated set. A page that yields
// zero records is treated as a soft failure and queued for the post-pass
// retry, whether the job timed out, failed terminally, or genuinely saw an
// empty page.
func (o *Orchestrator) collect(res pageResult, outcome string) {
	if len(res.records) == 0 {
		o.mu.Lock()
		o.failed = append(o.failed, res.page)
		o.mu.Unlock()
		metrics.PageOutcome(metrics.OutcomeFailed)
		return
	}

	kept := 0
	o.mu.Lock()
	for _, raw := range res.records {
		if listing := o.normalizer.Normalize(raw); listing != nil {
			o.listings = append(o.listings, *listing)
			kept++
		}
	}
	total := len(o.listings)
	o.mu.Unlock()

	metrics.PageOutcome(outcome)
	metrics.RecordsAdded(kept)
	o.logger.Info("page collected",
		zap.Int("page", res.page),
		zap.Int("records", kept),
		zap.Int("total_records", total),
	)
}

// retryFailedPages runs one fresh job per failed page, serially and outside
// the pool. Pages that still yield nothing stay on the failed list.
func (o *Orchestrator) retryFailedPages(ctx context.Context) {
	o.mu.Lock()
	pages := append([]int(nil), o.failed...)
	o.failed = o.failed[:0]
	o.mu.Unlock()
	if len(pages) == 0 {
		return
	}
	sort.Ints(pages)
	o.logger.Info("retrying failed pages", zap.Ints("pages", pages))

	for _, page := range pages {
		if ctx.Err() != nil {
			o.mu.Lock()
			o.failed = append(o.failed, page)
			o.mu.Unlock()
			continue
		}
		o.pauser.Pause(ctx, randomBetween(o.cfg.BatchDelayMin, o.cfg.BatchDelayMax))
		job := o.newJob(page)
		o.collect(pageResult{page: page, records: job.Run(ctx)}, metrics.OutcomeRecovered)
	}
}

// flush rewrites the result store from the full accumulated set. The set only
// ever grows, so each flush is a superset of the previous one and a crash
// loses at most one batch of unflushed work. Flush errors are logged, not
// fatal: the next batch retries with a bigger set.
func (o *Orchestrator) flush(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.listings) == 0 {
		return
	}
	snapshot := append([]Listing(nil), o.listings...)
	if err := o.sink.Flush(ctx, snapshot); err != nil {
		o.logger.Error("flush failed", zap.Int("records", len(snapshot)), zap.Error(err))
		return
	}
	metrics.FlushCompleted(len(snapshot))
	o.logger.Info("results flushed", zap.Int("records", len(snapshot)))
}

func (o *Orchestrator) logSummary() {
	o.mu.Lock()
	records := len(o.listings)
	failed := append([]int(nil), o.failed...)
	o.mu.Unlock()
	sort.Ints(failed)
	if len(failed) > 0 {
		o.logger.Warn("pages produced no results after both passes", zap.Ints("pages", failed))
	}
	o.logger.Info("crawl finished", zap.Int("records", records), zap.Int("failed_pages", len(failed)))
}

// Results returns a copy of the accumulated listing set.
func (o *Orchestrator) Results() []Listing {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Listing(nil), o.listings...)
}

// FailedPages returns the pages that never produced records.
func (o *Orchestrator) FailedPages() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	pages := append([]int(nil), o.failed...)
	sort.Ints(pages)
	return pages
}
