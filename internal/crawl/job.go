package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/agdata/tractorcrawl/internal/metrics"
)

// PacingConfig holds the randomized sleep windows that make an attempt look
// like a human visit. The scroll settle window doubles as the lazy-load
// completion wait, since the catalog only renders items on scroll.
type PacingConfig struct {
	PreNavMin       time.Duration
	PreNavMax       time.Duration
	ScrollSettleMin time.Duration
	ScrollSettleMax time.Duration
	RetryMin        time.Duration
	RetryMax        time.Duration
}

// DefaultPacing mirrors the site-friendly delays the crawl was tuned with.
func DefaultPacing() PacingConfig {
	return PacingConfig{
		PreNavMin:       1 * time.Second,
		PreNavMax:       2 * time.Second,
		ScrollSettleMin: 500 * time.Millisecond,
		ScrollSettleMax: 1 * time.Second,
		RetryMin:        2 * time.Second,
		RetryMax:        5 * time.Second,
	}
}

// JobDeps bundles everything a PageJob needs. Browser is a template: the
// proxy server and user agent are filled in per attempt from the acquired
// identity.
type JobDeps struct {
	Target      TargetConfig
	Pacing      PacingConfig
	Browser     SessionConfig
	MaxAttempts int
	Sessions    SessionFactory
	Identities  IdentityProvider
	Extractor   Extractor
	Limiter     *rate.Limiter
	Pauser      Pauser
	Logger      *zap.Logger
}

// PageJob fetches one catalog page. It is an explicit retry state machine:
// Pending -> Attempting -> {Succeeded, Failed}, with an errored attempt
// re-entering Attempting until the attempt budget runs out.
type PageJob struct {
	page     int
	state    JobState
	attempts int
	deps     JobDeps
}

// NewPageJob builds a job for one page number.
func NewPageJob(page int, deps JobDeps) *PageJob {
	if deps.MaxAttempts <= 0 {
		deps.MaxAttempts = 3
	}
	if deps.Pauser == nil {
		deps.Pauser = TimerPauser{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &PageJob{
		page:  page,
		state: JobPending,
		deps:  deps,
	}
}

// Page returns the page number this job fetches.
func (j *PageJob) Page() int { return j.page }

// State returns the job's current lifecycle state.
func (j *PageJob) State() JobState { return j.state }

// Attempts returns how many attempts have started.
func (j *PageJob) Attempts() int { return j.attempts }

// Run drives the job to a terminal state and returns whatever records the
// final attempt produced. Exhausting the attempt budget yields an empty
// result and JobFailed; the caller records the page, it is never an error.
func (j *PageJob) Run(ctx context.Context) []RawRecord {
	for j.attempts < j.deps.MaxAttempts {
		j.state = JobAttempting
		j.attempts++
		metrics.JobAttempt()

		records, err := j.attempt(ctx)
		if err == nil {
			j.state = JobSucceeded
			return records
		}
		j.deps.Logger.Warn("page attempt failed",
			zap.Int("page", j.page),
			zap.Int("attempt", j.attempts),
			zap.Int("max_attempts", j.deps.MaxAttempts),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
		if j.attempts < j.deps.MaxAttempts {
			j.deps.Pauser.Pause(ctx, randomBetween(j.deps.Pacing.RetryMin, j.deps.Pacing.RetryMax))
		}
	}
	j.state = JobFailed
	return nil
}

// attempt opens a fresh session, fetches the page, and extracts its items.
// The session is closed on every exit path; it never outlives the attempt.
func (j *PageJob) attempt(ctx context.Context) ([]RawRecord, error) {
	cfg := j.deps.Browser
	egress, proxied := j.deps.Identities.Acquire(ctx)
	if egress.UserAgent != "" {
		cfg.UserAgent = egress.UserAgent
		cfg.Headers = egress.Headers
	}
	if proxied {
		cfg.ProxyServer = egress.ProxyURL
	}

	sess, err := j.deps.Sessions.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	j.deps.Pauser.Pause(ctx, randomBetween(j.deps.Pacing.PreNavMin, j.deps.Pacing.PreNavMax))
	if j.deps.Limiter != nil {
		if err := j.deps.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("navigation rate budget: %w", err)
		}
	}

	target := PageURL(j.deps.Target, j.page)
	if err := sess.Navigate(ctx, target); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", target, err)
	}
	if err := sess.ScrollToBottom(ctx); err != nil {
		return nil, fmt.Errorf("scroll page %d: %w", j.page, err)
	}
	j.deps.Pauser.Pause(ctx, randomBetween(j.deps.Pacing.ScrollSettleMin, j.deps.Pacing.ScrollSettleMax))

	items, err := sess.WaitForItems(ctx, j.deps.Target.ItemSelector, j.deps.Target.WaitTimeout)
	if errors.Is(err, ErrWaitTimeout) {
		// Zero records for this attempt. Not retried here; the orchestrator's
		// failed-page tracking gives the page one more pass.
		j.deps.Logger.Warn("timed out waiting for listings", zap.Int("page", j.page))
		return []RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("wait for items: %w", err)
	}

	records := make([]RawRecord, 0, len(items))
	for i, itemHTML := range items {
		rec, exErr := j.deps.Extractor.Extract(itemHTML)
		if exErr != nil {
			j.deps.Logger.Debug("skipping unextractable item",
				zap.Int("page", j.page),
				zap.Int("item", i),
				zap.Error(exErr),
			)
			continue
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	j.deps.Logger.Info("page scraped",
		zap.Int("page", j.page),
		zap.Int("items", len(items)),
		zap.Int("records", len(records)),
		zap.Bool("proxied", proxied),
	)
	return records, nil
}
