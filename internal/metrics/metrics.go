// Package metrics exposes Prometheus collectors for the crawl run.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal       *prometheus.CounterVec
	jobAttemptsTotal prometheus.Counter
	recordsTotal     prometheus.Counter
	flushesTotal     prometheus.Counter
	flushedRecords   prometheus.Gauge
	identityPool     prometheus.Gauge
	activeWorkers    prometheus.Gauge

	once sync.Once
)

// Page outcome labels.
const (
	OutcomeScraped   = "scraped"
	OutcomeFailed    = "failed"
	OutcomeRecovered = "recovered"
)

// Init registers the collectors. Safe to call more than once; setters are
// no-ops until it runs.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawl_pages_total",
				Help: "Pages processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		jobAttemptsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawl_job_attempts_total",
				Help: "Page fetch attempts started, including retries.",
			},
		)
		recordsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawl_records_total",
				Help: "Normalized listings accumulated across the run.",
			},
		)
		flushesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawl_flushes_total",
				Help: "Result store flushes performed.",
			},
		)
		flushedRecords = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawl_flushed_records",
				Help: "Record count written by the most recent flush.",
			},
		)
		identityPool = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawl_identity_pool_size",
				Help: "Validated egress identities currently in the pool.",
			},
		)
		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawl_active_workers",
				Help: "Workers currently executing page fetch jobs.",
			},
		)
	})
}

// PageOutcome counts one finished page with the given outcome label.
func PageOutcome(outcome string) {
	if pagesTotal == nil {
		return
	}
	pagesTotal.WithLabelValues(outcome).Inc()
}

// JobAttempt counts one started fetch attempt.
func JobAttempt() {
	if jobAttemptsTotal == nil {
		return
	}
	jobAttemptsTotal.Inc()
}

// RecordsAdded counts n newly accumulated listings.
func RecordsAdded(n int) {
	if recordsTotal == nil || n <= 0 {
		return
	}
	recordsTotal.Add(float64(n))
}

// FlushCompleted records one flush of n listings.
func FlushCompleted(n int) {
	if flushesTotal == nil {
		return
	}
	flushesTotal.Inc()
	flushedRecords.Set(float64(n))
}

// IdentityPoolSize reports the current validated identity count.
func IdentityPoolSize(n int) {
	if identityPool == nil {
		return
	}
	identityPool.Set(float64(n))
}

// WorkerStarted marks a worker as busy.
func WorkerStarted() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Inc()
}

// WorkerFinished marks a worker as idle again.
func WorkerFinished() {
	if activeWorkers == nil {
		return
	}
	activeWorkers.Dec()
}
