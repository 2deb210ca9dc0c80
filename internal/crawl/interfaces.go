package crawl

import (
	"context"
	"errors"
	"time"
)

// ErrSessionInit reports that the underlying browser process could not start,
// including its fallback initialization path.
var ErrSessionInit = errors.New("browser session init failed")

// ErrWaitTimeout reports that the item-list selector never became visible
// within the wait budget. Callers treat it as "zero records this attempt".
var ErrWaitTimeout = errors.New("timed out waiting for items")

// Session is one headless browser instance scoped to a single fetch attempt.
// Close must be safe to call on every exit path and more than once.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitForItems(ctx context.Context, selector string, timeout time.Duration) ([]string, error)
	ScrollToBottom(ctx context.Context) error
	Close()
}

// SessionFactory opens fresh browser sessions. A session from a prior
// attempt is never reused.
type SessionFactory interface {
	Open(ctx context.Context, cfg SessionConfig) (Session, error)
}

// IdentityProvider hands out one egress identity per session. The second
// return is false when no validated identity is available, which is not an
// error: callers proceed unproxied.
type IdentityProvider interface {
	Acquire(ctx context.Context) (Egress, bool)
}

// Extractor turns one item element's HTML into a raw attribute mapping.
// Pure and page-structure-specific; one failing item never aborts a page.
type Extractor interface {
	Extract(itemHTML string) (RawRecord, error)
}

// Normalizer converts raw text attributes into a typed listing. A nil result
// means the record is discarded, not an error.
type Normalizer interface {
	Normalize(raw RawRecord) *Listing
}

// Sink persists the accumulated record set. Flush has overwrite semantics:
// the in-memory set is the source of truth and is rewritten whole each call.
type Sink interface {
	Flush(ctx context.Context, listings []Listing) error
}

// Job is the retryable unit of work that turns one page number into zero or
// more raw records. Run never returns an error: a job that exhausts its
// attempt budget ends in JobFailed with an empty result.
type Job interface {
	Page() int
	Run(ctx context.Context) []RawRecord
	State() JobState
}

// Pauser abstracts how components sleep, so tests can skip real delays.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}
