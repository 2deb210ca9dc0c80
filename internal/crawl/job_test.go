package crawl_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

// fakeSession scripts one attempt's outcome and records whether the job
// closed it.
type fakeSession struct {
	navErr  error
	waitErr error
	items   []string

	mu     sync.Mutex
	closes int
}

func (s *fakeSession) Navigate(_ context.Context, _ string) error { return s.navErr }

func (s *fakeSession) ScrollToBottom(_ context.Context) error { return nil }

func (s *fakeSession) WaitForItems(_ context.Context, _ string, _ time.Duration) ([]string, error) {
	if s.waitErr != nil {
		return nil, s.waitErr
	}
	return s.items, nil
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
}

func (s *fakeSession) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes > 0
}

// openResult scripts one Open call: either a session or an error.
type openResult struct {
	sess *fakeSession
	err  error
}

// fakeFactory hands out scripted open results in order, one per attempt.
// The last entry repeats if the job opens more sessions than scripted.
type fakeFactory struct {
	queue []openResult
	opens int
}

func scriptedFactory(results ...openResult) *fakeFactory {
	return &fakeFactory{queue: results}
}

func (f *fakeFactory) Open(_ context.Context, _ crawl.SessionConfig) (crawl.Session, error) {
	i := f.opens
	f.opens++
	if i >= len(f.queue) {
		i = len(f.queue) - 1
	}
	r := f.queue[i]
	if r.err != nil {
		return nil, r.err
	}
	return r.sess, nil
}

type fakeIdentities struct {
	egress  crawl.Egress
	proxied bool
}

func (f *fakeIdentities) Acquire(_ context.Context) (crawl.Egress, bool) {
	return f.egress, f.proxied
}

// keyExtractor maps each item HTML string onto a single-field record, and
// fails items whose HTML equals "broken".
type keyExtractor struct{}

func (keyExtractor) Extract(itemHTML string) (crawl.RawRecord, error) {
	if itemHTML == "broken" {
		return nil, errors.New("unparseable item")
	}
	return crawl.RawRecord{crawl.FieldTitle: itemHTML}, nil
}

type noopPauser struct{}

func (noopPauser) Pause(_ context.Context, _ time.Duration) {}

func testJobDeps(factory *fakeFactory) crawl.JobDeps {
	return crawl.JobDeps{
		Target: crawl.TargetConfig{
			BaseURL:      "https://catalog.test/auction_results",
			Category:     "tractors",
			SortTerm:     "recent",
			PageLimit:    72,
			ItemSelector: ".listing",
			WaitTimeout:  time.Second,
		},
		MaxAttempts: 3,
		Sessions:    factory,
		Identities:  &fakeIdentities{egress: crawl.Egress{UserAgent: "test-agent"}},
		Extractor:   keyExtractor{},
		Pauser:      noopPauser{},
	}
}

func TestPageJobSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{items: []string{"item-a", "item-b"}}
	factory := scriptedFactory(openResult{sess: sess})
	job := crawl.NewPageJob(3, testJobDeps(factory))

	records := job.Run(context.Background())

	require.Len(t, records, 2)
	assert.Equal(t, "item-a", records[0][crawl.FieldTitle])
	assert.Equal(t, crawl.JobSucceeded, job.State())
	assert.Equal(t, 1, job.Attempts())
	assert.True(t, sess.closed(), "session must be closed after the attempt")
}

func TestPageJobRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	failing := []*fakeSession{
		{navErr: errors.New("connection reset")},
		{navErr: errors.New("connection reset")},
	}
	good := &fakeSession{items: []string{"item-a"}}
	factory := scriptedFactory(
		openResult{sess: failing[0]},
		openResult{sess: failing[1]},
		openResult{sess: good},
	)
	job := crawl.NewPageJob(1, testJobDeps(factory))

	records := job.Run(context.Background())

	require.Len(t, records, 1)
	assert.Equal(t, crawl.JobSucceeded, job.State())
	assert.Equal(t, 3, job.Attempts())
	for i, sess := range failing {
		assert.True(t, sess.closed(), "failed attempt %d must close its session", i+1)
	}
	assert.True(t, good.closed())
}

func TestPageJobExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	sessions := []*fakeSession{
		{navErr: errors.New("blocked")},
		{navErr: errors.New("blocked")},
		{navErr: errors.New("blocked")},
	}
	factory := scriptedFactory(
		openResult{sess: sessions[0]},
		openResult{sess: sessions[1]},
		openResult{sess: sessions[2]},
	)
	job := crawl.NewPageJob(1, testJobDeps(factory))

	records := job.Run(context.Background())

	assert.Empty(t, records)
	assert.Equal(t, crawl.JobFailed, job.State())
	assert.Equal(t, 3, job.Attempts())
	assert.Equal(t, 3, factory.opens, "each attempt must get a fresh session")
	for _, sess := range sessions {
		assert.True(t, sess.closed())
	}
}

func TestPageJobWaitTimeoutYieldsZeroRecords(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{waitErr: crawl.ErrWaitTimeout}
	factory := scriptedFactory(openResult{sess: sess})
	job := crawl.NewPageJob(7, testJobDeps(factory))

	records := job.Run(context.Background())

	require.NotNil(t, records, "timeout is a soft outcome, not a failure")
	assert.Empty(t, records)
	assert.Equal(t, crawl.JobSucceeded, job.State())
	assert.Equal(t, 1, job.Attempts(), "a timed-out load must not burn extra attempts")
	assert.True(t, sess.closed())
}

func TestPageJobSessionInitFailureRetries(t *testing.T) {
	t.Parallel()

	good := &fakeSession{items: []string{"item-a"}}
	factory := scriptedFactory(
		openResult{err: crawl.ErrSessionInit},
		openResult{sess: good},
	)
	job := crawl.NewPageJob(1, testJobDeps(factory))

	records := job.Run(context.Background())

	require.Len(t, records, 1)
	assert.Equal(t, 2, job.Attempts())
	assert.Equal(t, crawl.JobSucceeded, job.State())
}

func TestPageJobSkipsUnextractableItems(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{items: []string{"item-a", "broken", "item-b"}}
	factory := scriptedFactory(openResult{sess: sess})
	job := crawl.NewPageJob(1, testJobDeps(factory))

	records := job.Run(context.Background())

	require.Len(t, records, 2)
	assert.Equal(t, crawl.JobSucceeded, job.State())
}

func TestPageJobStopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{navErr: errors.New("blocked")}
	factory := scriptedFactory(openResult{sess: sess})
	job := crawl.NewPageJob(1, testJobDeps(factory))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	records := job.Run(ctx)

	assert.Empty(t, records)
	assert.Equal(t, crawl.JobFailed, job.State())
	assert.Equal(t, 1, job.Attempts(), "cancellation must stop the retry loop")
}
