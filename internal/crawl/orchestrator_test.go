package crawl_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

// stubJob returns scripted records without touching a browser.
type stubJob struct {
	page    int
	records []crawl.RawRecord
	state   crawl.JobState
}

func (j *stubJob) Page() int { return j.page }

func (j *stubJob) Run(_ context.Context) []crawl.RawRecord { return j.records }

func (j *stubJob) State() crawl.JobState { return j.state }

// scriptedJobs builds a JobFactory that replays per-page record scripts.
// Each call for a page consumes the next script entry; the last entry
// repeats.
type scriptedJobs struct {
	mu      sync.Mutex
	scripts map[int][][]crawl.RawRecord
	calls   map[int]int
}

func newScriptedJobs(scripts map[int][][]crawl.RawRecord) *scriptedJobs {
	return &scriptedJobs{scripts: scripts, calls: make(map[int]int)}
}

func (s *scriptedJobs) factory(page int) crawl.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	script := s.scripts[page]
	i := s.calls[page]
	s.calls[page]++
	if i >= len(script) {
		i = len(script) - 1
	}
	var records []crawl.RawRecord
	if i >= 0 {
		records = script[i]
	}
	state := crawl.JobSucceeded
	if len(records) == 0 {
		state = crawl.JobFailed
	}
	return &stubJob{page: page, records: records, state: state}
}

func (s *scriptedJobs) callsFor(page int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[page]
}

// memorySink records every flush snapshot.
type memorySink struct {
	mu       sync.Mutex
	flushes  [][]crawl.Listing
	flushErr error
}

func (s *memorySink) Flush(_ context.Context, listings []crawl.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flushErr != nil {
		return s.flushErr
	}
	s.flushes = append(s.flushes, append([]crawl.Listing(nil), listings...))
	return nil
}

func (s *memorySink) snapshots() [][]crawl.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// titleNormalizer lifts the raw title into the model field unchanged.
type titleNormalizer struct{}

func (titleNormalizer) Normalize(raw crawl.RawRecord) *crawl.Listing {
	if len(raw) == 0 {
		return nil
	}
	return &crawl.Listing{Model: raw[crawl.FieldTitle]}
}

func pageRecords(page, n int) []crawl.RawRecord {
	records := make([]crawl.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, crawl.RawRecord{
			crawl.FieldTitle: fmt.Sprintf("page-%d-item-%d", page, i),
		})
	}
	return records
}

func fastConfig() crawl.Config {
	return crawl.Config{
		BatchSize:     2,
		Workers:       2,
		BatchDelayMin: time.Millisecond,
		BatchDelayMax: 2 * time.Millisecond,
	}
}

func TestOrchestratorCrawlsRange(t *testing.T) {
	t.Parallel()

	jobs := newScriptedJobs(map[int][][]crawl.RawRecord{
		1: {pageRecords(1, 3)},
		2: {pageRecords(2, 3)},
		3: {pageRecords(3, 3)},
		4: {pageRecords(4, 2)},
	})
	sink := &memorySink{}
	o := crawl.New(fastConfig(), jobs.factory, titleNormalizer{}, sink, nil)

	require.NoError(t, o.Run(context.Background(), 1, 4))

	assert.Len(t, o.Results(), 11)
	assert.Empty(t, o.FailedPages())
	for _, page := range []int{1, 2, 3, 4} {
		assert.Equal(t, 1, jobs.callsFor(page))
	}
}

func TestOrchestratorFlushesAfterEveryBatchAndGrowsMonotonically(t *testing.T) {
	t.Parallel()

	jobs := newScriptedJobs(map[int][][]crawl.RawRecord{
		1: {pageRecords(1, 2)},
		2: {pageRecords(2, 2)},
		3: {pageRecords(3, 2)},
		4: {pageRecords(4, 2)},
	})
	sink := &memorySink{}
	o := crawl.New(fastConfig(), jobs.factory, titleNormalizer{}, sink, nil)

	require.NoError(t, o.Run(context.Background(), 1, 4))

	snapshots := sink.snapshots()
	// Two batches plus the final flush.
	require.Len(t, snapshots, 3)
	assert.Len(t, snapshots[0], 4)
	assert.Len(t, snapshots[1], 8)
	assert.Len(t, snapshots[2], 8)

	// Every flush carries the whole accumulated set so far.
	for i := 1; i < len(snapshots); i++ {
		require.GreaterOrEqual(t, len(snapshots[i]), len(snapshots[i-1]))
		assert.Equal(t, snapshots[i-1], snapshots[i][:len(snapshots[i-1])])
	}
}

func TestOrchestratorRecoversFailedPageInPostPass(t *testing.T) {
	t.Parallel()

	jobs := newScriptedJobs(map[int][][]crawl.RawRecord{
		1: {pageRecords(1, 2)},
		2: {nil, pageRecords(2, 2)},
	})
	sink := &memorySink{}
	o := crawl.New(fastConfig(), jobs.factory, titleNormalizer{}, sink, nil)

	require.NoError(t, o.Run(context.Background(), 1, 2))

	assert.Len(t, o.Results(), 4)
	assert.Empty(t, o.FailedPages())
	assert.Equal(t, 2, jobs.callsFor(2), "failed page gets exactly one fresh retry job")
}

func TestOrchestratorKeepsPageFailedAfterPostPass(t *testing.T) {
	t.Parallel()

	jobs := newScriptedJobs(map[int][][]crawl.RawRecord{
		1: {pageRecords(1, 2)},
		2: {nil},
	})
	sink := &memorySink{}
	o := crawl.New(fastConfig(), jobs.factory, titleNormalizer{}, sink, nil)

	require.NoError(t, o.Run(context.Background(), 1, 2),
		"a page failing both passes must not abort the run")

	assert.Len(t, o.Results(), 2)
	assert.Equal(t, []int{2}, o.FailedPages())
	assert.Equal(t, 2, jobs.callsFor(2))
}

func TestOrchestratorRejectsInvalidRange(t *testing.T) {
	t.Parallel()

	o := crawl.New(fastConfig(), func(int) crawl.Job { return &stubJob{} }, titleNormalizer{}, &memorySink{}, nil)

	assert.Error(t, o.Run(context.Background(), 0, 3))
	assert.Error(t, o.Run(context.Background(), 5, 4))
}

func TestOrchestratorFlushErrorIsNotFatal(t *testing.T) {
	t.Parallel()

	jobs := newScriptedJobs(map[int][][]crawl.RawRecord{
		1: {pageRecords(1, 2)},
		2: {pageRecords(2, 2)},
	})
	sink := &memorySink{flushErr: errors.New("disk full")}
	o := crawl.New(fastConfig(), jobs.factory, titleNormalizer{}, sink, nil)

	require.NoError(t, o.Run(context.Background(), 1, 2))
	assert.Len(t, o.Results(), 4, "records stay accumulated even when flushing fails")
}

func TestOrchestratorReturnsErrorWhenInterrupted(t *testing.T) {
	t.Parallel()

	jobs := newScriptedJobs(map[int][][]crawl.RawRecord{
		1: {pageRecords(1, 2)},
		2: {pageRecords(2, 2)},
	})
	sink := &memorySink{}
	o := crawl.New(fastConfig(), jobs.factory, titleNormalizer{}, sink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := o.Run(ctx, 1, 2)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotEmpty(t, sink.snapshots(), "interruption still flushes what accumulated")
}
