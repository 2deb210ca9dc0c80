package identity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agdata/tractorcrawl/internal/crawl"
	"github.com/agdata/tractorcrawl/internal/metrics"
)

// Identity is one validated proxy endpoint. The pool owns all identities;
// callers never hold one past a single use.
type Identity struct {
	Endpoint    string
	ValidatedAt time.Time
}

// Config controls pool refresh and probing. EmptyRetryCooldown debounces
// the empty-pool refresh trigger so an unreachable provider is not fetched
// on every acquisition, only every cooldown.
type Config struct {
	ProbeURL           string
	RefreshInterval    time.Duration
	EmptyRetryCooldown time.Duration
	CandidateCap       int
	KeepTarget         int
	ProbeTimeout       time.Duration
	ProbeParallelism   int
}

// DefaultConfig returns the refresh policy the crawl was tuned with.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:    300 * time.Second,
		EmptyRetryCooldown: 30 * time.Second,
		CandidateCap:       50,
		KeepTarget:         10,
		ProbeTimeout:       3 * time.Second,
		ProbeParallelism:   8,
	}
}

// CandidateSource fetches untested proxy endpoint candidates.
type CandidateSource interface {
	Fetch(ctx context.Context) ([]string, error)
}

// Prober checks whether a candidate endpoint relays traffic to a
// known-reachable target.
type Prober interface {
	Probe(ctx context.Context, endpoint string) error
}

// Pool hands out egress identities round-robin over its validated set. A
// single mutex makes acquisition and refresh mutually exclusive; a refresh
// blocks concurrent acquirers but holds no other locks, so it cannot
// deadlock the pool. A failing identity is not ejected between refreshes.
type Pool struct {
	cfg    Config
	source CandidateSource
	prober Prober
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	identities  []Identity
	next        int
	lastRefresh time.Time
}

// NewPool builds a Pool over the given source and prober.
func NewPool(cfg Config, source CandidateSource, prober Prober, logger *zap.Logger) *Pool {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 300 * time.Second
	}
	if cfg.EmptyRetryCooldown <= 0 {
		cfg.EmptyRetryCooldown = 30 * time.Second
	}
	if cfg.CandidateCap <= 0 {
		cfg.CandidateCap = 50
	}
	if cfg.KeepTarget <= 0 {
		cfg.KeepTarget = 10
	}
	if cfg.ProbeParallelism <= 0 {
		cfg.ProbeParallelism = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:    cfg,
		source: source,
		prober: prober,
		logger: logger,
		now:    time.Now,
	}
}

// Acquire returns the next egress identity. The Egress always carries a
// randomized header profile; the bool is false when no validated proxy is
// available, in which case callers proceed unproxied. Never a fatal
// condition.
func (p *Pool) Acquire(ctx context.Context) (crawl.Egress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.needsRefreshLocked() {
		p.refreshLocked(ctx)
	}

	profile := RandomProfile()
	egress := crawl.Egress{
		UserAgent: profile.UserAgent,
		Headers:   profile.HeaderMap(),
	}
	if len(p.identities) == 0 {
		p.logger.Warn("no valid egress identities available")
		return egress, false
	}

	id := p.identities[p.next]
	p.next = (p.next + 1) % len(p.identities)
	egress.ProxyURL = "http://" + id.Endpoint
	egress.ValidatedAt = id.ValidatedAt
	return egress, true
}

// Size returns the current validated identity count.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.identities)
}

// needsRefreshLocked reports whether acquisition should refresh first:
// never refreshed, stale, or empty with the retry cooldown elapsed. Called
// with p.mu held.
func (p *Pool) needsRefreshLocked() bool {
	if p.lastRefresh.IsZero() {
		return true
	}
	sinceRefresh := p.now().Sub(p.lastRefresh)
	if sinceRefresh > p.cfg.RefreshInterval {
		return true
	}
	return len(p.identities) == 0 && sinceRefresh > p.cfg.EmptyRetryCooldown
}

// refreshLocked replaces the validated set. Called with p.mu held. The
// refresh timestamp advances even on failure so an unreachable source does
// not get hammered on every acquire, only once per cooldown.
func (p *Pool) refreshLocked(ctx context.Context) {
	p.lastRefresh = p.now()
	p.logger.Info("refreshing egress identity pool")

	candidates, err := p.source.Fetch(ctx)
	if err != nil {
		p.logger.Warn("candidate fetch failed", zap.Error(err))
	}
	candidates = dedupe(candidates)
	if len(candidates) > p.cfg.CandidateCap {
		candidates = candidates[:p.cfg.CandidateCap]
	}

	p.identities = p.validate(ctx, candidates)
	p.next = 0
	metrics.IdentityPoolSize(len(p.identities))
	p.logger.Info("identity pool refreshed",
		zap.Int("candidates", len(candidates)),
		zap.Int("validated", len(p.identities)),
	)
}

// validate probes candidates with bounded parallelism and keeps the first
// KeepTarget that answer. Probing stops early once the target is met.
func (p *Pool) validate(ctx context.Context, candidates []string) []Identity {
	if len(candidates) == 0 {
		return nil
	}
	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g     errgroup.Group
		mu    sync.Mutex
		valid []Identity
	)
	g.SetLimit(p.cfg.ProbeParallelism)
	for _, endpoint := range candidates {
		g.Go(func() error {
			if probeCtx.Err() != nil {
				return nil
			}
			if err := p.prober.Probe(probeCtx, endpoint); err != nil {
				return nil
			}
			mu.Lock()
			if len(valid) < p.cfg.KeepTarget {
				valid = append(valid, Identity{Endpoint: endpoint, ValidatedAt: p.now()})
				if len(valid) == p.cfg.KeepTarget {
					cancel()
				}
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return valid
}

func dedupe(endpoints []string) []string {
	seen := make(map[string]struct{}, len(endpoints))
	out := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}
