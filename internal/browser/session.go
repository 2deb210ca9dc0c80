// Package browser implements crawl sessions on headless Chrome via chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/agdata/tractorcrawl/internal/crawl"
)

const (
	defaultInitTimeout = 30 * time.Second
	defaultNavTimeout  = 30 * time.Second
	scrollTimeout      = 10 * time.Second
)

// Evaluated before any page script runs; hides the automation tells the
// catalog's bot detection keys on.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
`

// Factory opens one browser process per session. Sessions are never pooled:
// acquire fresh, use once, release, so a stale browser can poison at most
// one attempt.
type Factory struct {
	logger *zap.Logger
}

// NewFactory builds a session factory.
func NewFactory(logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{logger: logger}
}

// Open starts a headless browser configured with the session's identity and
// anti-detection flags. A failed start is retried once on a reduced fallback
// flag set before giving up with crawl.ErrSessionInit.
func (f *Factory) Open(ctx context.Context, cfg crawl.SessionConfig) (crawl.Session, error) {
	sess, err := f.open(ctx, cfg, allocatorOptions(cfg))
	if err == nil {
		return sess, nil
	}
	f.logger.Warn("browser init failed, trying fallback options", zap.Error(err))

	sess, fbErr := f.open(ctx, cfg, fallbackOptions(cfg))
	if fbErr != nil {
		return nil, fmt.Errorf("%w: %v (fallback: %v)", crawl.ErrSessionInit, err, fbErr)
	}
	return sess, nil
}

func (f *Factory) open(ctx context.Context, cfg crawl.SessionConfig, opts []chromedp.ExecAllocatorOption) (*Session, error) {
	// The allocator hangs off Background so the session's lifetime is owned
	// by Close, not by the attempt context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	sess := &Session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		navTimeout:    cfg.NavTimeout,
		logger:        f.logger,
	}

	initTimeout := cfg.InitTimeout
	if initTimeout <= 0 {
		initTimeout = defaultInitTimeout
	}
	if err := sess.run(ctx, initTimeout, warmupActions(cfg)...); err != nil {
		sess.Close()
		return nil, fmt.Errorf("browser warmup: %w", err)
	}
	return sess, nil
}

func warmupActions(cfg crawl.SessionConfig) []chromedp.Action {
	actions := []chromedp.Action{
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
	}
	if cfg.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(cfg.UserAgent))
	}
	if len(cfg.Headers) > 0 {
		headers := make(network.Headers, len(cfg.Headers))
		for k, v := range cfg.Headers {
			headers[k] = v
		}
		actions = append(actions, network.SetExtraHTTPHeaders(headers))
	}
	return actions
}

func allocatorOptions(cfg crawl.SessionConfig) []chromedp.ExecAllocatorOption {
	w, h := cfg.WindowW, cfg.WindowH
	if w <= 0 || h <= 0 {
		w, h = 1920, 1080
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(w, h),
	)
	return appendIdentityOptions(opts, cfg)
}

// fallbackOptions drops the new headless mode and the cosmetic flags; some
// older Chrome builds reject them.
func fallbackOptions(cfg crawl.SessionConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	return appendIdentityOptions(opts, cfg)
}

func appendIdentityOptions(opts []chromedp.ExecAllocatorOption, cfg crawl.SessionConfig) []chromedp.ExecAllocatorOption {
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.ProxyServer))
	}
	return opts
}

// Session is one live browser process. It belongs to exactly one fetch
// attempt and must be closed on every exit path.
type Session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	navTimeout    time.Duration
	closeOnce     sync.Once
	logger        *zap.Logger
}

// Navigate loads the URL and waits for the document body.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.navTimeout
	if timeout <= 0 {
		timeout = defaultNavTimeout
	}
	err := s.run(ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	return nil
}

// ScrollToBottom triggers the catalog's lazy loading by scrolling the full
// document height.
func (s *Session) ScrollToBottom(ctx context.Context) error {
	err := s.run(ctx, scrollTimeout,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
	)
	if err != nil {
		return fmt.Errorf("scroll to bottom: %w", err)
	}
	return nil
}

// WaitForItems waits for the selector to become visible and returns the
// outer HTML of every match, in on-page order. An expired wait budget is
// reported as crawl.ErrWaitTimeout.
func (s *Session) WaitForItems(ctx context.Context, selector string, timeout time.Duration) ([]string, error) {
	var items []string
	err := s.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(collectOuterHTML(selector), &items),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: selector %q after %s", crawl.ErrWaitTimeout, selector, timeout)
		}
		return nil, fmt.Errorf("wait for %q: %w", selector, err)
	}
	return items, nil
}

// Close tears the browser down. Idempotent; close problems are logged and
// swallowed, never propagated.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := chromedp.Cancel(s.browserCtx); err != nil {
			s.logger.Warn("browser close", zap.Error(err))
		}
		s.browserCancel()
		s.allocCancel()
	})
}

// run executes actions against the browser with a deadline, propagating
// cancellation from the attempt context.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := forwardCancel(ctx, cancel)
	defer stop()
	return chromedp.Run(opCtx, actions...)
}

func collectOuterHTML(selector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%q)).map((el) => el.outerHTML)`, selector)
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
