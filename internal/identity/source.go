package identity

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// ListSource fetches candidate proxy endpoints from plain-text listing
// providers, one host:port per line. Providers are tried in order; the first
// one that yields candidates wins.
type ListSource struct {
	providers []string
	timeout   time.Duration
	logger    *zap.Logger
}

// NewListSource builds a ListSource over the given provider URLs.
func NewListSource(providers []string, timeout time.Duration, logger *zap.Logger) *ListSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListSource{providers: providers, timeout: timeout, logger: logger}
}

// Fetch returns candidate endpoints from the first responsive provider.
func (s *ListSource) Fetch(ctx context.Context) ([]string, error) {
	for _, provider := range s.providers {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("candidate fetch canceled: %w", err)
		}
		endpoints, err := s.fetchProvider(provider)
		if err != nil {
			s.logger.Warn("provider fetch failed", zap.String("provider", provider), zap.Error(err))
			continue
		}
		if len(endpoints) > 0 {
			s.logger.Info("fetched proxy candidates",
				zap.String("provider", provider),
				zap.Int("count", len(endpoints)),
			)
			return endpoints, nil
		}
	}
	return nil, fmt.Errorf("no provider yielded candidates")
}

func (s *ListSource) fetchProvider(provider string) ([]string, error) {
	c := colly.NewCollector()
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(s.timeout)

	var (
		body     []byte
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(provider); err != nil {
		return nil, fmt.Errorf("visit %s: %w", provider, err)
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", provider, fetchErr)
	}
	return parseEndpoints(string(body)), nil
}

// parseEndpoints keeps the lines that look like a dialable host:port.
func parseEndpoints(body string) []string {
	lines := strings.Split(strings.TrimSpace(body), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		endpoint := strings.TrimSpace(line)
		if endpoint == "" || !validEndpoint(endpoint) {
			continue
		}
		out = append(out, endpoint)
	}
	return out
}

func validEndpoint(endpoint string) bool {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n <= 65535
}
