package identity

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPProber validates a candidate endpoint by issuing one GET through it
// against a fixed target. Probing against the crawl target itself weeds out
// proxies the site has already banned, not just dead relays.
type HTTPProber struct {
	target  string
	timeout time.Duration
}

// NewHTTPProber builds a prober against the given target URL.
func NewHTTPProber(target string, timeout time.Duration) *HTTPProber {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPProber{target: target, timeout: timeout}
}

// Probe returns nil when the endpoint relays a successful response.
func (p *HTTPProber) Probe(ctx context.Context, endpoint string) error {
	proxyURL, err := url.Parse("http://" + endpoint)
	if err != nil {
		return fmt.Errorf("parse proxy endpoint %q: %w", endpoint, err)
	}
	client := &http.Client{
		Timeout: p.timeout,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
			// Free proxy relays routinely terminate TLS with self-signed certs.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.target, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe via %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe via %s: status %d", endpoint, resp.StatusCode)
	}
	return nil
}
