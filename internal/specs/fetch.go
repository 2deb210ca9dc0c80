package specs

import (
	"fmt"

	"github.com/gocolly/colly/v2"
)

const catalogUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func (s *Scraper) fetch(pageURL string) ([]byte, error) {
	c := colly.NewCollector(colly.UserAgent(catalogUserAgent))
	c.IgnoreRobotsTxt = true
	c.SetRequestTimeout(s.cfg.FetchTimeout)

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

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("visit %s: %w", pageURL, err)
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}
	return body, nil
}
