package crawl

import (
	"net/url"
	"strconv"
)

// PageURL builds the catalog URL for a page number. Query parameters other
// than the page number are fixed for the whole run.
func PageURL(cfg TargetConfig, page int) string {
	q := url.Values{}
	q.Set("category", cfg.Category)
	q.Set("sort_term", cfg.SortTerm)
	q.Set("limit", strconv.Itoa(cfg.PageLimit))
	q.Set("page", strconv.Itoa(page))
	return cfg.BaseURL + "?" + q.Encode()
}
