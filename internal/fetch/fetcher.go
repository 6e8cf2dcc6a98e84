package fetch

import (
	"errors"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// DefaultTimeout bounds a single page request
const DefaultTimeout = 10 * time.Second

// Result is the outcome of a single page fetch.
// OK is false on a status of 400 or above or a transport error.
type Result struct {
	OK         bool
	StatusCode int
	Body       []byte
	Err        error
}

// Fetcher performs HTTP GETs through a shared Colly backend
type Fetcher struct {
	base *colly.Collector
}

// NewFetcher creates a fetcher with the given request timeout and user agent
func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	options := []colly.CollectorOption{
		// Deduplication is handled by the crawler, not by Colly
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		// Status codes are classified in OnResponse
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(0),
	}
	if userAgent != "" {
		options = append(options, colly.UserAgent(userAgent))
	}

	c := colly.NewCollector(options...)
	c.SetRequestTimeout(timeout)

	return &Fetcher{base: c}
}

// Fetch retrieves a single URL. It never panics and never returns an error
// directly; failures are reported through Result.
func (f *Fetcher) Fetch(rawURL string) Result {
	// A clone shares the HTTP backend but owns its callbacks, so concurrent
	// fetches do not see each other's responses
	c := f.base.Clone()

	var res Result
	c.OnResponse(func(r *colly.Response) {
		res.StatusCode = r.StatusCode
		if r.StatusCode >= http.StatusBadRequest {
			res.OK = false
			res.Err = errors.New(http.StatusText(r.StatusCode))
			return
		}
		res.OK = true
		res.Body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		res.OK = false
		res.Err = err
		if r != nil {
			res.StatusCode = r.StatusCode
		}
	})

	if err := c.Visit(rawURL); err != nil {
		res.OK = false
		if res.Err == nil {
			res.Err = err
		}
	}

	return res
}
