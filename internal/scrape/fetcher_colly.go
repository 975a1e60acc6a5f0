package scrape

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Page is one fetched document.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// StatusError reports a non-success HTTP response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.Code)
}

// CollyConfig controls the HTTP collector.
type CollyConfig struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// CollyFetcher implements Fetcher using the Colly collector.
type CollyFetcher struct {
	cfg           CollyConfig
	baseCollector *colly.Collector
}

// NewCollyFetcher builds a synchronous collector sharing one pooled transport.
func NewCollyFetcher(cfg CollyConfig) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &CollyFetcher{cfg: cfg, baseCollector: c}
}

// Fetch executes a single GET. Non-2xx responses surface as *StatusError.
func (f *CollyFetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, fmt.Errorf("colly fetch canceled: %w", err)
	}
	var (
		page     Page
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	// Revisits are tracked by the scraper, not by colly's shared store.
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	collector.OnResponse(func(r *colly.Response) {
		page = Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = &StatusError{URL: rawURL, Code: r.StatusCode}
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		fetchErr = err
	})

	if err := runCollector(ctx, collector, rawURL, &fetchErr); err != nil {
		return Page{}, err
	}
	return page, nil
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
