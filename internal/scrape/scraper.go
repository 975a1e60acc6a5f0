package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
	"github.com/EmnaWalha99/Job-Portal/internal/metrics"
)

// ErrHostBlocked is returned once a host answered forbidden too many times.
var ErrHostBlocked = errors.New("host blocked after repeated forbidden responses")

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// RowWriter receives one raw row per posting.
type RowWriter interface {
	Write(row jobs.RawRecord) error
}

// Result summarizes one source walk.
type Result struct {
	Pages   int
	Listed  int
	Written int
	Failed  int
}

// Scraper walks one board's listing pages and writes a raw row per posting.
type Scraper struct {
	source  jobs.Source
	cfg     SourceConfig
	fetcher Fetcher
	limiter *Limiter
	retry   *RetryPolicy
	blocker *domainBlocker
	clock   Clock
	logger  *zap.Logger
}

// NewScraper validates cfg and wires the collaborators. limiter and retry
// may be nil.
func NewScraper(
	source jobs.Source,
	cfg SourceConfig,
	fetcher Fetcher,
	limiter *Limiter,
	retry *RetryPolicy,
	forbiddenThreshold int,
	clock Clock,
	logger *zap.Logger,
) (*Scraper, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scrape %s: %w", source, err)
	}
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	if retry == nil {
		retry = NewRetryPolicy(1)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		source:  source,
		cfg:     cfg,
		fetcher: fetcher,
		limiter: limiter,
		retry:   retry,
		blocker: newDomainBlocker(forbiddenThreshold),
		clock:   clock,
		logger:  logger.Named("scrape").With(zap.String("source", string(source))),
	}, nil
}

// Columns returns the raw header for the source.
func (s *Scraper) Columns() []string {
	return append([]string(nil), s.cfg.Columns...)
}

type listing struct {
	link string
	row  jobs.RawRecord
}

// Run walks up to MaxPages listing pages, stopping early at the first page
// without postings. Each row is written as soon as its detail page is parsed.
// A failing first listing page or a cancelled context ends the walk with an
// error; rows written before that stay written.
func (s *Scraper) Run(ctx context.Context, w RowWriter) (Result, error) {
	var (
		res  Result
		seen visitTracker
	)
	last := s.cfg.StartPage + s.cfg.MaxPages
	for page := s.cfg.StartPage; page < last; page++ {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("scrape %s canceled: %w", s.source, err)
		}
		listURL := s.cfg.PageURL(page)
		doc, err := s.document(ctx, listURL)
		if err != nil {
			if ctx.Err() != nil || res.Pages == 0 || errors.Is(err, ErrHostBlocked) {
				return res, fmt.Errorf("fetch listing page %d: %w", page, err)
			}
			s.logger.Warn("listing page failed, stopping", zap.Int("page", page), zap.Error(err))
			break
		}
		res.Pages++

		listings := s.listings(doc, &seen)
		s.logger.Info("listing page parsed", zap.Int("page", page), zap.Int("postings", len(listings)))
		if len(listings) == 0 {
			break
		}
		res.Listed += len(listings)

		for _, l := range listings {
			if err := s.detail(ctx, l); err != nil {
				if ctx.Err() != nil || errors.Is(err, ErrHostBlocked) {
					return res, fmt.Errorf("fetch detail page: %w", err)
				}
				res.Failed++
				s.logger.Warn("detail page failed", zap.String("url", l.link), zap.Error(err))
				continue
			}
			if err := w.Write(l.row); err != nil {
				return res, fmt.Errorf("write raw row: %w", err)
			}
			metrics.ObserveScrapeRow(string(s.source))
			res.Written++
		}
	}
	s.logger.Info("scrape finished",
		zap.Int("pages", res.Pages),
		zap.Int("rows", res.Written),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

func (s *Scraper) listings(doc *goquery.Document, seen *visitTracker) []listing {
	var out []listing
	doc.Find(s.cfg.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		href, _ := item.Find(s.cfg.LinkSelector).First().Attr("href")
		link := resolveLink(doc.Url, href)
		if !seen.MarkIfNew(link) {
			return
		}
		row := jobs.RawRecord{}
		extractInto(row, item, s.cfg.ListFields)
		out = append(out, listing{link: link, row: row})
	})
	return out
}

func (s *Scraper) detail(ctx context.Context, l listing) error {
	doc, err := s.document(ctx, l.link)
	if err != nil {
		return err
	}
	extractInto(l.row, doc.Selection, s.cfg.Fields)
	l.row[s.cfg.LinkColumn] = l.link
	if contains(s.cfg.Columns, jobs.ColSource) {
		l.row[jobs.ColSource] = string(s.source)
	}
	if contains(s.cfg.Columns, jobs.ColScrapedAt) {
		l.row[jobs.ColScrapedAt] = s.clock.Now().Format(ScrapedAtLayout)
	}
	return nil
}

// document fetches rawURL politely, retrying transient failures, and parses
// the body.
func (s *Scraper) document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	host := hostOf(rawURL)
	if s.blocker.IsBlocked(host) {
		return nil, fmt.Errorf("%s: %w", host, ErrHostBlocked)
	}
	var page Page
	for attempt := 1; ; attempt++ {
		if err := s.limiter.Wait(ctx, rawURL); err != nil {
			return nil, err
		}
		var err error
		page, err = s.fetcher.Fetch(ctx, rawURL)
		if err == nil {
			break
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.Code == http.StatusForbidden || statusErr.Code == http.StatusTooManyRequests) &&
			s.blocker.MarkForbidden(host) {
			return nil, fmt.Errorf("%s: %w", host, ErrHostBlocked)
		}
		if !s.retry.ShouldRetry(err, attempt) {
			return nil, err
		}
		s.logger.Debug("retrying fetch", zap.String("url", rawURL), zap.Int("attempt", attempt), zap.Error(err))
		pause(ctx, s.retry.Backoff(attempt))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}
	base := page.URL
	if base == "" {
		base = rawURL
	}
	if doc.Url, err = url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse url %s: %w", base, err)
	}
	return doc, nil
}
