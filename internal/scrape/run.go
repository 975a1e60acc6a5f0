package scrape

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/EmnaWalha99/Job-Portal/internal/csvio"
	"github.com/EmnaWalha99/Job-Portal/internal/jobs"
)

// Run scrapes src into the raw CSV at path. Sources flagged for rendering
// hold a Browser for the duration of the walk; it is closed on every return,
// including cancellation.
func Run(ctx context.Context, cfg Config, src jobs.Source, path string, clock Clock, logger *zap.Logger) (res Result, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sc, err := cfg.Source(src)
	if err != nil {
		return Result{}, err
	}

	var fetcher Fetcher = NewCollyFetcher(CollyConfig{
		UserAgent:     cfg.UserAgent,
		RespectRobots: cfg.RespectRobots,
		Timeout:       cfg.RequestTimeout,
	})
	if sc.Render {
		browser, berr := NewBrowser(ctx, BrowserConfig{
			UserAgent: cfg.UserAgent,
			Timeout:   cfg.RenderTimeout,
			Tabs:      cfg.RenderTabs,
		}, logger.Named("browser"))
		if berr != nil {
			return Result{}, fmt.Errorf("start browser: %w", berr)
		}
		defer func() {
			err = errors.Join(err, browser.Close())
		}()
		fetcher = browser
	}

	scraper, err := NewScraper(src, sc, fetcher,
		NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		NewRetryPolicy(cfg.MaxAttempts),
		cfg.ForbiddenThreshold, clock, logger)
	if err != nil {
		return Result{}, err
	}
	w, err := csvio.NewRawWriter(path, scraper.Columns())
	if err != nil {
		return Result{}, err
	}
	defer func() {
		err = errors.Join(err, w.Close())
	}()
	return scraper.Run(ctx, w)
}
