package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrBrowserDisabled indicates rendering was turned off with zero tabs.
var ErrBrowserDisabled = errors.New("browser disabled")

// ErrBrowserClosed is returned by Fetch after Close.
var ErrBrowserClosed = errors.New("browser closed")

// BrowserConfig controls the headless Chrome handle.
type BrowserConfig struct {
	UserAgent string
	Timeout   time.Duration
	Tabs      int
}

// Browser is an explicitly owned headless Chrome process. Callers must Close
// it on every exit path; a cancelled parent context does not stop Chrome.
type Browser struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	logger          *zap.Logger
	sem             chan struct{}
	timeout         time.Duration
	userAgent       string

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewBrowser launches Chrome and waits for it to accept commands.
func NewBrowser(ctx context.Context, cfg BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if cfg.Tabs <= 0 {
		return nil, ErrBrowserDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRenderTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	// Chrome outlives the caller's context; only Close tears it down.
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	logger.Info("browser started", zap.Int("tabs", cfg.Tabs))

	return &Browser{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		logger:          logger,
		sem:             make(chan struct{}, cfg.Tabs),
		timeout:         cfg.Timeout,
		userAgent:       cfg.UserAgent,
	}, nil
}

// Close terminates Chrome. It is safe to call more than once and on nil.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		b.browserCancel()
		b.allocatorCancel()
		b.logger.Info("browser closed")
	})
	return nil
}

// Fetch renders rawURL in a fresh tab and returns the DOM snapshot.
func (b *Browser) Fetch(ctx context.Context, rawURL string) (Page, error) {
	if b == nil {
		return Page{}, ErrBrowserDisabled
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return Page{}, ErrBrowserClosed
	}

	release, err := b.acquireTab(ctx)
	if err != nil {
		return Page{}, err
	}
	defer release()

	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, b.timeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := &responseMeta{}
	b.recordResponse(tabCtx, meta)

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if b.userAgent != "" {
		tasks = append(chromedp.Tasks{emulation.SetUserAgentOverride(b.userAgent)}, tasks...)
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Page{}, fmt.Errorf("render canceled: %w", ctxErr)
		}
		return Page{}, fmt.Errorf("chromedp run: %w", err)
	}
	status := meta.status()
	if status >= 400 {
		return Page{}, &StatusError{URL: rawURL, Code: status}
	}
	return Page{URL: meta.finalURL(rawURL), StatusCode: status, Body: []byte(html)}, nil
}

func (b *Browser) acquireTab(ctx context.Context) (func(), error) {
	select {
	case b.sem <- struct{}{}:
		return func() { <-b.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire browser tab: %w", ctx.Err())
	}
}

type responseMeta struct {
	mu   sync.Mutex
	seen bool
	code int
	url  string
}

func (m *responseMeta) set(code int, url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen {
		return
	}
	m.seen, m.code, m.url = true, code, url
}

func (m *responseMeta) status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.code
}

func (m *responseMeta) finalURL(raw string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.url == "" {
		return raw
	}
	return m.url
}

func (b *Browser) recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.set(int(resp.Response.Status), resp.Response.URL)
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
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
