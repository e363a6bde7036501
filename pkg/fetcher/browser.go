package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	errs "skinscraper/pkg/errors"
)

// BrowserOptions configures the headless browser
type BrowserOptions struct {
	ChromePath string // empty means auto-detect
	UserAgent  string
	Headless   bool
	Timeout    time.Duration
	RenderWait time.Duration // settle time after the body is ready
}

// BrowserFetcher renders pages in one Chrome process, one tab per fetch
type BrowserFetcher struct {
	opts          BrowserOptions
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

// NewBrowserFetcher starts Chrome. Close must be called to stop it.
func NewBrowserFetcher(ctx context.Context, o BrowserOptions) (*BrowserFetcher, error) {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(o.UserAgent),
		chromedp.WindowSize(1280, 900),
	)
	if !o.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if o.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(o.ChromePath))
	}

	// the browser outlives individual requests, so it is not tied to ctx cancellation
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &BrowserFetcher{
		opts:          o,
		browserCtx:    browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
	}, nil
}

// Fetch navigates a fresh tab to url and returns the rendered document
func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	start := time.Now()

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()
	if b.opts.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		tabCtx, timeoutCancel = context.WithTimeout(tabCtx, b.opts.Timeout)
		defer timeoutCancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html, finalURL string
	actions := []chromedp.Action{
		network.SetExtraHTTPHeaders(network.Headers(map[string]interface{}{
			"Accept-Language": "en-US,en;q=0.9",
		})),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if b.opts.RenderWait > 0 {
		actions = append(actions, chromedp.Sleep(b.opts.RenderWait))
	}
	actions = append(actions,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.NewNetworkError(url, fmt.Errorf("browser fetch: %w", err))
	}

	return &Page{
		URL:       url,
		HTML:      html,
		FinalURL:  finalURL,
		Rendered:  true,
		FetchTime: time.Since(start),
	}, nil
}

// Close stops the browser process
func (b *BrowserFetcher) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}
