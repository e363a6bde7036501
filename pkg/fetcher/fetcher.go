// Package fetcher retrieves listing pages, profile pages and image bytes.
//
// Two page fetchers exist: HTTPFetcher returns the static document and
// BrowserFetcher returns the document after client-side rendering in
// headless Chrome. The rendered fetcher holds a browser process and is
// acquired once per crawl through a SessionFactory.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"skinscraper/pkg/config"
)

// Page is a fetched HTML document
type Page struct {
	URL       string
	HTML      string
	FinalURL  string // URL after following redirects
	Rendered  bool
	FromCache bool
	FetchTime time.Duration
}

// Fetcher retrieves HTML documents
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// Downloader retrieves raw bytes, used for images
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Session is a page fetcher holding a resource that must be released
type Session interface {
	Fetcher
	io.Closer
}

// SessionFactory acquires a Session for one crawl
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}

// BrowserFactory opens a headless Chrome session per crawl
type BrowserFactory struct {
	Options BrowserOptions
}

// Open starts the browser
func (f BrowserFactory) Open(ctx context.Context) (Session, error) {
	return NewBrowserFetcher(ctx, f.Options)
}

// StaticFactory serves "rendered" fetches with a static fetcher.
// Used when no browser is available; client-side tags will be missing.
type StaticFactory struct {
	Fetcher Fetcher
}

// Open returns a session that needs no cleanup
func (f StaticFactory) Open(context.Context) (Session, error) {
	return nopSession{f.Fetcher}, nil
}

type nopSession struct{ Fetcher }

func (nopSession) Close() error { return nil }

// NewSessionFactory selects the rendering backend from cfg.Renderer
func NewSessionFactory(cfg config.FetchConfig, static Fetcher) (SessionFactory, error) {
	switch strings.ToLower(cfg.Renderer) {
	case "", "chrome", "chromedp":
		return BrowserFactory{Options: BrowserOptions{
			ChromePath: cfg.ChromePath,
			UserAgent:  cfg.UserAgent,
			Headless:   cfg.Headless,
			Timeout:    cfg.Timeout,
			RenderWait: cfg.RenderWait,
		}}, nil
	case "none", "static", "http":
		return StaticFactory{Fetcher: static}, nil
	default:
		return nil, fmt.Errorf("unknown renderer %q", cfg.Renderer)
	}
}
