package fetcher

import (
	"context"
	"fmt"
	"sync"

	errs "skinscraper/pkg/errors"
)

// Fixture serves canned pages and bytes from memory.
// It implements Fetcher, Downloader, Session and SessionFactory.
type Fixture struct {
	mu     sync.Mutex
	pages  map[string]string
	bytes  map[string][]byte
	errors map[string]error
	calls  []string
	opens  int
	closed int
}

// NewFixture creates an empty fixture
func NewFixture() *Fixture {
	return &Fixture{
		pages:  make(map[string]string),
		bytes:  make(map[string][]byte),
		errors: make(map[string]error),
	}
}

// AddPage registers HTML for url
func (f *Fixture) AddPage(url, html string) *Fixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[url] = html
	return f
}

// AddBytes registers a download body for url
func (f *Fixture) AddBytes(url string, data []byte) *Fixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bytes[url] = data
	return f
}

// AddError makes every request for url fail with err
func (f *Fixture) AddError(url string, err error) *Fixture {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[url] = err
	return f
}

func (f *Fixture) lookup(url string) (string, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, url)
	if err, ok := f.errors[url]; ok {
		return "", nil, err
	}
	if html, ok := f.pages[url]; ok {
		return html, nil, nil
	}
	if data, ok := f.bytes[url]; ok {
		return "", data, nil
	}
	return "", nil, errs.NewHTTPError(url, 404)
}

// Fetch returns the registered page
func (f *Fixture) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	html, data, err := f.lookup(url)
	if err != nil {
		return nil, err
	}
	if data != nil {
		html = string(data)
	}
	return &Page{URL: url, HTML: html, FinalURL: url}, nil
}

// Download returns the registered bytes
func (f *Fixture) Download(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	html, data, err := f.lookup(url)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []byte(html)
	}
	return append([]byte(nil), data...), nil
}

// Open returns the fixture itself as a session
func (f *Fixture) Open(ctx context.Context) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.opens++
	return f, nil
}

// Close records that the session was released
func (f *Fixture) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed >= f.opens && f.opens > 0 {
		return fmt.Errorf("fixture session closed twice")
	}
	f.closed++
	return nil
}

// Calls returns every URL requested, in order
func (f *Fixture) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how often url was requested
func (f *Fixture) CallCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == url {
			n++
		}
	}
	return n
}

// Opened reports how many sessions were opened
func (f *Fixture) Opened() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// Closed reports whether every opened session was closed
func (f *Fixture) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens > 0 && f.closed == f.opens
}
