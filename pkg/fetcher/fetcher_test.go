package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skinscraper/pkg/cache"
	"skinscraper/pkg/config"
	errs "skinscraper/pkg/errors"
	"skinscraper/pkg/logger"
)

func TestHTTPFetcherFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "skinscraper-test", r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>skins</body></html>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, "skinscraper-test", time.Second)
	page, err := f.Fetch(context.Background(), server.URL+"/1")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>skins</body></html>", page.HTML)
	assert.Equal(t, server.URL+"/1", page.FinalURL)
	assert.False(t, page.Rendered)
}

func TestHTTPFetcherDecodesLatin1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		// "café" in Latin-1
		w.Write([]byte{'<', 'p', '>', 'c', 'a', 'f', 0xe9, '<', '/', 'p', '>'})
	}))
	defer server.Close()

	page, err := NewHTTPFetcher(nil, "", time.Second).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>café</p>", page.HTML)
}

func TestHTTPFetcherStatusErrors(t *testing.T) {
	tests := []struct {
		status   int
		expected errs.ErrorType
	}{
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusServiceUnavailable, errs.ErrorTypeServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			_, err := NewHTTPFetcher(nil, "", time.Second).Fetch(context.Background(), server.URL)
			require.Error(t, err)
			assert.True(t, errs.IsType(err, tt.expected), "got %v", err)
		})
	}
}

func TestHTTPFetcherNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPFetcher(nil, "", time.Second).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeNetwork))
}

func TestHTTPFetcherDownload(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/empty.png" {
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer server.Close()

	f := NewHTTPFetcher(nil, "", time.Second)
	data, err := f.Download(context.Background(), server.URL+"/skin.png")
	require.NoError(t, err)
	assert.Equal(t, png, data)

	_, err = f.Download(context.Background(), server.URL+"/empty.png")
	assert.Error(t, err)
}

func TestCachedServesSecondFetchFromCache(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("<html>listing</html>"))
	}))
	defer server.Close()

	c := NewCached(NewHTTPFetcher(nil, "", time.Second), cache.NewMemory(), time.Minute, logger.NewNopLogger())

	first, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := c.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.HTML, second.HTML)
	assert.Equal(t, 1, hits)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache down")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Close() error { return nil }

func TestCachedIgnoresCacheErrors(t *testing.T) {
	fixture := NewFixture().AddPage("https://skins.example/1", "<html/>")
	log := logger.NewTestLogger()
	c := NewCached(fixture, failingCache{}, time.Minute, log)

	page, err := c.Fetch(context.Background(), "https://skins.example/1")
	require.NoError(t, err)
	assert.Equal(t, "<html/>", page.HTML)
	assert.True(t, log.HasMessage("cache read failed"))
	assert.True(t, log.HasMessage("cache write failed"))
}

func TestFixture(t *testing.T) {
	boom := errors.New("boom")
	f := NewFixture().
		AddPage("https://skins.example/a", "<a/>").
		AddBytes("https://skins.example/a.png", []byte("png")).
		AddError("https://skins.example/b", boom)

	ctx := context.Background()
	page, err := f.Fetch(ctx, "https://skins.example/a")
	require.NoError(t, err)
	assert.Equal(t, "<a/>", page.HTML)

	data, err := f.Download(ctx, "https://skins.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))

	_, err = f.Fetch(ctx, "https://skins.example/b")
	assert.ErrorIs(t, err, boom)

	_, err = f.Fetch(ctx, "https://skins.example/missing")
	assert.True(t, errs.IsType(err, errs.ErrorTypeNotFound))

	assert.Equal(t, 1, f.CallCount("https://skins.example/a"))
	assert.Len(t, f.Calls(), 4)

	session, err := f.Open(ctx)
	require.NoError(t, err)
	assert.False(t, f.Closed())
	require.NoError(t, session.Close())
	assert.True(t, f.Closed())
}

func TestNewSessionFactory(t *testing.T) {
	static := NewFixture()

	factory, err := NewSessionFactory(config.FetchConfig{Renderer: "chrome", Headless: true}, static)
	require.NoError(t, err)
	browser, ok := factory.(BrowserFactory)
	require.True(t, ok)
	assert.True(t, browser.Options.Headless)

	factory, err = NewSessionFactory(config.FetchConfig{Renderer: "none"}, static)
	require.NoError(t, err)
	session, err := factory.Open(context.Background())
	require.NoError(t, err)
	assert.NoError(t, session.Close())

	_, err = NewSessionFactory(config.FetchConfig{Renderer: "webkit"}, static)
	assert.Error(t, err)
}
