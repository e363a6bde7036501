package fetcher

import (
	"context"
	"time"

	"skinscraper/pkg/cache"
	"skinscraper/pkg/logger"
)

// Cached stores static page bodies in a cache in front of another fetcher
type Cached struct {
	next   Fetcher
	cache  cache.Cache
	ttl    time.Duration
	logger logger.Logger
}

// NewCached wraps next with c
func NewCached(next Fetcher, c cache.Cache, ttl time.Duration, log logger.Logger) *Cached {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Cached{next: next, cache: c, ttl: ttl, logger: log}
}

// Fetch serves from the cache when possible. Cache errors are logged and ignored.
func (c *Cached) Fetch(ctx context.Context, url string) (*Page, error) {
	key := cache.Key(url)

	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WithError(err).WarnWithFields("cache read failed", map[string]interface{}{"url": url})
	} else if ok {
		return &Page{URL: url, HTML: string(value), FinalURL: url, FromCache: true}, nil
	}

	page, err := c.next.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, []byte(page.HTML), c.ttl); err != nil {
		c.logger.WithError(err).WarnWithFields("cache write failed", map[string]interface{}{"url": url})
	}
	return page, nil
}
