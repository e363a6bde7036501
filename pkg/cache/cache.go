package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skinscraper/pkg/config"
)

// Cache stores raw page bodies keyed by URL
type Cache interface {
	// Get returns the cached value and whether it was present
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with an expiration time; zero means no expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Close() error
}

// New returns the cache selected by cfg.Backend, or nil for "none"
func New(cfg config.CacheConfig) (Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "redis":
		if cfg.Addr == "" {
			return nil, errNoAddr(cfg.Backend)
		}
		return NewRedis(cfg.Addr, cfg.DB), nil
	case "memcache", "memcached":
		if cfg.Addr == "" {
			return nil, errNoAddr(cfg.Backend)
		}
		return NewMemcache(cfg.Addr), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Key namespaces a URL for shared cache servers
func Key(url string) string {
	return config.AppName + ":page:" + url
}

func errNoAddr(backend string) error {
	return fmt.Errorf("cache backend %q requires an address", backend)
}
