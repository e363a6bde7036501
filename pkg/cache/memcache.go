package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

// Memcache implements Cache on memcached
type Memcache struct {
	client *memcache.Client
}

// NewMemcache creates a memcached-backed cache
func NewMemcache(serverAddr string) *Memcache {
	return &Memcache{
		client: memcache.New(serverAddr),
	}
}

// Get retrieves a value from memcache
func (m *Memcache) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := m.client.Get(memcacheKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item.Value, true, nil
}

// Set stores a value in memcache with an expiration time
func (m *Memcache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        memcacheKey(key),
		Value:      value,
		Expiration: int32(ttl.Seconds()),
	})
}

// Close is a no-op; idle memcache connections are reaped by the client
func (m *Memcache) Close() error {
	return nil
}

// memcached keys are limited to 250 bytes without spaces or control characters
func memcacheKey(key string) string {
	clean := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		if c := key[i]; c > ' ' && c != 0x7f {
			clean = append(clean, c)
		}
	}
	if len(clean) > 250 {
		clean = clean[:250]
	}
	return string(clean)
}
