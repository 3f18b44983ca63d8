package di

import (
	"context"
	"fmt"
	"time"

	"neuronote/application/ports"

	"github.com/dgraph-io/ristretto"
)

// RistrettoCache implements ports.Cache and the query bus cache on
// ristretto. Every entry costs 1, so MaxCost is an entry budget.
type RistrettoCache struct {
	cache *ristretto.Cache
}

var _ ports.Cache = (*RistrettoCache)(nil)

// NewRistrettoCache creates a cache holding up to maxEntries values.
func NewRistrettoCache(maxEntries int64) (*RistrettoCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &RistrettoCache{cache: cache}, nil
}

// Get retrieves a value from cache
func (c *RistrettoCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Set stores a value; the write is visible to Get once it returns.
func (c *RistrettoCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.cache.SetWithTTL(key, value, 1, ttl) {
		return fmt.Errorf("cache rejected key %q", key)
	}
	c.cache.Wait()
	return nil
}

// Delete removes a value from cache
func (c *RistrettoCache) Delete(ctx context.Context, key string) error {
	c.cache.Del(key)
	return nil
}

// Close stops the cache's background goroutines.
func (c *RistrettoCache) Close() {
	c.cache.Close()
}
