package dispatch

import (
	"context"
	"errors"
	"fmt"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents in-memory cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeNATS represents NATS KV cache.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"
)

// Static errors for cache construction.
var (
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrCacheDisabled         = errors.New("cache disabled")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// CacheConfig configures a cache backend.
type CacheConfig struct {
	Type CacheType

	// MemoryMaxSize caps the memory backend. Zero means the default.
	MemoryMaxSize int

	// NATS configures the NATS KV backend.
	NATS *NATSKVConfig
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheConfig) (Cache, error) {
	if config == nil {
		return NewMemoryCache(0), nil
	}

	switch config.Type {
	case CacheTypeMemory:
		return NewMemoryCache(config.MemoryMaxSize), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always returns an error (nothing cached).
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheChain layers cache backends (L1, L2, ...). Reads populate earlier
// layers on a hit in a later one.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get retrieves an item from the cache chain.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := 0; j < i; j++ {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all caches.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Set(ctx, key, entry); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Delete removes an item from all caches.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Delete(ctx, key); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Clear removes all items from all caches.
func (c *CacheChain) Clear(ctx context.Context) error {
	var lastErr error

	for _, cache := range c.caches {
		if err := cache.Clear(ctx); err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Has checks if a key exists in any cache.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
