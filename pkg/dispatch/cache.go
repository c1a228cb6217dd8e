package dispatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/antipasta/dispatch/internal/constants"
)

// Static errors for cache backends.
var (
	ErrCacheKeyNotFound  = errors.New("key not found")
	ErrCacheEntryExpired = errors.New("entry expired")
)

// CacheEntry is one cached response payload.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Expired reports whether the entry's TTL has elapsed.
func (e *CacheEntry) Expired() bool {
	return !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt)
}

// Cache stores successful payloads for read-style invocations.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// CacheKey derives a stable cache key from a bound call: the canonical
// method name plus its parameters in sorted order.
func CacheKey(bound *BoundCall) string {
	keys := make([]string, 0, len(bound.Params))
	for key := range bound.Params {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	material := bound.Definition.Name
	for _, key := range keys {
		material += "|" + key + "=" + fmt.Sprint(bound.Params[key])
	}

	sum := sha256.Sum256([]byte(material))

	return bound.Definition.Name + "." + hex.EncodeToString(sum[:16])
}

// MemoryCache is an in-process cache with a size cap. Insertion beyond the
// cap evicts the entry closest to expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
	maxSize int
}

// NewMemoryCache creates a memory cache holding at most maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = constants.DefaultCacheSize
	}

	return &MemoryCache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
	}
}

// Get retrieves an entry, dropping it when expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
	}

	if entry.Expired() {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return entry, nil
}

// Set stores an entry, evicting when at capacity.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		if _, exists := c.entries[key]; !exists {
			c.evictLocked()
		}
	}

	c.entries[key] = entry

	return nil
}

// evictLocked removes the entry expiring soonest.
func (c *MemoryCache) evictLocked() {
	var (
		victim   string
		earliest time.Time
	)

	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(earliest) {
			victim = key
			earliest = entry.ExpiresAt
		}
	}

	if victim != "" {
		delete(c.entries, victim)
	}
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*CacheEntry)

	return nil
}

// Has checks for an unexpired entry.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]

	return ok && !entry.Expired()
}

// NATSKVConfig configures the NATS JetStream key-value cache backend.
type NATSKVConfig struct {
	// URL is the NATS server URL.
	URL string

	// Bucket is the KV bucket name; created if absent.
	Bucket string

	// TTL applies bucket-wide when the bucket is created here.
	TTL time.Duration

	// Conn reuses an existing connection instead of dialing URL.
	Conn *nats.Conn
}

// NATSKVCache stores entries in a NATS JetStream key-value bucket, letting
// several processes share one response cache.
type NATSKVCache struct {
	kv nats.KeyValue
}

// NewNATSKVCache connects to NATS and binds (or creates) the configured
// bucket.
func NewNATSKVCache(config *NATSKVConfig) (*NATSKVCache, error) {
	conn := config.Conn

	if conn == nil {
		dialed, err := nats.Connect(config.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		conn = dialed
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("obtaining JetStream context: %w", err)
	}

	kv, err := js.KeyValue(config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: config.Bucket,
			TTL:    config.TTL,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("binding KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSKVCache{kv: kv}, nil
}

// Get retrieves an entry from the bucket.
func (c *NATSKVCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	kvEntry, err := c.kv.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
		}

		return nil, fmt.Errorf("reading KV entry: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(kvEntry.Value(), &entry); err != nil {
		return nil, fmt.Errorf("decoding KV entry: %w", err)
	}

	if entry.Expired() {
		_ = c.kv.Delete(key)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryExpired, key)
	}

	return &entry, nil
}

// Set stores an entry in the bucket.
func (c *NATSKVCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding KV entry: %w", err)
	}

	if _, err := c.kv.Put(key, data); err != nil {
		return fmt.Errorf("writing KV entry: %w", err)
	}

	return nil
}

// Delete removes an entry from the bucket.
func (c *NATSKVCache) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(key)
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting KV entry: %w", err)
	}

	return nil
}

// Clear removes every entry in the bucket.
func (c *NATSKVCache) Clear(ctx context.Context) error {
	keys, err := c.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil
		}

		return fmt.Errorf("listing KV keys: %w", err)
	}

	for _, key := range keys {
		if err := c.kv.Purge(key); err != nil {
			return fmt.Errorf("purging KV entry: %w", err)
		}
	}

	return nil
}

// Has checks for an unexpired entry in the bucket.
func (c *NATSKVCache) Has(ctx context.Context, key string) bool {
	entry, err := c.Get(ctx, key)

	return err == nil && entry != nil
}
