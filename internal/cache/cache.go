// Package cache implements the geocode cache: a bounded in-process tier in
// front of a durable, write-once backend. The cache is best-effort; backend
// failures degrade to a miss and are never escalated to the caller.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
)

var (
	// ErrCacheMiss is returned by Lookup when the address has never been resolved.
	ErrCacheMiss = errors.New("geocode cache miss")
	// ErrCacheUnavailable wraps backend failures. Callers treat it as a miss.
	ErrCacheUnavailable = errors.New("geocode cache unavailable")
)

// Backend is a durable store of cache entries keyed by address.
// InsertGeocode must not overwrite an existing entry.
type Backend interface {
	FindGeocode(ctx context.Context, address string) (*models.CacheEntry, error)
	InsertGeocode(ctx context.Context, entry models.CacheEntry) (bool, error)
}

// GeocodeCache is safe for concurrent use.
type GeocodeCache struct {
	backend Backend // nil keeps the cache in memory only
	memory  *lruCache
	log     *slog.Logger
	metrics *metrics.Metrics
}

// New creates a cache with an in-memory tier of memorySize entries in front of backend.
// A nil backend gives a process-local cache.
func New(backend Backend, memorySize int, log *slog.Logger, metrics *metrics.Metrics) *GeocodeCache {
	return &GeocodeCache{
		backend: backend,
		memory:  newLRUCache(memorySize),
		log:     log,
		metrics: metrics,
	}
}

// Lookup returns the stored outcome for address, including a stored "not found".
func (c *GeocodeCache) Lookup(ctx context.Context, address string) (models.CacheEntry, error) {
	if entry, ok := c.memory.get(address); ok {
		c.metrics.CacheOperations.WithLabelValues("lookup", "hit").Inc()
		return entry, nil
	}

	if c.backend == nil {
		c.metrics.CacheOperations.WithLabelValues("lookup", "miss").Inc()
		return models.CacheEntry{}, ErrCacheMiss
	}

	entry, err := c.backend.FindGeocode(ctx, address)
	if err != nil {
		c.metrics.CacheOperations.WithLabelValues("lookup", "error").Inc()
		c.log.WarnContext(ctx, "Geocode cache lookup failed, falling through to provider",
			"address", address, "error", err)
		return models.CacheEntry{}, fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	if entry == nil {
		c.metrics.CacheOperations.WithLabelValues("lookup", "miss").Inc()
		return models.CacheEntry{}, ErrCacheMiss
	}

	c.metrics.CacheOperations.WithLabelValues("lookup", "hit").Inc()
	c.memory.putIfAbsent(address, *entry)

	return *entry, nil
}

// Remember records an entry in the in-process tier only. It never blocks on I/O.
func (c *GeocodeCache) Remember(entry models.CacheEntry) {
	c.memory.putIfAbsent(entry.Address, entry)
}

// Store persists an entry unless one already exists for the address.
// A duplicate store is a no-op and returns nil.
func (c *GeocodeCache) Store(ctx context.Context, entry models.CacheEntry) error {
	c.memory.putIfAbsent(entry.Address, entry)

	if c.backend == nil {
		return nil
	}

	inserted, err := c.backend.InsertGeocode(ctx, entry)
	if err != nil {
		c.metrics.CacheOperations.WithLabelValues("store", "error").Inc()
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}

	if inserted {
		c.metrics.CacheOperations.WithLabelValues("store", "ok").Inc()
	} else {
		c.metrics.CacheOperations.WithLabelValues("store", "duplicate").Inc()
		c.log.DebugContext(ctx, "Geocode cache entry already present", "address", entry.Address)
	}

	return nil
}
