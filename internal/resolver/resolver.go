// Package resolver turns free-text addresses into coordinates, consulting the
// geocode cache before the external provider and making sure that at most one
// resolution per address is in flight in the whole process.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/compass/internal/cache"
	"github.com/UnknownOlympus/compass/internal/geocoding"
	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/tasks"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/semaphore"
)

// Cache is the geocode cache as seen by the resolver.
type Cache interface {
	Lookup(ctx context.Context, address string) (models.CacheEntry, error)
	Remember(entry models.CacheEntry)
	Store(ctx context.Context, entry models.CacheEntry) error
}

// Options tune a Resolver. Zero values fall back to defaults.
type Options struct {
	ProviderName  string          // label for provider metrics
	Timeout       time.Duration   // bound for a single provider call
	Workers       int             // maximum concurrent resolutions
	AddressPrefix string          // prepended to the provider query, not to the cache key
	Clock         clockwork.Clock // time source for ResolvedAt and durations
}

const (
	defaultTimeout = 5 * time.Second
	defaultWorkers = 1
)

// Resolver resolves batches of addresses. It is safe for concurrent use.
type Resolver struct {
	log      *slog.Logger
	cache    Cache
	provider geocoding.Provider
	tasks    *tasks.Group
	metrics  *metrics.Metrics
	opts     Options
	sem      *semaphore.Weighted

	mu       sync.Mutex
	inflight map[string]*flight
	flights  sync.WaitGroup
}

// flight is one resolution shared by every caller interested in the same address.
type flight struct {
	done    chan struct{}
	outcome outcome
}

type outcome struct {
	coords           *models.Coordinates
	kind             geocoding.Kind
	cacheUnavailable bool
}

// New creates a Resolver. Cache write-backs are spawned on background.
func New(
	log *slog.Logger,
	cache Cache,
	provider geocoding.Provider,
	background *tasks.Group,
	metrics *metrics.Metrics,
	opts Options,
) *Resolver {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Resolver{
		log:      log,
		cache:    cache,
		provider: provider,
		tasks:    background,
		metrics:  metrics,
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.Workers)),
		inflight: make(map[string]*flight),
	}
}

// ResolveAll returns coordinates (or nil when unresolved) for every non-blank
// address of the batch, keyed by the trimmed address. Per-address failures
// never abort the batch; batch-level problems are reported as warnings.
//
// If ctx is cancelled the call returns early with nil for pending addresses.
// Their resolutions keep running and still populate the cache.
func (r *Resolver) ResolveAll(ctx context.Context, addresses []string) Result {
	keys, blank := uniqueAddresses(addresses)
	if blank > 0 {
		r.metrics.Resolutions.WithLabelValues("invalid").Add(float64(blank))
		r.log.DebugContext(ctx, "Skipped blank addresses", "count", blank)
	}

	flights := make([]*flight, len(keys))
	for i, key := range keys {
		flights[i] = r.join(ctx, key)
	}

	result := Result{Coordinates: make(map[string]*models.Coordinates, len(keys))}
	collector := newWarningCollector()

	for i, key := range keys {
		select {
		case <-flights[i].done:
			result.Coordinates[key] = flights[i].outcome.coords
			collector.add(flights[i].outcome)
		case <-ctx.Done():
			result.Coordinates[key] = nil
		}
	}

	result.Warnings = collector.warnings()
	return result
}

// Shutdown waits for every started resolution, including those whose callers
// gave up, until ctx is done. Callers must stop calling ResolveAll first.
// Cache write-backs spawned by the resolutions are started before it returns.
func (r *Resolver) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.flights.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("resolutions still running: %w", ctx.Err())
	}
}

// uniqueAddresses trims, drops blanks and deduplicates while keeping input order.
// It also reports how many blank addresses were dropped.
func uniqueAddresses(addresses []string) ([]string, int) {
	seen := make(map[string]struct{}, len(addresses))
	keys := make([]string, 0, len(addresses))
	blank := 0
	for _, address := range addresses {
		key := models.NormalizeAddress(address)
		if key == "" {
			blank++
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys, blank
}

// join returns the in-flight resolution for key, starting one if none exists.
func (r *Resolver) join(ctx context.Context, key string) *flight {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.inflight[key]; ok {
		return f
	}

	f := &flight{done: make(chan struct{})}
	r.inflight[key] = f
	r.flights.Add(1)
	r.metrics.InFlight.Inc()

	go r.run(context.WithoutCancel(ctx), key, f)

	return f
}

func (r *Resolver) run(ctx context.Context, key string, f *flight) {
	defer r.flights.Done()
	defer func() {
		r.mu.Lock()
		delete(r.inflight, key)
		r.mu.Unlock()
		r.metrics.InFlight.Dec()
		close(f.done)
	}()

	if err := r.sem.Acquire(ctx, 1); err != nil {
		f.outcome = outcome{kind: geocoding.KindProviderFailure}
		return
	}
	defer r.sem.Release(1)

	f.outcome = r.resolve(ctx, key)
}

// resolve performs cache-then-provider resolution for one address.
func (r *Resolver) resolve(ctx context.Context, key string) outcome {
	entry, err := r.cache.Lookup(ctx, key)
	if err == nil {
		r.metrics.Resolutions.WithLabelValues("cache_hit").Inc()
		return outcome{coords: entry.Coordinates}
	}
	out := outcome{cacheUnavailable: errors.Is(err, cache.ErrCacheUnavailable)}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := r.opts.Clock.Now()
	coords, err := r.provider.Geocode(callCtx, r.opts.AddressPrefix+key)
	r.metrics.RequestSeconds.WithLabelValues(r.opts.ProviderName).Observe(r.opts.Clock.Since(start).Seconds())

	if err == nil && coords != nil {
		r.metrics.Resolutions.WithLabelValues("located").Inc()
		r.persist(ctx, models.CacheEntry{Address: key, Coordinates: coords, ResolvedAt: r.opts.Clock.Now()})
		out.coords = coords
		return out
	}

	kind := geocoding.Classify(err)
	if err == nil {
		kind = geocoding.KindNoResult
	}
	if kind == geocoding.KindProviderFailure && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		kind = geocoding.KindProviderTimeout
	}
	out.kind = kind

	if kind.Terminal() {
		r.metrics.Resolutions.WithLabelValues("not_found").Inc()
		r.log.DebugContext(ctx, "Address not found by provider", "address", key)
		r.persist(ctx, models.CacheEntry{Address: key, ResolvedAt: r.opts.Clock.Now()})
		return out
	}

	r.metrics.Resolutions.WithLabelValues("error").Inc()
	r.metrics.APIErrors.WithLabelValues(string(kind)).Inc()
	r.log.WarnContext(ctx, "Failed to geocode address", "address", key, "kind", kind, "error", err)

	return out
}

// persist makes the entry visible in-process now and writes it durably in the background.
func (r *Resolver) persist(ctx context.Context, entry models.CacheEntry) {
	r.cache.Remember(entry)
	r.tasks.Go(ctx, "geocode-cache-store", func(taskCtx context.Context) error {
		return r.cache.Store(taskCtx, entry)
	}, "address", entry.Address)
}
