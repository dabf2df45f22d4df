// Package stream turns periodic reads of a collection into a stream of full snapshots.
package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/jonboulle/clockwork"
)

// Fetcher reads a full snapshot of one collection.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

// Poller delivers snapshots of a single collection. Slow consumers only ever
// see the latest snapshot; intermediate ones are dropped.
type Poller[T any] struct {
	log        *slog.Logger
	collection string
	fetch      Fetcher[T]
	interval   time.Duration
	clock      clockwork.Clock
	metrics    *metrics.Metrics
}

func NewPoller[T any](
	log *slog.Logger,
	collection string,
	fetch Fetcher[T],
	interval time.Duration,
	clock clockwork.Clock,
	metrics *metrics.Metrics,
) *Poller[T] {
	return &Poller[T]{
		log:        log.With("collection", collection),
		collection: collection,
		fetch:      fetch,
		interval:   interval,
		clock:      clock,
		metrics:    metrics,
	}
}

// Subscribe starts polling and returns the snapshot channel. The first snapshot
// is read immediately. The channel is closed once ctx is done.
func (p *Poller[T]) Subscribe(ctx context.Context) <-chan []T {
	out := make(chan []T, 1)
	go p.run(ctx, out)
	return out
}

func (p *Poller[T]) run(ctx context.Context, out chan []T) {
	defer close(out)

	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.InfoContext(ctx, "Snapshot stream started", "interval", p.interval)

	p.poll(ctx, out)
	for {
		select {
		case <-ctx.Done():
			p.log.InfoContext(ctx, "Snapshot stream stopped")
			return
		case <-ticker.Chan():
			p.poll(ctx, out)
		}
	}
}

func (p *Poller[T]) poll(ctx context.Context, out chan []T) {
	records, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.ErrorContext(ctx, "Failed to read snapshot", "error", err)
		}
		return
	}

	p.metrics.Snapshots.WithLabelValues(p.collection).Inc()
	p.log.DebugContext(ctx, "Snapshot read", "records", len(records))

	select {
	case out <- records:
	default:
		// Replace the snapshot nobody has consumed yet.
		select {
		case <-out:
		default:
		}
		out <- records
	}
}
