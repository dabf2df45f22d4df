// Package tasks runs fire-and-forget background work. Tasks outlive the
// caller's context, are bounded by a timeout, and report failures to the
// logger instead of the caller.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Group tracks running background tasks so shutdown can drain them.
type Group struct {
	log     *slog.Logger
	timeout time.Duration
	active  prometheus.Gauge
	wg      sync.WaitGroup
}

// NewGroup creates a Group whose tasks each run for at most timeout.
func NewGroup(log *slog.Logger, timeout time.Duration, active prometheus.Gauge) *Group {
	return &Group{log: log, timeout: timeout, active: active}
}

// Go starts fn in the background. The task context keeps ctx values but not its
// cancellation. A returned error or a panic is logged with the task name and attrs.
func (g *Group) Go(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...any) {
	g.wg.Add(1)
	g.active.Inc()

	go func() {
		defer g.wg.Done()
		defer g.active.Dec()

		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		if err := run(taskCtx, fn); err != nil {
			g.log.ErrorContext(taskCtx, "Background task failed",
				append([]any{"task", name, "error", err}, attrs...)...)
		}
	}()
}

func run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

// Wait blocks until every started task has finished.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Shutdown waits for running tasks until ctx is done.
func (g *Group) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background tasks still running: %w", ctx.Err())
	}
}
