// Package reconciler normalises ticket statuses as snapshots arrive and
// writes corrections back to the document store in the background.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/compass/internal/metrics"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/tasks"
)

// StatusWriter persists a ticket status. Last write wins.
type StatusWriter interface {
	UpdateTicketStatus(ctx context.Context, ticketID, status string) error
}

// Reconciler is safe for concurrent use.
type Reconciler struct {
	rules   Rules
	writer  StatusWriter
	tasks   *tasks.Group
	log     *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	writes map[string]*writeState
}

// writeState serialises write-backs of one ticket.
type writeState struct {
	inFlight string
	next     string
	hasNext  bool
}

// New creates a Reconciler for rules. Status write-backs run on background.
func New(rules Rules, writer StatusWriter, background *tasks.Group, log *slog.Logger, metrics *metrics.Metrics) *Reconciler {
	return &Reconciler{
		rules:   rules,
		writer:  writer,
		tasks:   background,
		log:     log,
		metrics: metrics,
		writes:  make(map[string]*writeState),
	}
}

// Reconcile returns the tickets with their derived status. The input slice is
// not modified. Every ticket whose derived status differs from the stored one
// gets a background write-back; failures are retried by the next snapshot.
func (r *Reconciler) Reconcile(ctx context.Context, tickets []models.TicketRecord) []models.TicketRecord {
	out := make([]models.TicketRecord, len(tickets))
	corrections := 0

	for i, ticket := range tickets {
		out[i] = ticket

		derived := Derive(r.rules, ticket.Status, ticket.Request)
		if derived == ticket.Status {
			continue
		}

		out[i].Status = derived
		corrections++

		if ticket.ID == "" {
			r.log.WarnContext(ctx, "Ticket without ID, status correction not persisted", "status", derived)
			continue
		}
		r.schedule(ctx, ticket.ID, derived)
	}

	if corrections > 0 {
		r.log.DebugContext(ctx, "Ticket statuses corrected", "count", corrections)
	}

	return out
}

// schedule starts a write-back or queues it behind the one in flight for the same ticket.
func (r *Reconciler) schedule(ctx context.Context, ticketID, status string) {
	r.mu.Lock()
	state, busy := r.writes[ticketID]
	if !busy {
		r.writes[ticketID] = &writeState{inFlight: status}
		r.mu.Unlock()
		r.start(ctx, ticketID, status)
		return
	}

	if status == state.inFlight {
		state.hasNext = false
	} else {
		state.next, state.hasNext = status, true
	}
	r.mu.Unlock()
}

func (r *Reconciler) start(ctx context.Context, ticketID, status string) {
	r.tasks.Go(ctx, "status-writeback", func(taskCtx context.Context) error {
		return r.write(taskCtx, ticketID, status)
	}, "ticket_id", ticketID, "status", status)
}

func (r *Reconciler) write(ctx context.Context, ticketID, status string) error {
	err := r.writer.UpdateTicketStatus(ctx, ticketID, status)
	if err != nil {
		r.metrics.StatusWritebacks.WithLabelValues("failure").Inc()
	} else {
		r.metrics.StatusWritebacks.WithLabelValues("success").Inc()
		r.log.InfoContext(ctx, "Ticket status corrected", "ticket_id", ticketID, "status", status)
	}

	r.mu.Lock()
	state := r.writes[ticketID]
	if state != nil && state.hasNext {
		next := state.next
		state.inFlight, state.hasNext = next, false
		r.mu.Unlock()
		r.start(ctx, ticketID, next)
	} else {
		delete(r.writes, ticketID)
		r.mu.Unlock()
	}

	if err != nil {
		return fmt.Errorf("failed to write back ticket status: %w", err)
	}
	return nil
}
