// Package api serves the enriched dashboard view over HTTP.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/resolver"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const healthTimeout = 2 * time.Second

// Dashboard is the read side of the dashboard service.
type Dashboard interface {
	Tickets() ([]models.ResolvedTicket, []resolver.Warning)
	Shipments() ([]models.ResolvedShipment, []resolver.Warning)
	Sectors() service.SectorReport
}

// Pinger checks the document store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TicketsResponse is the payload of GET /api/tickets.
type TicketsResponse struct {
	Tickets  []models.ResolvedTicket `json:"tickets"`
	Total    int                     `json:"total"`
	Warnings []resolver.Warning      `json:"warnings"`
}

// ShipmentsResponse is the payload of GET /api/shipments.
type ShipmentsResponse struct {
	Shipments []models.ResolvedShipment `json:"shipments"`
	Total     int                       `json:"total"`
	Warnings  []resolver.Warning        `json:"warnings"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}

type routes struct {
	dashboard Dashboard
	db        Pinger
	log       *slog.Logger
}

// NewRouter builds the HTTP API. metrics serves the Prometheus registry.
func NewRouter(dashboard Dashboard, db Pinger, metrics http.Handler, log *slog.Logger) *chi.Mux {
	rr := &routes{dashboard: dashboard, db: db, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(rr.logging)

	r.Get("/healthz", rr.health)
	r.Handle("/metrics", metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/tickets", rr.listTickets)
		r.Get("/shipments", rr.listShipments)
		r.Get("/sectors", rr.sectors)
	})

	return r
}

func (rr *routes) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rr.log.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (rr *routes) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := rr.db.Ping(ctx); err != nil {
		rr.log.WarnContext(ctx, "Health check failed", "error", err)
		rr.writeJSON(w, r, http.StatusServiceUnavailable, ErrorResponse{Error: "document store unreachable"})
		return
	}

	rr.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (rr *routes) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, warnings := rr.dashboard.Tickets()
	if tickets == nil {
		tickets = []models.ResolvedTicket{}
	}

	rr.writeJSON(w, r, http.StatusOK, TicketsResponse{
		Tickets:  tickets,
		Total:    len(tickets),
		Warnings: nonNil(warnings),
	})
}

func (rr *routes) listShipments(w http.ResponseWriter, r *http.Request) {
	shipments, warnings := rr.dashboard.Shipments()
	if shipments == nil {
		shipments = []models.ResolvedShipment{}
	}

	rr.writeJSON(w, r, http.StatusOK, ShipmentsResponse{
		Shipments: shipments,
		Total:     len(shipments),
		Warnings:  nonNil(warnings),
	})
}

func (rr *routes) sectors(w http.ResponseWriter, r *http.Request) {
	report := rr.dashboard.Sectors()
	report.Warnings = nonNil(report.Warnings)

	rr.writeJSON(w, r, http.StatusOK, report)
}

func (rr *routes) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rr.log.ErrorContext(r.Context(), "Failed to encode response", "path", r.URL.Path, "error", err)
	}
}

// nonNil keeps warnings serialised as [] rather than null.
func nonNil(warnings []resolver.Warning) []resolver.Warning {
	if warnings == nil {
		return []resolver.Warning{}
	}
	return warnings
}
