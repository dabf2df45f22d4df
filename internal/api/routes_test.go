package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/UnknownOlympus/compass/internal/api"
	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/resolver"
	"github.com/UnknownOlympus/compass/internal/service"
	"github.com/UnknownOlympus/compass/internal/zones"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDashboard struct {
	tickets   []models.ResolvedTicket
	shipments []models.ResolvedShipment
	warnings  []resolver.Warning
	report    service.SectorReport
}

func (s *stubDashboard) Tickets() ([]models.ResolvedTicket, []resolver.Warning) {
	return s.tickets, s.warnings
}

func (s *stubDashboard) Shipments() ([]models.ResolvedShipment, []resolver.Warning) {
	return s.shipments, s.warnings
}

func (s *stubDashboard) Sectors() service.SectorReport {
	return s.report
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newServer(t *testing.T, dashboard api.Dashboard, db api.Pinger) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "compass_test_total", Help: "test"}))

	srv := httptest.NewServer(api.NewRouter(dashboard, db, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestTickets(t *testing.T) {
	dashboard := &stubDashboard{
		tickets: []models.ResolvedTicket{{
			TicketRecord: models.TicketRecord{ID: "T1", Status: "RMA", Address: "10 Rue de Rivoli, Paris"},
			Location: models.Location{
				Coordinates: &models.Coordinates{Latitude: 48.8556, Longitude: 2.3601},
				Zone:        "Paris Centre",
				State:       models.LocationLocated,
			},
		}},
		warnings: []resolver.Warning{{Kind: resolver.WarningProviderRateLimited, Message: "slow down", Addresses: 4}},
	}
	srv := newServer(t, dashboard, stubPinger{})

	resp := get(t, srv.URL+"/api/tickets")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body api.TicketsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "Paris Centre", body.Tickets[0].Zone)
	assert.Equal(t, models.LocationLocated, body.Tickets[0].State)
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, resolver.WarningProviderRateLimited, body.Warnings[0].Kind)
}

func TestShipments_EmptyView(t *testing.T) {
	srv := newServer(t, &stubDashboard{}, stubPinger{})

	resp := get(t, srv.URL+"/api/shipments")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["shipments"]))
	assert.JSONEq(t, `[]`, string(raw["warnings"]))
	assert.JSONEq(t, `0`, string(raw["total"]))
}

func TestSectors(t *testing.T) {
	updated := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	dashboard := &stubDashboard{report: service.SectorReport{
		Tickets:   []zones.ZoneCount{{Zone: "Paris Centre", Count: 3}, {Zone: zones.Unassigned}, {Zone: zones.Pending, Count: 1}},
		UpdatedAt: updated,
	}}
	srv := newServer(t, dashboard, stubPinger{})

	resp := get(t, srv.URL+"/api/sectors")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report service.SectorReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Tickets, 3)
	assert.Equal(t, zones.ZoneCount{Zone: "Paris Centre", Count: 3}, report.Tickets[0])
	assert.Equal(t, updated, report.UpdatedAt)
	assert.NotNil(t, report.Warnings)
}

func TestHealthz(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := newServer(t, &stubDashboard{}, stubPinger{})
		assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz").StatusCode)
	})

	t.Run("database down", func(t *testing.T) {
		srv := newServer(t, &stubDashboard{}, stubPinger{err: assert.AnError})

		resp := get(t, srv.URL+"/healthz")
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body api.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "document store unreachable", body.Error)
	})
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, &stubDashboard{}, stubPinger{})

	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "compass_test_total")
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(t, &stubDashboard{}, stubPinger{})
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/api/unknown").StatusCode)
}
