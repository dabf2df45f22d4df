package repository_test

import (
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/UnknownOlympus/compass/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fetchTicketsQuery = `
		SELECT ticket_id, status, request, address, customer, updated_at
		FROM tickets
		ORDER BY created_at ASC;
	`

const fetchShipmentsQuery = `
		SELECT shipment_id, tracking_number, carrier, status, address, updated_at
		FROM shipments
		ORDER BY created_at ASC;
	`

func newMockRepo(t *testing.T) (*repository.Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return repository.NewRepository(mock, slog.Default()), mock
}

func TestFetchTickets(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	columns := []string{"ticket_id", "status", "request", "address", "customer", "updated_at"}
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("error - query tickets", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(fetchTicketsQuery)).WillReturnError(assert.AnError)

		tickets, err := repo.FetchTickets(ctx)

		require.Nil(t, tickets)
		require.ErrorContains(t, err, "failed to query tickets")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan ticket", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(fetchTicketsQuery)).
			WillReturnRows(pgxmock.NewRows(columns).AddRow("T-1", "", "", "", "", "not a time"))

		tickets, err := repo.FetchTickets(ctx)

		require.Nil(t, tickets)
		require.ErrorContains(t, err, "failed to scan ticket")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(fetchTicketsQuery)).
			WillReturnRows(
				pgxmock.NewRows(columns).
					AddRow("T-1", "Nouveau", "", "1 Rue A", "ACME", updated).
					RowError(0, assert.AnError),
			)

		tickets, err := repo.FetchTickets(ctx)

		require.Nil(t, tickets)
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch snapshot", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(fetchTicketsQuery)).
			WillReturnRows(
				pgxmock.NewRows(columns).
					AddRow("T-1", "En cours", "Je fais une demande de RMA", "10 Rue de Paris, 75001 Paris", "ACME", updated).
					AddRow("T-2", "", "", "", "Globex", updated),
			)

		tickets, err := repo.FetchTickets(ctx)

		require.NoError(t, err)
		require.Len(t, tickets, 2)
		assert.Equal(t, models.TicketRecord{
			ID:        "T-1",
			Status:    "En cours",
			Request:   "Je fais une demande de RMA",
			Address:   "10 Rue de Paris, 75001 Paris",
			Customer:  "ACME",
			UpdatedAt: updated,
		}, tickets[0])
		assert.Equal(t, "T-2", tickets[1].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFetchShipments(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	columns := []string{"shipment_id", "tracking_number", "carrier", "status", "address", "updated_at"}

	t.Run("error - query shipments", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(fetchShipmentsQuery)).WillReturnError(assert.AnError)

		shipments, err := repo.FetchShipments(ctx)

		require.Nil(t, shipments)
		require.ErrorContains(t, err, "failed to query shipments")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch snapshot", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		updated := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

		mock.ExpectQuery(regexp.QuoteMeta(fetchShipmentsQuery)).
			WillReturnRows(
				pgxmock.NewRows(columns).AddRow("S-1", "6A123", "Colissimo", "En transit", "5 Quai Perrache, Lyon", updated),
			)

		shipments, err := repo.FetchShipments(ctx)

		require.NoError(t, err)
		require.Len(t, shipments, 1)
		assert.Equal(t, "6A123", shipments[0].TrackingNumber)
		assert.Equal(t, "5 Quai Perrache, Lyon", shipments[0].Address)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdateTicketStatus(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	query := `
		UPDATE tickets
		SET
			status = $1,
			updated_at = now()
		WHERE
			ticket_id = $2;
	`

	t.Run("error - update status", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(query)).WithArgs("RMA", "T-1").WillReturnError(assert.AnError)

		err := repo.UpdateTicketStatus(ctx, "T-1", "RMA")

		require.ErrorContains(t, err, "failed to update ticket status")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - update status", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectExec(regexp.QuoteMeta(query)).WithArgs("RMA", "T-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateTicketStatus(ctx, "T-1", "RMA")

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
