package repository

import (
	"context"
	"log/slog"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Database is the subset of pgxpool.Pool used by the repository.
// pgxmock pools satisfy it as well.
type Database interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Repository is the document store: ticket and shipment collections plus the geocode cache table.
type Repository struct {
	db  Database
	log *slog.Logger
}

// Interface lists the document store operations the dashboard depends on.
type Interface interface {
	FetchTickets(ctx context.Context) ([]models.TicketRecord, error)
	FetchShipments(ctx context.Context) ([]models.ShipmentRecord, error)
	UpdateTicketStatus(ctx context.Context, ticketID, status string) error
}

// NewRepository creates a new instance of Repository with the provided Database.
// It returns a pointer to the newly created Repository.
func NewRepository(db Database, log *slog.Logger) *Repository {
	return &Repository{db: db, log: log}
}
