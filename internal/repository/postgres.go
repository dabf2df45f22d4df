package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/compass/internal/models"
)

// FetchTickets returns the current snapshot of the tickets collection ordered by creation date.
func (r *Repository) FetchTickets(ctx context.Context) ([]models.TicketRecord, error) {
	query := `
		SELECT ticket_id, status, request, address, customer, updated_at
		FROM tickets
		ORDER BY created_at ASC;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []models.TicketRecord
	for rows.Next() {
		var ticket models.TicketRecord
		if errScan := rows.Scan(
			&ticket.ID, &ticket.Status, &ticket.Request, &ticket.Address, &ticket.Customer, &ticket.UpdatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", errScan)
		}
		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Tickets snapshot fetched", "count", len(tickets))

	return tickets, nil
}

// FetchShipments returns the current snapshot of the shipments collection ordered by creation date.
func (r *Repository) FetchShipments(ctx context.Context) ([]models.ShipmentRecord, error) {
	query := `
		SELECT shipment_id, tracking_number, carrier, status, address, updated_at
		FROM shipments
		ORDER BY created_at ASC;
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	defer rows.Close()

	var shipments []models.ShipmentRecord
	for rows.Next() {
		var shipment models.ShipmentRecord
		if errScan := rows.Scan(
			&shipment.ID, &shipment.TrackingNumber, &shipment.Carrier,
			&shipment.Status, &shipment.Address, &shipment.UpdatedAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", errScan)
		}
		shipments = append(shipments, shipment)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	r.log.DebugContext(ctx, "Shipments snapshot fetched", "count", len(shipments))

	return shipments, nil
}

// UpdateTicketStatus writes a single status field. There is no compare-and-swap:
// the last write wins, which is safe because status derivation is idempotent.
func (r *Repository) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	query := `
		UPDATE tickets
		SET
			status = $1,
			updated_at = now()
		WHERE
			ticket_id = $2;
	`

	_, err := r.db.Exec(ctx, query, status, ticketID)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	return nil
}
