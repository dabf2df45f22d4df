package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/jackc/pgx/v5"
)

// FindGeocode returns the cached resolution for an address, or nil when there is none.
func (r *Repository) FindGeocode(ctx context.Context, address string) (*models.CacheEntry, error) {
	query := `
		SELECT found, latitude, longitude, resolved_at
		FROM geocode_cache
		WHERE address = $1;
	`

	var (
		found      bool
		lat, lon   float64
		resolvedAt time.Time
	)
	err := r.db.QueryRow(ctx, query, address).Scan(&found, &lat, &lon, &resolvedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil //nolint:nilnil // a miss is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query geocode cache: %w", err)
	}

	entry := &models.CacheEntry{Address: address, ResolvedAt: resolvedAt}
	if found {
		entry.Coordinates = &models.Coordinates{Latitude: lat, Longitude: lon}
	}

	return entry, nil
}

// InsertGeocode stores a resolution unless the address is already cached.
// It reports whether a new row was written.
func (r *Repository) InsertGeocode(ctx context.Context, entry models.CacheEntry) (bool, error) {
	query := `
		INSERT INTO geocode_cache (address, found, latitude, longitude, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING;
	`

	var lat, lon float64
	if entry.Coordinates != nil {
		lat, lon = entry.Coordinates.Latitude, entry.Coordinates.Longitude
	}

	tag, err := r.db.Exec(ctx, query, entry.Address, entry.Found(), lat, lon, entry.ResolvedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert geocode cache entry: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}
