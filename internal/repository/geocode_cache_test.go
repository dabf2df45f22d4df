package repository_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	findGeocodeQuery = `
		SELECT found, latitude, longitude, resolved_at
		FROM geocode_cache
		WHERE address = $1;
	`
	insertGeocodeQuery = `
		INSERT INTO geocode_cache (address, found, latitude, longitude, resolved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO NOTHING;
	`
)

func TestFindGeocode(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	address := "10 Rue de Paris, 75001 Paris"
	resolvedAt := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	columns := []string{"found", "latitude", "longitude", "resolved_at"}

	t.Run("miss", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findGeocodeQuery)).WithArgs(address).
			WillReturnRows(pgxmock.NewRows(columns))

		entry, err := repo.FindGeocode(ctx, address)

		require.NoError(t, err)
		assert.Nil(t, entry)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit with coordinates", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findGeocodeQuery)).WithArgs(address).
			WillReturnRows(pgxmock.NewRows(columns).AddRow(true, 48.86, 2.34, resolvedAt))

		entry, err := repo.FindGeocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.Equal(t, &models.Coordinates{Latitude: 48.86, Longitude: 2.34}, entry.Coordinates)
		assert.Equal(t, resolvedAt, entry.ResolvedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hit with not-found marker", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findGeocodeQuery)).WithArgs(address).
			WillReturnRows(pgxmock.NewRows(columns).AddRow(false, 0.0, 0.0, resolvedAt))

		entry, err := repo.FindGeocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, entry)
		assert.False(t, entry.Found())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta(findGeocodeQuery)).WithArgs(address).WillReturnError(assert.AnError)

		entry, err := repo.FindGeocode(ctx, address)

		require.Nil(t, entry)
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertGeocode(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	resolvedAt := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	t.Run("new entry", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		entry := models.CacheEntry{
			Address:     "10 Rue de Paris, 75001 Paris",
			Coordinates: &models.Coordinates{Latitude: 48.86, Longitude: 2.34},
			ResolvedAt:  resolvedAt,
		}

		mock.ExpectExec(regexp.QuoteMeta(insertGeocodeQuery)).
			WithArgs(entry.Address, true, 48.86, 2.34, resolvedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		inserted, err := repo.InsertGeocode(ctx, entry)

		require.NoError(t, err)
		assert.True(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate is a no-op", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		entry := models.CacheEntry{Address: "nowhere", ResolvedAt: resolvedAt}

		mock.ExpectExec(regexp.QuoteMeta(insertGeocodeQuery)).
			WithArgs("nowhere", false, 0.0, 0.0, resolvedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		inserted, err := repo.InsertGeocode(ctx, entry)

		require.NoError(t, err)
		assert.False(t, inserted)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		t.Parallel()
		repo, mock := newMockRepo(t)
		entry := models.CacheEntry{Address: "nowhere", ResolvedAt: resolvedAt}

		mock.ExpectExec(regexp.QuoteMeta(insertGeocodeQuery)).WillReturnError(assert.AnError)

		_, err := repo.InsertGeocode(ctx, entry)

		require.ErrorContains(t, err, "failed to insert geocode cache entry")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	repo, mock := newMockRepo(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tickets").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, repo.EnsureSchema(t.Context()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
