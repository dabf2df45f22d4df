package geocoding_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/compass/internal/geocoding"
	"github.com/UnknownOlympus/compass/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	locale := geocoding.Locale{Language: "fr", Country: "FR"}
	provider := geocoding.NewGoogleProvider(mockClient, locale, slog.Default())
	ctx := t.Context()

	request := func(address string) *maps.GeocodingRequest {
		return &maps.GeocodingRequest{
			Address:    address,
			Language:   "fr",
			Region:     "fr",
			Components: map[maps.Component]string{maps.ComponentCountry: "FR"},
		}
	}

	t.Run("api returns error", func(t *testing.T) {
		address := "some invalid place"

		mockClient.On("Geocode", ctx, request(address)).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, geocoding.KindProviderFailure, geocoding.Classify(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("api denies request", func(t *testing.T) {
		address := "1 Place Bellecour, Lyon"
		denied := errors.New("maps: REQUEST_DENIED - The provided API key is invalid.")

		mockClient.On("Geocode", ctx, request(address)).Return(nil, denied).Once()

		_, err := provider.Geocode(ctx, address)

		require.ErrorIs(t, err, geocoding.ErrProviderAuth)
		assert.Equal(t, geocoding.KindProviderAuth, geocoding.Classify(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("api over query limit", func(t *testing.T) {
		address := "2 Place Bellecour, Lyon"
		limited := errors.New("maps: OVER_QUERY_LIMIT - You have exceeded your rate-limit.")

		mockClient.On("Geocode", ctx, request(address)).Return(nil, limited).Once()

		_, err := provider.Geocode(ctx, address)

		assert.Equal(t, geocoding.KindProviderRateLimit, geocoding.Classify(err))
		mockClient.AssertExpectations(t)
	})

	t.Run("api return empty response", func(t *testing.T) {
		address := "nowhere at all"

		mockClient.On("Geocode", ctx, request(address)).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNoResult)
		assert.True(t, geocoding.Classify(err).Terminal())
		mockClient.AssertExpectations(t)
	})

	t.Run("blank address never reaches the api", func(t *testing.T) {
		coords, err := provider.Geocode(ctx, "   ")

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrInvalidAddress)
	})

	t.Run("successfull geocoding", func(t *testing.T) {
		address := "10 Rue de Paris, 75001 Paris"
		mockReponse := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 48.86, Lng: 2.34}}},
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 1, Lng: 1}}},
		}

		mockClient.On("Geocode", ctx, request(address)).Return(mockReponse, nil).Once()

		coords, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, coords)
		require.InEpsilon(t, 48.86, coords.Latitude, 0.0001)
		require.InEpsilon(t, 2.34, coords.Longitude, 0.0001)
		mockClient.AssertExpectations(t)
	})
}
