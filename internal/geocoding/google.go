package geocoding

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/UnknownOlympus/compass/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	locale Locale          // locale hints added to every request
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider wraps a Google Maps client. Rate limiting is configured on the client itself.
func NewGoogleProvider(client GoogleAPIClient, locale Locale, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, locale: locale, log: log}
}

// Geocode takes a context and an address string as input, and returns the geographical coordinates
// (longitude and latitude) of the provided address using the Google Maps Geocoding API.
// An empty response or a candidate without finite coordinates is reported as ErrNoResult.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	if strings.TrimSpace(address) == "" {
		return nil, ErrInvalidAddress
	}

	geocodeResponse, err := gp.client.Geocode(ctx, gp.request(address))
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", googleStatusError(err))
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrNoResult
	}
	coords := geocodeResponse[0].Geometry.Location
	if !validCoordinates(coords.Lat, coords.Lng) {
		return nil, fmt.Errorf("%w: invalid location %v,%v", ErrNoResult, coords.Lat, coords.Lng)
	}

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}

func (gp *GoogleProvider) request(address string) *maps.GeocodingRequest {
	req := &maps.GeocodingRequest{
		Address:  address,
		Language: gp.locale.Language,
		Region:   strings.ToLower(gp.locale.Country),
	}
	if gp.locale.Country != "" {
		req.Components = map[maps.Component]string{maps.ComponentCountry: gp.locale.Country}
	}
	return req
}

func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
