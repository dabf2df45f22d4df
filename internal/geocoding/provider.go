package geocoding

import (
	"context"

	"github.com/UnknownOlympus/compass/internal/models"
)

// Provider is an interface that defines a method for geocoding an address.
// The Geocode method takes a context and an address string as input,
// and returns the coordinates of the first usable candidate. A provider that
// answered without a usable candidate returns an error wrapping ErrNoResult;
// any other error is a transient provider failure (see Classify).
type Provider interface {
	Geocode(ctx context.Context, address string) (*models.Coordinates, error)
}

// Locale carries the fixed country and language hints of the deployment.
type Locale struct {
	Language string // Language, e.g. "fr".
	Country  string // Country code (ISO 3166-1 alpha-2), e.g. "FR".
}
