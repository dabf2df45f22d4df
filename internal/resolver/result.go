package resolver

import (
	"github.com/UnknownOlympus/compass/internal/geocoding"
	"github.com/UnknownOlympus/compass/internal/models"
)

// WarningKind is a batch-level problem worth showing to users.
type WarningKind string

const (
	WarningCacheUnavailable    WarningKind = "cache_unavailable"
	WarningProviderAuth        WarningKind = "provider_auth"
	WarningProviderRateLimited WarningKind = "provider_rate_limited"
)

// Warning describes a batch-level problem and how many addresses it affected.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	Message   string      `json:"message"`
	Addresses int         `json:"addresses"`
}

// Result is the outcome of ResolveAll.
type Result struct {
	// Coordinates has one key per trimmed non-blank input address; nil means "not located".
	Coordinates map[string]*models.Coordinates
	Warnings    []Warning
}

// Lookup returns the coordinates for a raw address and whether the address was part of the batch.
func (r Result) Lookup(address string) (*models.Coordinates, bool) {
	coords, ok := r.Coordinates[models.NormalizeAddress(address)]
	return coords, ok
}

var warningOrder = []WarningKind{WarningCacheUnavailable, WarningProviderAuth, WarningProviderRateLimited}

var warningMessages = map[WarningKind]string{
	WarningCacheUnavailable:    "Geocode cache is unavailable, addresses are resolved through the provider",
	WarningProviderAuth:        "Geocoding provider rejected the credentials",
	WarningProviderRateLimited: "Geocoding provider is rate limiting requests",
}

type warningCollector map[WarningKind]int

func newWarningCollector() warningCollector {
	return make(warningCollector)
}

func (c warningCollector) add(out outcome) {
	if out.cacheUnavailable {
		c[WarningCacheUnavailable]++
	}
	switch out.kind {
	case geocoding.KindProviderAuth:
		c[WarningProviderAuth]++
	case geocoding.KindProviderRateLimit:
		c[WarningProviderRateLimited]++
	}
}

func (c warningCollector) warnings() []Warning {
	var out []Warning
	for _, kind := range warningOrder {
		if n := c[kind]; n > 0 {
			out = append(out, Warning{Kind: kind, Message: warningMessages[kind], Addresses: n})
		}
	}
	return out
}
