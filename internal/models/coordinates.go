package models

import (
	"strings"
	"time"
)

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`  // Latitude of the geographical point.
	Longitude float64 `json:"longitude"` // Longitude of the geographical point.
}

// NormalizeAddress returns the cache and dedup key for a free-text address.
// Only surrounding whitespace is removed; two addresses are the same key iff
// their trimmed text is byte-identical.
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// CacheEntry is a terminal resolution outcome for one address.
// A nil Coordinates is the "provider found nothing" marker.
type CacheEntry struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	ResolvedAt  time.Time    `json:"resolved_at"`
}

// Found reports whether the entry carries coordinates.
func (e CacheEntry) Found() bool {
	return e.Coordinates != nil
}
