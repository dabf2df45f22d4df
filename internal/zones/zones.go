// Package zones assigns coordinates to named service sectors. The index is
// built once from a GeoJSON FeatureCollection and is read-only afterwards,
// so it can be shared freely between goroutines.
package zones

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/UnknownOlympus/compass/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

const (
	// Pending is assigned to records whose coordinates are not known.
	Pending = "pending"
	// Unassigned is assigned to located records outside every zone.
	Unassigned = "unassigned"
)

// ErrZoneData marks a zone whose boundary cannot be used for containment.
var ErrZoneData = errors.New("invalid zone data")

//go:embed default_sectors.geojson
var defaultSectors []byte

// Zone is a named sector boundary.
type Zone struct {
	Name     string
	Boundary orb.Geometry // orb.Polygon or orb.MultiPolygon
	bound    orb.Bound
	valid    bool
}

// Valid reports whether the boundary passed validation at load time.
// Invalid zones never match.
func (z Zone) Valid() bool {
	return z.valid
}

// Index is an ordered list of zones. The first containing zone wins.
type Index struct {
	zones []Zone
	log   *slog.Logger
}

// Load reads zones from the GeoJSON file at path, or the embedded default sectors when path is empty.
func Load(path string, log *slog.Logger) (*Index, error) {
	if path == "" {
		log.Info("No zones file configured, using embedded default sectors")
		return Parse(defaultSectors, log)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read zones file: %w", err)
	}

	return Parse(data, log)
}

// Parse builds an Index from a GeoJSON FeatureCollection. Every feature needs
// a "name" property and a Polygon or MultiPolygon geometry; malformed features
// are logged and kept as zones that never match.
func Parse(data []byte, log *slog.Logger) (*Index, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse zones: %w", err)
	}

	idx := &Index{zones: make([]Zone, 0, len(fc.Features)), log: log}
	for i, feature := range fc.Features {
		zone := Zone{
			Name:     feature.Properties.MustString("name", ""),
			Boundary: feature.Geometry,
		}
		if zone.Name == "" {
			zone.Name = fmt.Sprintf("zone-%d", i+1)
		}

		if err = validate(feature); err != nil {
			log.Error("Zone boundary rejected", "zone", zone.Name, "error", err)
			idx.zones = append(idx.zones, zone)
			continue
		}

		zone.bound = feature.Geometry.Bound()
		zone.valid = true
		idx.zones = append(idx.zones, zone)
	}

	log.Info("Sector zones loaded", "count", len(idx.zones))

	return idx, nil
}

func validate(feature *geojson.Feature) error {
	if feature.Properties.MustString("name", "") == "" {
		return fmt.Errorf("%w: missing name property", ErrZoneData)
	}

	switch g := feature.Geometry.(type) {
	case orb.Polygon:
		return validatePolygon(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return fmt.Errorf("%w: empty multipolygon", ErrZoneData)
		}
		for _, polygon := range g {
			if err := validatePolygon(polygon); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return fmt.Errorf("%w: missing geometry", ErrZoneData)
	default:
		return fmt.Errorf("%w: unsupported geometry %s", ErrZoneData, g.GeoJSONType())
	}
}

func validatePolygon(polygon orb.Polygon) error {
	if len(polygon) == 0 {
		return fmt.Errorf("%w: polygon without rings", ErrZoneData)
	}
	for _, ring := range polygon {
		if len(ring) < 4 {
			return fmt.Errorf("%w: ring has %d points, need at least 4", ErrZoneData, len(ring))
		}
		if !ring.Closed() {
			return fmt.Errorf("%w: ring is not closed", ErrZoneData)
		}
		for _, p := range ring {
			if !finite(p.Lon()) || !finite(p.Lat()) {
				return fmt.Errorf("%w: non-finite vertex", ErrZoneData)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Zones returns the zones in load order.
func (idx *Index) Zones() []Zone {
	out := make([]Zone, len(idx.zones))
	copy(out, idx.zones)
	return out
}

// Classify returns the name of the first zone containing coords, Unassigned
// when no zone does, and Pending when coords is nil.
func (idx *Index) Classify(coords *models.Coordinates) string {
	if coords == nil {
		return Pending
	}

	point := orb.Point{coords.Longitude, coords.Latitude}
	for _, zone := range idx.zones {
		if idx.contains(zone, point) {
			return zone.Name
		}
	}

	return Unassigned
}

// contains never panics; a failing containment test counts as a non-match.
func (idx *Index) contains(zone Zone, point orb.Point) (ok bool) {
	if !zone.valid || !zone.bound.Contains(point) {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			idx.log.Error("Zone containment check failed", "zone", zone.Name, "panic", r)
			ok = false
		}
	}()

	switch g := zone.Boundary.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, point)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, point)
	}
	return false
}

// ZoneCount is the number of records assigned to a zone.
type ZoneCount struct {
	Zone  string `json:"zone"`
	Count int    `json:"count"`
}

// Summarize counts assignments per zone. The result lists every zone in load
// order, then Unassigned and Pending. Unknown names are ignored.
func (idx *Index) Summarize(assignments []string) []ZoneCount {
	counts := make(map[string]int, len(idx.zones)+2)
	for _, name := range assignments {
		counts[name]++
	}

	out := make([]ZoneCount, 0, len(idx.zones)+2)
	seen := make(map[string]struct{}, len(idx.zones))
	for _, zone := range idx.zones {
		if _, dup := seen[zone.Name]; dup {
			continue
		}
		seen[zone.Name] = struct{}{}
		out = append(out, ZoneCount{Zone: zone.Name, Count: counts[zone.Name]})
	}
	out = append(out,
		ZoneCount{Zone: Unassigned, Count: counts[Unassigned]},
		ZoneCount{Zone: Pending, Count: counts[Pending]},
	)

	return out
}
