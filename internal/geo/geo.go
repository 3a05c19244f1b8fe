// Package geo provides the distance lookup collaborator used by shipping
// pricing: a static table of named locations with great-circle distances
// between their coordinates.
package geo

import (
	"context"
	"math"
	"strings"

	"github.com/go-faster/errors"
)

// ErrUnknownLocation is returned when a location name is not in the table.
var ErrUnknownLocation = errors.New("unknown location")

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lon float64
}

const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between two points in
// kilometres.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Table resolves distances between named locations from a fixed coordinates
// map. Lookups are case-insensitive. Safe for concurrent use after
// construction.
type Table struct {
	coords map[string]Point
}

// NewTable builds a Table from the given location coordinates.
func NewTable(coords map[string]Point) *Table {
	normalized := make(map[string]Point, len(coords))
	for name, p := range coords {
		normalized[strings.ToLower(name)] = p
	}
	return &Table{coords: normalized}
}

// Distance returns the great-circle distance in kilometres between two
// named locations. Either name missing from the table yields
// ErrUnknownLocation.
func (t *Table) Distance(_ context.Context, from, to string) (float64, error) {
	a, ok := t.coords[strings.ToLower(from)]
	if !ok {
		return 0, errors.Wrap(ErrUnknownLocation, from)
	}
	b, ok := t.coords[strings.ToLower(to)]
	if !ok {
		return 0, errors.Wrap(ErrUnknownLocation, to)
	}
	if strings.EqualFold(from, to) {
		return 0, nil
	}
	return Haversine(a, b), nil
}

// Pairs resolves distances from explicit location-pair entries instead of
// coordinates. Pairs are symmetric; a location paired with itself is 0.
type Pairs struct {
	dist map[[2]string]float64
}

// NewPairs builds a Pairs table. Entries are keyed by the two location
// names in either order.
func NewPairs(entries map[[2]string]float64) *Pairs {
	dist := make(map[[2]string]float64, len(entries))
	for key, km := range entries {
		dist[pairKey(key[0], key[1])] = km
	}
	return &Pairs{dist: dist}
}

// Distance returns the configured distance between two named locations.
// A pair missing from the table yields ErrUnknownLocation.
func (p *Pairs) Distance(_ context.Context, from, to string) (float64, error) {
	if strings.EqualFold(from, to) {
		return 0, nil
	}
	km, ok := p.dist[pairKey(from, to)]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownLocation, "%s-%s", from, to)
	}
	return km, nil
}

func pairKey(a, b string) [2]string {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}
