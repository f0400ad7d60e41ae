// Package geo provides the small geographic toolbox the acquisition layer
// needs: haversine distances and the static country→continent mapping used
// to derive the continental level of a location hierarchy.
package geo

import (
	"sort"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Orb converts the point to orb's lon/lat ordering.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Distance calculates the haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	return orbgeo.Distance(p1.Orb(), p2.Orb())
}

// SortByDistance orders items in place by their distance from origin,
// closest first. pos extracts the coordinate of an item.
func SortByDistance[T any](items []T, origin Point, pos func(T) Point) {
	sort.SliceStable(items, func(i, j int) bool {
		return Distance(origin, pos(items[i])) < Distance(origin, pos(items[j]))
	})
}

// Within reports whether p lies within radiusM meters of origin.
func Within(origin, p Point, radiusM float64) bool {
	return Distance(origin, p) <= radiusM
}
