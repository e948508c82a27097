package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// mean earth radius in meters
const earthRadiusM = 6372797.560856

// EarthDistance is the great-circle distance in meters between two lon/lat
// points.
func EarthDistance(lon1, lat1, lon2, lat2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * earthRadiusM
}

// CentroidDistance is the distance between the centroids of two geometries,
// either Euclidean or great-circle. ok is false when either geometry is
// empty.
func CentroidDistance(a, b Geom, earth bool) (float64, bool) {
	ax, ay, ok := a.Centroid()
	if !ok {
		return 0, false
	}
	bx, by, ok := b.Centroid()
	if !ok {
		return 0, false
	}
	if earth {
		return EarthDistance(ax, ay, bx, by), true
	}
	return math.Hypot(ax-bx, ay-by), true
}
