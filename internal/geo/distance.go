package geo

import (
	"math"

	"github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for all distances.
const EarthRadiusKm = 6371.0

// observerCellPrecision is a geohash length whose cells are roughly 1.2km x 0.6km.
const observerCellPrecision = 6

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometres, rounded to one decimal place.
func DistanceKm(a, b Point) float64 {
	// s2.LatLng.Distance is the haversine central angle.
	angle := s2.LatLngFromDegrees(a.Lat, a.Lng).Distance(s2.LatLngFromDegrees(b.Lat, b.Lng))
	return roundTenth(angle.Radians() * EarthRadiusKm)
}

// CellKey rounds p to a ~1km cell. Nearby observers share a key.
func CellKey(p Point) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, observerCellPrecision)
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
