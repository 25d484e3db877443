// Package geo holds the coordinate types and great-circle helpers shared by
// the clinic pipeline and the HTTP layer.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPoint is returned when a latitude/longitude pair is out of range
// or not numeric.
var ErrInvalidPoint = errors.New("invalid coordinates")

// Point is a WGS84 latitude/longitude pair in degrees.
// Absence of a point is expressed with a nil *Point, never with 0,0.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// NewPoint validates lat/lng ranges.
func NewPoint(lat, lng float64) (Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Point{}, fmt.Errorf("%w: %f,%f", ErrInvalidPoint, lat, lng)
	}
	return Point{Lat: lat, Lng: lng}, nil
}

// ParsePoint parses two decimal strings. Both must be present.
func ParsePoint(lat, lng string) (Point, error) {
	lat = strings.TrimSpace(lat)
	lng = strings.TrimSpace(lng)
	if lat == "" || lng == "" {
		return Point{}, fmt.Errorf("%w: latitude and longitude are both required", ErrInvalidPoint)
	}

	la, err := strconv.ParseFloat(strings.ReplaceAll(lat, ",", "."), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: latitude %q", ErrInvalidPoint, lat)
	}
	ln, err := strconv.ParseFloat(strings.ReplaceAll(lng, ",", "."), 64)
	if err != nil {
		return Point{}, fmt.Errorf("%w: longitude %q", ErrInvalidPoint, lng)
	}
	return NewPoint(la, ln)
}

func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}
