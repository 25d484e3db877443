package clinic

import (
	"sort"

	"github.com/i474232898/clinic-finder/internal/geo"
)

// ApplyDistances sets DistanceKm from observer for every clinic with
// coordinates. Clinics without coordinates, and every clinic when observer
// is nil, get an unknown (nil) distance.
func ApplyDistances(clinics []Clinic, observer *geo.Point) {
	for i := range clinics {
		clinics[i].DistanceKm = nil
		if observer == nil || clinics[i].Coordinates == nil {
			continue
		}
		d := geo.DistanceKm(*observer, *clinics[i].Coordinates)
		clinics[i].DistanceKm = &d
	}
}

// SortByDistance orders clinics by ascending distance. Clinics with an
// unknown distance come after every known one and keep their relative order.
func SortByDistance(clinics []Clinic) {
	sort.SliceStable(clinics, func(i, j int) bool {
		a, b := clinics[i].DistanceKm, clinics[j].DistanceKm
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
