package sources

import (
	"context"
	"errors"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/clinic-finder/internal/clinic"
	"github.com/i474232898/clinic-finder/internal/geo"
	"github.com/i474232898/clinic-finder/internal/geocoding"
)

// kelvins/geocoder keeps its key in a package variable.
var kelvinsKeyMu sync.Mutex

// KelvinsGeocoder implements geocoding.Client on top of github.com/kelvins/geocoder.
// The library takes no context, so cancellation only abandons the wait.
type KelvinsGeocoder struct {
	apiKey  string
	country string
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

// NewKelvinsGeocoder creates a KelvinsGeocoder biased to country.
func NewKelvinsGeocoder(apiKey, country string) *KelvinsGeocoder {
	return &KelvinsGeocoder{apiKey: apiKey, country: country, lookup: geocoder.Geocoding}
}

// Name implements geocoding.Client.
func (k *KelvinsGeocoder) Name() string {
	return "kelvins"
}

// Geocode implements geocoding.Client.
func (k *KelvinsGeocoder) Geocode(ctx context.Context, address string) (geo.Point, error) {
	if k.apiKey == "" {
		return geo.Point{}, &clinic.Error{
			Kind:    clinic.KindConfiguration,
			Message: "google maps api key is not configured",
			Err:     ErrNotConfigured,
		}
	}

	type outcome struct {
		loc geocoder.Location
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		kelvinsKeyMu.Lock()
		geocoder.ApiKey = k.apiKey
		loc, err := k.lookup(geocoder.Address{Street: address, Country: k.country})
		kelvinsKeyMu.Unlock()
		done <- outcome{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return geo.Point{}, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return geo.Point{}, clinic.NewUpstreamError("geocode request failed", o.err)
		}
		if o.loc.Latitude == 0 && o.loc.Longitude == 0 {
			return geo.Point{}, clinic.NewGeocodeMissError(address, geocoding.ErrNoResults)
		}
		p, err := geo.NewPoint(o.loc.Latitude, o.loc.Longitude)
		if err != nil {
			return geo.Point{}, clinic.NewGeocodeMissError(address, errors.Join(geocoding.ErrNoResults, err))
		}
		return p, nil
	}
}
