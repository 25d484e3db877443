package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/i474232898/clinic-finder/internal/clinic"
	"github.com/i474232898/clinic-finder/internal/geo"
	"github.com/i474232898/clinic-finder/internal/geocoding"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GeocoderConfig biases lookups towards one country.
type GeocoderConfig struct {
	APIKey   string
	Region   string // ccTLD region bias, e.g. "py"
	Language string
	Country  string // appended to every address, e.g. "Paraguay"
	// BaseURL overrides the Geocoding API endpoint (tests).
	BaseURL string
}

// GoogleGeocoder implements geocoding.Client with the Google Geocoding API.
// Each call makes at most one request.
type GoogleGeocoder struct {
	cfg  GeocoderConfig
	http *resilientGetter
}

// NewGoogleGeocoder creates a GoogleGeocoder.
func NewGoogleGeocoder(client *http.Client, cfg GeocoderConfig) *GoogleGeocoder {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = googleGeocodeURL
	}
	return &GoogleGeocoder{
		cfg:  cfg,
		http: newResilientGetter("google-geocoding", client, noRetry),
	}
}

// Name implements geocoding.Client.
func (g *GoogleGeocoder) Name() string {
	return "google"
}

// Geocode implements geocoding.Client.
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (geo.Point, error) {
	if g.cfg.APIKey == "" {
		return geo.Point{}, &clinic.Error{
			Kind:    clinic.KindConfiguration,
			Message: "google maps api key is not configured",
			Err:     ErrNotConfigured,
		}
	}

	params := url.Values{}
	params.Set("address", withCountry(address, g.cfg.Country))
	params.Set("key", g.cfg.APIKey)
	if g.cfg.Region != "" {
		params.Set("region", g.cfg.Region)
	}
	if g.cfg.Language != "" {
		params.Set("language", g.cfg.Language)
	}

	resp, err := g.http.get(ctx, g.cfg.BaseURL+"?"+params.Encode())
	if err != nil {
		return geo.Point{}, clinic.NewUpstreamError("geocode request failed", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Status       string `json:"status"`
		ErrorMessage string `json:"error_message,omitempty"`
		Results      []struct {
			Geometry struct {
				Location struct {
					Lat float64 `json:"lat"`
					Lng float64 `json:"lng"`
				} `json:"location"`
			} `json:"geometry"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return geo.Point{}, fmt.Errorf("failed to decode geocode response: %w", err)
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return geo.Point{}, clinic.NewGeocodeMissError(address, geocoding.ErrNoResults)
	default:
		if payload.ErrorMessage != "" {
			return geo.Point{}, clinic.NewUpstreamError("geocode request failed", fmt.Errorf("%s - %s", payload.Status, payload.ErrorMessage))
		}
		return geo.Point{}, clinic.NewUpstreamError("geocode request failed", fmt.Errorf("status %s", payload.Status))
	}
	if len(payload.Results) == 0 {
		return geo.Point{}, clinic.NewGeocodeMissError(address, geocoding.ErrNoResults)
	}

	loc := payload.Results[0].Geometry.Location
	return geo.NewPoint(loc.Lat, loc.Lng)
}

// withCountry appends the country bias unless the address already names it.
func withCountry(address, country string) string {
	address = strings.TrimSpace(address)
	if country == "" || strings.Contains(strings.ToLower(address), strings.ToLower(country)) {
		return address
	}
	return address + ", " + country
}
