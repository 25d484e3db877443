// Package app assembles the clinic pipeline from configuration.
package app

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/clinic-finder/internal/clinic"
	"github.com/i474232898/clinic-finder/internal/config"
	"github.com/i474232898/clinic-finder/internal/geocoding"
	"github.com/i474232898/clinic-finder/internal/sources"
	"github.com/i474232898/clinic-finder/internal/store"
)

// resultCacheMaxEntries bounds the result cache: treatments × observer cells.
const resultCacheMaxEntries = 2048

// Components are the wired collaborators shared by the server and the
// snapshot generator.
type Components struct {
	Service  *clinic.Service
	Sheets   *sources.SheetsClient // nil when the spreadsheet is not configured
	Snapshot *sources.FileSnapshot
	Cache    *store.ResultCache
	Calls    *store.RateCounter
}

// Build wires every component from cfg. withSnapshot enables the snapshot
// fast path; the generator turns it off so it always reads live rows.
func Build(cfg *config.AppConfig, httpClient *http.Client, withSnapshot bool) *Components {
	c := &Components{
		Snapshot: sources.NewFileSnapshot(cfg.SnapshotPath),
		Cache:    store.NewResultCache(cfg.ResultCacheTTL, resultCacheMaxEntries),
		Calls:    store.NewRateCounter(cfg.APICallLimit, cfg.APIMinCallGap),
	}

	opts := []clinic.Option{clinic.WithCallRecorder(c.Calls)}
	if withSnapshot {
		opts = append(opts, clinic.WithSnapshot(c.Snapshot))
	}
	if g := newGeocoder(cfg, httpClient); g != nil {
		resolver := geocoding.NewResolver(g,
			geocoding.NewCache(cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL),
			geocoding.WithMinInterval(cfg.GeocodeInterval),
			geocoding.WithWorkers(cfg.GeocodeWorkers),
			geocoding.WithCallRecorder(c.Calls),
		)
		opts = append(opts, clinic.WithGeocoder(resolver))
	}

	var rows clinic.RowSource
	if cfg.SheetsConfigured() {
		c.Sheets = sources.NewSheetsClient(httpClient, sources.SheetsConfig{
			APIKey:        cfg.SheetsAPIKey,
			SpreadsheetID: cfg.SheetsID,
			ClinicsRange:  cfg.ClinicsRange,
			MappingRange:  cfg.MappingRange,
		})
		rows = c.Sheets
	} else {
		log.Warn().Msg("google sheets is not configured; serving the snapshot only")
	}

	c.Service = clinic.NewService(rows, c.Cache, opts...)
	return c
}

func newGeocoder(cfg *config.AppConfig, httpClient *http.Client) geocoding.Client {
	if !cfg.GeocodingEnabled() {
		log.Info().Str("provider", cfg.GeocoderProvider).Msg("geocoding disabled; clinics without coordinates keep unknown distances")
		return nil
	}
	switch cfg.GeocoderProvider {
	case config.GeocoderKelvins:
		return sources.NewKelvinsGeocoder(cfg.MapsAPIKey, cfg.GeocodeCountry)
	default:
		return sources.NewGoogleGeocoder(httpClient, sources.GeocoderConfig{
			APIKey:   cfg.MapsAPIKey,
			Region:   cfg.GeocodeRegion,
			Language: cfg.GeocodeLanguage,
			Country:  cfg.GeocodeCountry,
		})
	}
}
