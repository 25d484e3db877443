package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Geocoder providers.
const (
	GeocoderGoogle  = "google"
	GeocoderKelvins = "kelvins"
	GeocoderNone    = "none"
)

type AppConfig struct {
	Port     string `validate:"required,numeric"`
	Env      string `validate:"required"`
	LogLevel string

	// Live spreadsheet. Both may be empty when only the snapshot is served.
	SheetsAPIKey string
	SheetsID     string
	ClinicsRange string `validate:"required"`
	MappingRange string `validate:"required"`

	GeocoderProvider string `validate:"oneof=google kelvins none"`
	MapsAPIKey       string
	GeocodeRegion    string
	GeocodeLanguage  string
	GeocodeCountry   string
	GeocodeInterval  time.Duration `validate:"gte=0"`
	GeocodeWorkers   int           `validate:"gte=1,lte=16"`
	GeocodeCacheTTL  time.Duration `validate:"gt=0"`
	GeocodeCacheSize int           `validate:"gte=1"`

	ResultCacheTTL time.Duration `validate:"gt=0"`
	APICallLimit   int           `validate:"gte=1"`
	APIMinCallGap  time.Duration `validate:"gte=0"`

	SnapshotPath            string        `validate:"required"`
	SnapshotRefreshInterval time.Duration `validate:"gte=0"` // 0 = off

	HTTPTimeout   time.Duration `validate:"gt=0"`
	DeveloperMode bool
}

var validate = validator.New()

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file loaded")
	}
	return FromEnv()
}

// FromEnv builds and validates the configuration from the current environment.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Port:     getenvDefault("PORT", "8080"),
		Env:      getenvDefault("APP_ENV", "production"),
		LogLevel: getenvDefault("LOG_LEVEL", "info"),

		SheetsAPIKey: os.Getenv("GOOGLE_SHEETS_API_KEY"),
		SheetsID:     os.Getenv("GOOGLE_SHEETS_ID"),
		ClinicsRange: getenvDefault("SHEETS_CLINICS_RANGE", "Clinicas!A2:K"),
		MappingRange: getenvDefault("SHEETS_MAPPING_RANGE", "TXS!A2:B"),

		GeocoderProvider: strings.ToLower(getenvDefault("GEOCODER_PROVIDER", GeocoderGoogle)),
		MapsAPIKey:       os.Getenv("GOOGLE_MAPS_API_KEY"),
		GeocodeRegion:    getenvDefault("GEOCODE_REGION", "py"),
		GeocodeLanguage:  getenvDefault("GEOCODE_LANGUAGE", "es"),
		GeocodeCountry:   getenvDefault("GEOCODE_COUNTRY", "Paraguay"),
		GeocodeWorkers:   getenvInt("GEOCODE_WORKERS", 2),
		GeocodeCacheSize: getenvInt("GEOCODE_CACHE_SIZE", 4096),

		APICallLimit: getenvInt("API_CALL_LIMIT", 80),
		SnapshotPath: getenvDefault("SNAPSHOT_PATH", "data/clinics.json"),
	}

	var err error
	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"GEOCODE_MIN_INTERVAL", "100ms", &cfg.GeocodeInterval},
		{"GEOCODE_CACHE_TTL", "24h", &cfg.GeocodeCacheTTL},
		{"RESULT_CACHE_TTL", "10m", &cfg.ResultCacheTTL},
		{"API_MIN_CALL_GAP", "50ms", &cfg.APIMinCallGap},
		{"SNAPSHOT_REFRESH_INTERVAL", "0", &cfg.SnapshotRefreshInterval},
		{"HTTP_TIMEOUT", "10s", &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(getenvDefault(d.key, d.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if v := os.Getenv("DEVELOPER_MODE"); v != "" {
		if cfg.DeveloperMode, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid DEVELOPER_MODE: %w", err)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SheetsConfigured reports whether the live spreadsheet can be read.
func (c *AppConfig) SheetsConfigured() bool {
	return c.SheetsAPIKey != "" && c.SheetsID != ""
}

// GeocodingEnabled reports whether a geocoder should be wired.
func (c *AppConfig) GeocodingEnabled() bool {
	return c.GeocoderProvider != GeocoderNone && c.MapsAPIKey != ""
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring non-integer value")
	}
	return def
}
