// Command generate-snapshot runs the live clinic pipeline once and writes the
// static snapshot served at /data/clinics.json.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/i474232898/clinic-finder/internal/app"
	"github.com/i474232898/clinic-finder/internal/config"
	"github.com/i474232898/clinic-finder/internal/logging"
	"github.com/i474232898/clinic-finder/internal/scheduler"
)

func main() {
	out := flag.String("out", "", "snapshot path (defaults to SNAPSHOT_PATH)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init("generate-snapshot", cfg.Env, cfg.LogLevel)

	if *out != "" {
		cfg.SnapshotPath = *out
	}
	if !cfg.SheetsConfigured() {
		log.Fatal().Msg("GOOGLE_SHEETS_API_KEY and GOOGLE_SHEETS_ID are required")
	}

	components := app.Build(cfg, &http.Client{Timeout: cfg.HTTPTimeout}, false)
	job := scheduler.New(scheduler.Jobs{}, components.Service, components.Snapshot, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := job.RefreshSnapshot(ctx); err != nil {
		log.Error().Err(err).Msg("snapshot generation failed")
		cancel()
		os.Exit(1)
	}
	log.Info().
		Str("path", components.Snapshot.Path()).
		Int("api_calls", components.Calls.Count()).
		Msg("snapshot generated")
}
