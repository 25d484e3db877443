package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"

	httpapi "github.com/i474232898/clinic-finder/internal/api/http"
	"github.com/i474232898/clinic-finder/internal/app"
	"github.com/i474232898/clinic-finder/internal/config"
	"github.com/i474232898/clinic-finder/internal/logging"
	"github.com/i474232898/clinic-finder/internal/scheduler"
)

const serviceName = "clinic-finder"

func main() {
	// Load configuration (.env first, then the environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(serviceName, cfg.Env, cfg.LogLevel)

	// Shared HTTP client for outbound Sheets and geocoding calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	components := app.Build(cfg, httpClient, true)

	// Scheduler that regenerates the snapshot and sweeps the result cache.
	jobs := scheduler.Jobs{
		SnapshotInterval: cfg.SnapshotRefreshInterval,
		SweepInterval:    cfg.ResultCacheTTL,
	}
	var builder scheduler.SnapshotBuilder
	if components.Sheets != nil {
		builder = components.Service
	}
	sched := scheduler.New(jobs, builder, components.Snapshot, components.Cache)
	if err := sched.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer sched.Stop()

	// Basic app configuration
	fiberApp := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	fiberApp.Use(logging.RequestLogger())
	fiberApp.Use(recover.New())

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	// Pre-generated snapshot for static consumers.
	fiberApp.Static("/data/clinics.json", components.Snapshot.Path())

	opts := httpapi.Options{DeveloperMode: cfg.DeveloperMode}
	if components.Sheets != nil {
		opts.Checker = components.Sheets
	}
	httpapi.RegisterRoutes(fiberApp, components.Service, opts)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("clinic finder listening")
		if err := fiberApp.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
