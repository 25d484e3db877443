package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"

	"github.com/i474232898/clinic-finder/internal/clinic"
)

// SnapshotBuilder runs the live pipeline into a snapshot document.
type SnapshotBuilder interface {
	Rebuild(ctx context.Context) (*clinic.Snapshot, error)
}

// SnapshotWriter persists a snapshot document.
type SnapshotWriter interface {
	WriteSnapshot(snap *clinic.Snapshot) error
}

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// Jobs configures what the scheduler runs. A zero interval disables a job.
type Jobs struct {
	SnapshotInterval time.Duration
	SweepInterval    time.Duration
	// JobTimeout bounds one snapshot regeneration.
	JobTimeout time.Duration
}

// Scheduler periodically regenerates the clinic snapshot and sweeps the
// result cache.
type Scheduler struct {
	scheduler *gocron.Scheduler
	builder   SnapshotBuilder
	writer    SnapshotWriter
	cache     Sweeper
	jobs      Jobs
}

// New creates a new Scheduler. builder and writer may be nil when snapshot
// regeneration is not possible; cache may be nil.
func New(jobs Jobs, builder SnapshotBuilder, writer SnapshotWriter, cache Sweeper) *Scheduler {
	if jobs.JobTimeout <= 0 {
		jobs.JobTimeout = 2 * time.Minute
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		builder:   builder,
		writer:    writer,
		cache:     cache,
		jobs:      jobs,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	scheduled := 0

	if s.jobs.SnapshotInterval > 0 && s.builder != nil && s.writer != nil {
		_, err := s.scheduler.Every(s.jobs.SnapshotInterval).SingletonMode().Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.jobs.JobTimeout)
			defer cancel()
			if err := s.RefreshSnapshot(ctx); err != nil {
				log.Error().Err(err).Msg("scheduler: snapshot regeneration failed")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule snapshot job: %w", err)
		}
		scheduled++
	}

	if s.jobs.SweepInterval > 0 && s.cache != nil {
		_, err := s.scheduler.Every(s.jobs.SweepInterval).Do(func() {
			if n := s.cache.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("scheduler: swept expired result cache entries")
			}
		})
		if err != nil {
			return fmt.Errorf("schedule cache sweep: %w", err)
		}
		scheduled++
	}

	if scheduled == 0 {
		log.Info().Msg("scheduler: nothing to schedule")
		return nil
	}

	s.scheduler.StartAsync()
	return nil
}

// RefreshSnapshot rebuilds the snapshot from the live source and writes it.
// A failed rebuild leaves the previous file in place.
func (s *Scheduler) RefreshSnapshot(ctx context.Context) error {
	log.Info().Msg("scheduler: regenerating clinic snapshot")
	snap, err := s.builder.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild snapshot: %w", err)
	}
	if err := s.writer.WriteSnapshot(snap); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	log.Info().
		Int("clinics", snap.TotalClinics).
		Str("run_id", snap.RunID).
		Msg("scheduler: clinic snapshot written")
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
