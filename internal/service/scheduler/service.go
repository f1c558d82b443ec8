// Package scheduler runs the background jobs: leaderboard snapshot rebuilds
// and the nightly visit rollup.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/civicquest/civicquest-api/internal/config"
	prommetrics "github.com/civicquest/civicquest-api/internal/metrics"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/internal/service/leaderboard"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// Service handles background job scheduling.
type Service struct {
	config          *config.Config
	activityRepo    *repository.ActivityRepository
	progressionRepo *repository.ProgressionRepository
	leaderboard     *leaderboard.Service
	log             *logger.Logger
	cron            *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	activityRepo *repository.ActivityRepository,
	progressionRepo *repository.ProgressionRepository,
	leaderboardService *leaderboard.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		config:          cfg,
		activityRepo:    activityRepo,
		progressionRepo: progressionRepo,
		leaderboard:     leaderboardService,
		log:             log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	_, err = s.cron.AddFunc(s.config.Scheduler.LeaderboardSchedule, func() {
		s.runLeaderboardRebuild(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register leaderboard job: %w", err)
	}

	_, err = s.cron.AddFunc(s.config.Scheduler.VisitRollupSchedule, func() {
		s.runVisitRollup(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register visit rollup job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("leaderboard_schedule", s.config.Scheduler.LeaderboardSchedule).
		Str("visit_rollup_schedule", s.config.Scheduler.VisitRollupSchedule).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// runLeaderboardRebuild refreshes the cached leaderboard snapshot and the
// active-streak gauge.
func (s *Service) runLeaderboardRebuild(ctx context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("leaderboard_rebuild", time.Since(start).Seconds())
	}()

	s.log.Debug().Msg("Running leaderboard rebuild job")

	entries, err := s.leaderboard.Rebuild(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Leaderboard rebuild job failed")
		prommetrics.RecordSchedulerJob("leaderboard_rebuild", "error")
		return
	}

	// Streaks count as active from 2 consecutive days.
	if count, err := s.progressionRepo.CountActiveStreaks(2); err == nil {
		prommetrics.SetActiveStreaks(count)
	} else {
		s.log.Warn().Err(err).Msg("Failed to count active streaks")
	}

	prommetrics.RecordSchedulerJob("leaderboard_rebuild", "success")
	s.log.Info().
		Int("entries", len(entries)).
		Dur("duration", time.Since(start)).
		Msg("Leaderboard rebuild job completed")
}

// runVisitRollup aggregates yesterday's raw visit beacons into daily rows.
func (s *Service) runVisitRollup(_ context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration("visit_rollup", time.Since(start).Seconds())
	}()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	s.log.Debug().Str("day", yesterday.Format("2006-01-02")).Msg("Running visit rollup job")

	paths, err := s.activityRepo.RollupVisits(yesterday)
	if err != nil {
		s.log.Error().Err(err).Msg("Visit rollup job failed")
		prommetrics.RecordSchedulerJob("visit_rollup", "error")
		return
	}

	prommetrics.RecordSchedulerJob("visit_rollup", "success")
	s.log.Info().
		Int("paths", paths).
		Dur("duration", time.Since(start)).
		Msg("Visit rollup job completed")
}
