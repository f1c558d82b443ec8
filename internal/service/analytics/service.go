// Package analytics aggregates engagement data for the admin console.
package analytics

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/civicquest/civicquest-api/internal/metrics"
	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// ActivityRepository defines the activity and visit operations analytics needs.
type ActivityRepository interface {
	CountByMode(start, end time.Time) (map[string]int64, error)
	SumXPGained(start, end time.Time) (int64, error)
	RecordVisit(visit *models.Visit) error
	CountVisits(start, end time.Time) (visits, uniques int64, err error)
	GetRollups(start, end time.Time) ([]models.VisitRollup, error)
}

// ProgressionRepository defines the progression queries analytics needs.
type ProgressionRepository interface {
	CountActiveStreaks(n int) (int64, error)
}

// UserRepository defines the user queries analytics needs.
type UserRepository interface {
	Count() (int64, error)
}

// Summary is the aggregate view served to the admin console for one period.
type Summary struct {
	PeriodDays       int                  `json:"period_days"`
	Start            time.Time            `json:"start"`
	End              time.Time            `json:"end"`
	TotalUsers       int64                `json:"total_users"`
	Visits           int64                `json:"visits"`
	UniqueVisitors   int64                `json:"unique_visitors"`
	ActivitiesByMode map[string]int64     `json:"activities_by_mode"`
	TotalActivities  int64                `json:"total_activities"`
	XPAwarded        int64                `json:"xp_awarded"`
	ActiveStreaks    int64                `json:"active_streaks"`
	DailyVisits      []models.VisitRollup `json:"daily_visits"`
}

// Service computes analytics summaries.
type Service struct {
	activities   ActivityRepository
	progressions ProgressionRepository
	users        UserRepository
	log          *logger.Logger
	now          func() time.Time
}

// NewService creates an analytics service backed by the GORM repositories.
func NewService(activities *repository.ActivityRepository, progressions *repository.ProgressionRepository, users *repository.UserRepository, log *logger.Logger) *Service {
	return newService(activities, progressions, users, log)
}

// NewServiceWithInterfaces creates an analytics service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(activities ActivityRepository, progressions ProgressionRepository, users UserRepository, log *logger.Logger) *Service {
	return newService(activities, progressions, users, log)
}

func newService(activities ActivityRepository, progressions ProgressionRepository, users UserRepository, log *logger.Logger) *Service {
	return &Service{
		activities:   activities,
		progressions: progressions,
		users:        users,
		log:          log,
		now:          time.Now,
	}
}

// GetSummary aggregates the last periodDays of engagement data. A streak
// counts as active from 2 consecutive days.
func (s *Service) GetSummary(ctx context.Context, periodDays int) (*Summary, error) {
	if periodDays <= 0 || periodDays > 365 {
		periodDays = 7
	}

	end := s.now().UTC()
	start := end.AddDate(0, 0, -periodDays)

	totalUsers, err := s.users.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	visits, uniques, err := s.activities.CountVisits(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}

	byMode, err := s.activities.CountByMode(start, end)
	if err != nil {
		return nil, err
	}
	var totalActivities int64
	for _, count := range byMode {
		totalActivities += count
	}

	xpAwarded, err := s.activities.SumXPGained(start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to sum xp: %w", err)
	}

	activeStreaks, err := s.progressions.CountActiveStreaks(2)
	if err != nil {
		return nil, err
	}

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	rollups, err := s.activities.GetRollups(dayStart, end)
	if err != nil {
		return nil, err
	}

	return &Summary{
		PeriodDays:       periodDays,
		Start:            start,
		End:              end,
		TotalUsers:       totalUsers,
		Visits:           visits,
		UniqueVisitors:   uniques,
		ActivitiesByMode: byMode,
		TotalActivities:  totalActivities,
		XPAwarded:        xpAwarded,
		ActiveStreaks:    activeStreaks,
		DailyVisits:      rollups,
	}, nil
}

// RecordVisit stores a page-visit beacon. Failures are logged and swallowed
// so analytics never breaks the page the beacon came from.
func (s *Service) RecordVisit(ctx context.Context, visit *models.Visit) {
	if visit.Path == "" {
		visit.Path = "/"
	}
	if err := s.activities.RecordVisit(visit); err != nil {
		s.log.Warn().Err(err).Str("path", visit.Path).Msg("Failed to record visit")
		return
	}
	prommetrics.RecordVisit()
}
