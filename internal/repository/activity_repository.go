package repository

import (
	"fmt"
	"time"

	"github.com/civicquest/civicquest-api/internal/models"
)

// ActivityRepository handles activity result and visit analytics rows.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// GetByUser returns a user's recorded activities in a date range.
func (r *ActivityRepository) GetByUser(userID uint, start, end time.Time) ([]models.ActivityResult, error) {
	var results []models.ActivityResult
	err := r.db.
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, start, end).
		Order("created_at DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get activities for user %d: %w", userID, err)
	}
	return results, nil
}

// CountByMode returns activity counts grouped by mode in a date range.
func (r *ActivityRepository) CountByMode(start, end time.Time) (map[string]int64, error) {
	type row struct {
		Mode  string
		Count int64
	}
	var rows []row
	err := r.db.Model(&models.ActivityResult{}).
		Select("mode, count(*) as count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("mode").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count activities by mode: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Mode] = r.Count
	}
	return counts, nil
}

// SumXPGained returns the XP earned through activities in a date range.
func (r *ActivityRepository) SumXPGained(start, end time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.ActivityResult{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Select("coalesce(sum(xp_gained), 0)").
		Scan(&total).Error
	return total, err
}

// RecordVisit stores a raw visit beacon.
func (r *ActivityRepository) RecordVisit(visit *models.Visit) error {
	return r.db.Create(visit).Error
}

// CountVisits returns raw visit and unique visitor counts in a date range.
func (r *ActivityRepository) CountVisits(start, end time.Time) (visits, uniques int64, err error) {
	err = r.db.Model(&models.Visit{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&visits).Error
	if err != nil {
		return 0, 0, err
	}

	err = r.db.Model(&models.Visit{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Distinct("visitor_id").
		Count(&uniques).Error
	return visits, uniques, err
}

// RollupVisits aggregates raw visits for one day into per-path rollup rows.
// Existing rollups for the day are replaced, so the job is rerunnable.
func (r *ActivityRepository) RollupVisits(day time.Time) (int, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	type row struct {
		Path    string
		Visits  int64
		Uniques int64
	}
	var rows []row
	err := r.db.Model(&models.Visit{}).
		Select("path, count(*) as visits, count(distinct visitor_id) as uniques").
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Group("path").
		Scan(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate visits: %w", err)
	}

	if err := r.db.Where("day = ?", dayStart).Delete(&models.VisitRollup{}).Error; err != nil {
		return 0, err
	}

	for _, agg := range rows {
		rollup := models.VisitRollup{
			Day:     dayStart,
			Path:    agg.Path,
			Visits:  agg.Visits,
			Uniques: agg.Uniques,
		}
		if err := r.db.Create(&rollup).Error; err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

// GetRollups returns daily visit aggregates in a date range.
func (r *ActivityRepository) GetRollups(start, end time.Time) ([]models.VisitRollup, error) {
	var rollups []models.VisitRollup
	err := r.db.
		Where("day >= ? AND day < ?", start, end).
		Order("day ASC").
		Find(&rollups).Error
	return rollups, err
}
