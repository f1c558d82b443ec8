package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// mockActivityRepository serves canned aggregates.
type mockActivityRepository struct {
	byMode   map[string]int64
	xpSum    int64
	visits   int64
	uniques  int64
	rollups  []models.VisitRollup
	recorded []*models.Visit
	visitErr error
}

func (m *mockActivityRepository) CountByMode(start, end time.Time) (map[string]int64, error) {
	return m.byMode, nil
}

func (m *mockActivityRepository) SumXPGained(start, end time.Time) (int64, error) {
	return m.xpSum, nil
}

func (m *mockActivityRepository) RecordVisit(visit *models.Visit) error {
	if m.visitErr != nil {
		return m.visitErr
	}
	m.recorded = append(m.recorded, visit)
	return nil
}

func (m *mockActivityRepository) CountVisits(start, end time.Time) (int64, int64, error) {
	return m.visits, m.uniques, nil
}

func (m *mockActivityRepository) GetRollups(start, end time.Time) ([]models.VisitRollup, error) {
	return m.rollups, nil
}

type mockProgressionRepository struct {
	activeStreaks int64
}

func (m *mockProgressionRepository) CountActiveStreaks(n int) (int64, error) {
	return m.activeStreaks, nil
}

type mockUserRepository struct {
	count int64
}

func (m *mockUserRepository) Count() (int64, error) {
	return m.count, nil
}

func setupTestService() (*Service, *mockActivityRepository) {
	activities := &mockActivityRepository{
		byMode:  map[string]int64{"standard": 60, "survival": 25, "speedrun": 10},
		xpSum:   4210,
		visits:  340,
		uniques: 80,
		rollups: []models.VisitRollup{
			{Day: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), Path: "/", Visits: 120, Uniques: 40},
		},
	}
	log := logger.New("debug", "text", "stdout")

	svc := NewServiceWithInterfaces(activities, &mockProgressionRepository{activeStreaks: 5}, &mockUserRepository{count: 12}, log)
	return svc, activities
}

func TestGetSummary(t *testing.T) {
	svc, _ := setupTestService()

	summary, err := svc.GetSummary(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, summary.PeriodDays)
	assert.Equal(t, int64(12), summary.TotalUsers)
	assert.Equal(t, int64(340), summary.Visits)
	assert.Equal(t, int64(80), summary.UniqueVisitors)
	assert.Equal(t, int64(95), summary.TotalActivities)
	assert.Equal(t, int64(4210), summary.XPAwarded)
	assert.Equal(t, int64(5), summary.ActiveStreaks)
	assert.Len(t, summary.DailyVisits, 1)
}

func TestGetSummary_PeriodWindow(t *testing.T) {
	svc, _ := setupTestService()
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	summary, err := svc.GetSummary(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, now, summary.End)
	assert.Equal(t, now.AddDate(0, 0, -7), summary.Start)
}

func TestGetSummary_DefaultsBadPeriod(t *testing.T) {
	svc, _ := setupTestService()

	for _, period := range []int{0, -4, 1000} {
		summary, err := svc.GetSummary(context.Background(), period)
		require.NoError(t, err)
		assert.Equal(t, 7, summary.PeriodDays)
	}
}

func TestRecordVisit(t *testing.T) {
	svc, activities := setupTestService()

	svc.RecordVisit(context.Background(), &models.Visit{Path: "/islands", VisitorID: "anon-1"})

	require.Len(t, activities.recorded, 1)
	assert.Equal(t, "/islands", activities.recorded[0].Path)
}

func TestRecordVisit_EmptyPathDefaults(t *testing.T) {
	svc, activities := setupTestService()

	svc.RecordVisit(context.Background(), &models.Visit{VisitorID: "anon-1"})

	require.Len(t, activities.recorded, 1)
	assert.Equal(t, "/", activities.recorded[0].Path)
}

func TestRecordVisit_SwallowsStorageError(t *testing.T) {
	svc, activities := setupTestService()
	activities.visitErr = errors.New("db down")

	// Must not panic or propagate.
	svc.RecordVisit(context.Background(), &models.Visit{Path: "/"})
	assert.Empty(t, activities.recorded)
}
