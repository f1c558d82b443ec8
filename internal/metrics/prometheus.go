// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the progression backend.
var (
	// Counters.
	ActivitiesRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activities_recorded_total",
			Help: "Total number of activity results recorded",
		},
		[]string{"mode"},
	)

	XPAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xp_awarded_total",
			Help: "Total XP awarded through activities and grants",
		},
	)

	LevelUpsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "level_ups_total",
			Help: "Total number of level-up events",
		},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge_code"},
	)

	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchases_total",
			Help: "Total island and power-up purchase attempts",
		},
		[]string{"kind", "status"},
	)

	VisitsRecordedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "visits_recorded_total",
			Help: "Total visit beacons recorded",
		},
	)

	// Gauges.
	ActiveStreaks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_streaks",
			Help: "Number of users with a streak of at least 2 days",
		},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_jobs_run_total",
			Help: "Total scheduler job executions",
		},
		[]string{"job", "status"},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Time taken to execute scheduled jobs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		},
		[]string{"job"},
	)

	// Histograms.
	ActivityScoreRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "activity_score_ratio",
			Help:    "Score over total questions per recorded activity",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11), // 0.0 to 1.0
		},
	)
)

// RecordActivity records a completed activity submission.
func RecordActivity(mode string, xpGained int) {
	ActivitiesRecordedTotal.WithLabelValues(mode).Inc()
	XPAwardedTotal.Add(float64(xpGained))
}

// RecordLevelUp records a level-up event.
func RecordLevelUp() {
	LevelUpsTotal.Inc()
}

// RecordBadgeAwarded records a badge award event.
func RecordBadgeAwarded(code string) {
	BadgesAwardedTotal.WithLabelValues(code).Inc()
}

// RecordPurchase records a purchase attempt outcome.
func RecordPurchase(kind, status string) {
	PurchasesTotal.WithLabelValues(kind, status).Inc()
}

// RecordVisit records a visit beacon.
func RecordVisit() {
	VisitsRecordedTotal.Inc()
}

// SetActiveStreaks sets the active streak gauge.
func SetActiveStreaks(count int64) {
	ActiveStreaks.Set(float64(count))
}

// RecordSchedulerJob records a scheduler job execution.
func RecordSchedulerJob(job, status string) {
	SchedulerJobsRunTotal.WithLabelValues(job, status).Inc()
}

// ObserveSchedulerJobDuration observes how long a scheduled job took.
func ObserveSchedulerJobDuration(job string, seconds float64) {
	SchedulerJobDurationSeconds.WithLabelValues(job).Observe(seconds)
}

// ObserveScoreRatio observes the score ratio of an activity.
func ObserveScoreRatio(score, total int) {
	if total > 0 {
		ActivityScoreRatio.Observe(float64(score) / float64(total))
	}
}
