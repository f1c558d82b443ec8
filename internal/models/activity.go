package models

import (
	"time"
)

// Game modes accepted by the progression engine.
const (
	ModeStandard = "standard"
	ModeSurvival = "survival"
	ModeSpeedrun = "speedrun"
)

// ActivityResult is the audit row written for every recorded activity.
// Analytics and leaderboards aggregate over these rows.
type ActivityResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Mode           string    `gorm:"size:50" json:"mode"`
	Score          int       `gorm:"not null" json:"score"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	XPGained       int       `gorm:"not null" json:"xp_gained"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for ActivityResult model.
func (ActivityResult) TableName() string {
	return "activity_results"
}

// Visit is a raw page-visit beacon used by the admin analytics console.
type Visit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Path      string    `gorm:"size:255;index" json:"path"`
	VisitorID string    `gorm:"size:100;index" json:"visitor_id"`
	UserAgent string    `gorm:"size:512" json:"user_agent,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Visit model.
func (Visit) TableName() string {
	return "visits"
}

// VisitRollup is a per-day aggregate produced by the nightly rollup job.
type VisitRollup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       time.Time `gorm:"not null;uniqueIndex:idx_rollup_day_path" json:"day"`
	Path      string    `gorm:"size:255;uniqueIndex:idx_rollup_day_path" json:"path"`
	Visits    int64     `gorm:"not null" json:"visits"`
	Uniques   int64     `gorm:"not null" json:"uniques"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for VisitRollup model.
func (VisitRollup) TableName() string {
	return "visit_rollups"
}
