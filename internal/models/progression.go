package models

import (
	"time"
)

// Progression holds the per-user gamification state. XP is the spendable
// balance; TotalXP is lifetime earnings and the sole input to the level
// computation, so TotalXP >= XP after any well-formed operation.
type Progression struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	User           User       `gorm:"foreignKey:UserID" json:"-"`
	XP             int        `gorm:"not null;default:0" json:"xp"`
	TotalXP        int        `gorm:"not null;default:0" json:"total_xp"`
	Level          int        `gorm:"not null;default:1" json:"level"`
	Streak         int        `gorm:"not null;default:0" json:"streak"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
	Shields        int        `gorm:"not null;default:0" json:"shields"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Badges  []UserBadge      `gorm:"foreignKey:UserID;references:UserID" json:"badges,omitempty"`
	Islands []UnlockedIsland `gorm:"foreignKey:UserID;references:UserID" json:"islands,omitempty"`
}

// TableName specifies the table name for Progression model.
func (Progression) TableName() string {
	return "progressions"
}

// BadgeCodes returns the earned badge identifiers.
func (p *Progression) BadgeCodes() []string {
	codes := make([]string, 0, len(p.Badges))
	for _, b := range p.Badges {
		codes = append(codes, b.Code)
	}
	return codes
}

// IslandIDs returns the unlocked island identifiers.
func (p *Progression) IslandIDs() []string {
	ids := make([]string, 0, len(p.Islands))
	for _, i := range p.Islands {
		ids = append(ids, i.IslandID)
	}
	return ids
}

// HasBadge reports whether a badge code has already been earned.
func (p *Progression) HasBadge(code string) bool {
	for _, b := range p.Badges {
		if b.Code == code {
			return true
		}
	}
	return false
}

// OwnsIsland reports whether an island has already been unlocked.
func (p *Progression) OwnsIsland(islandID string) bool {
	for _, i := range p.Islands {
		if i.IslandID == islandID {
			return true
		}
	}
	return false
}

// UserBadge represents a one-time achievement earned by a user. The
// composite unique index gives badge-set semantics at the storage layer.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	Code     string    `gorm:"not null;size:100;uniqueIndex:idx_user_badge" json:"code"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// UnlockedIsland represents a purchased content unit.
type UnlockedIsland struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_user_island" json:"user_id"`
	IslandID    string    `gorm:"not null;size:100;uniqueIndex:idx_user_island" json:"island_id"`
	PurchasedAt time.Time `gorm:"not null" json:"purchased_at"`
}

// TableName specifies the table name for UnlockedIsland model.
func (UnlockedIsland) TableName() string {
	return "unlocked_islands"
}

// Ledger reasons for XP movements.
const (
	LedgerActivity   = "activity"
	LedgerIsland     = "island_purchase"
	LedgerPowerUp    = "powerup_purchase"
	LedgerAdminGrant = "admin_grant"
)

// PointLedger records every signed XP movement for auditability.
type PointLedger struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Amount    int       `gorm:"not null" json:"amount"` // positive earn, negative spend
	Reason    string    `gorm:"not null;size:100" json:"reason"`
	Detail    string    `gorm:"size:255" json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for PointLedger model.
func (PointLedger) TableName() string {
	return "point_ledger"
}
