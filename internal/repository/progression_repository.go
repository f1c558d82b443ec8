package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicquest/civicquest-api/internal/models"
)

// ProgressionRepository handles progression state persistence.
type ProgressionRepository struct {
	db *DB
}

// NewProgressionRepository creates a new progression repository.
func NewProgressionRepository(db *DB) *ProgressionRepository {
	return &ProgressionRepository{db: db}
}

// GetByUserID retrieves a user's progression with badges and islands loaded.
func (r *ProgressionRepository) GetByUserID(userID uint) (*models.Progression, error) {
	var prog models.Progression
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Badges").
		Preload("Islands").
		First(&prog).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get progression for user %d: %w", userID, err)
	}
	return &prog, nil
}

// TransformResult carries the side-effect rows a transform wants persisted
// atomically with the progression update.
type TransformResult struct {
	NewBadges []string
	Island    string
	Ledger    *models.PointLedger
	Activity  *models.ActivityResult
}

// Transform applies fn to the user's progression inside a transaction with
// the row locked, so concurrent submissions for the same user serialize
// instead of losing updates. fn receives the current state fully loaded;
// returned side effects are written in the same transaction.
func (r *ProgressionRepository) Transform(userID uint, fn func(prog *models.Progression) (*TransformResult, error)) (*models.Progression, error) {
	var updated *models.Progression

	err := r.db.Transaction(func(tx *gorm.DB) error {
		var prog models.Progression
		err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&prog).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		// Badge and island sets are separate tables, loaded after the lock
		// is held so fn sees a consistent snapshot.
		if err := tx.Where("user_id = ?", userID).Find(&prog.Badges).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Find(&prog.Islands).Error; err != nil {
			return err
		}

		result, err := fn(&prog)
		if err != nil {
			return err
		}

		if err := tx.Save(&prog).Error; err != nil {
			return err
		}

		if result != nil {
			now := time.Now()
			for _, code := range result.NewBadges {
				badge := models.UserBadge{UserID: userID, Code: code, EarnedAt: now}
				if err := tx.Create(&badge).Error; err != nil {
					return err
				}
				prog.Badges = append(prog.Badges, badge)
			}
			if result.Island != "" {
				island := models.UnlockedIsland{UserID: userID, IslandID: result.Island, PurchasedAt: now}
				if err := tx.Create(&island).Error; err != nil {
					return err
				}
				prog.Islands = append(prog.Islands, island)
			}
			if result.Ledger != nil {
				result.Ledger.UserID = userID
				if err := tx.Create(result.Ledger).Error; err != nil {
					return err
				}
			}
			if result.Activity != nil {
				result.Activity.UserID = userID
				if err := tx.Create(result.Activity).Error; err != nil {
					return err
				}
			}
		}

		updated = &prog
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetLedger returns a user's XP movements, newest first.
func (r *ProgressionRepository) GetLedger(userID uint, limit int) ([]models.PointLedger, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var entries []models.PointLedger
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// TopByTotalXP returns progressions ordered by lifetime XP.
func (r *ProgressionRepository) TopByTotalXP(limit int) ([]models.Progression, error) {
	if limit <= 0 {
		limit = 50
	}
	var progs []models.Progression
	err := r.db.
		Preload("User").
		Order("total_xp DESC").
		Limit(limit).
		Find(&progs).Error
	return progs, err
}

// CountActiveStreaks returns the number of users whose streak is at least n.
func (r *ProgressionRepository) CountActiveStreaks(n int) (int64, error) {
	var count int64
	err := r.db.Model(&models.Progression{}).
		Where("streak >= ?", n).
		Count(&count).Error
	return count, err
}
