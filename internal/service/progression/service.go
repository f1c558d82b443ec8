// Package progression implements the gamification engine: XP accrual, the
// leveling curve, daily streaks, badge unlocking, and the XP-spend economy.
package progression

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/civicquest/civicquest-api/internal/config"
	prommetrics "github.com/civicquest/civicquest-api/internal/metrics"
	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// baseXPPerCorrectAnswer is the XP granted per correct answer before the
// mode multiplier and bonus are applied.
const baseXPPerCorrectAnswer = 10

// Repository is the storage seam the engine mutates state through. Transform
// must run fn against the current row under a per-user atomicity guarantee.
type Repository interface {
	GetByUserID(userID uint) (*models.Progression, error)
	Transform(userID uint, fn func(prog *models.Progression) (*repository.TransformResult, error)) (*models.Progression, error)
	GetLedger(userID uint, limit int) ([]models.PointLedger, error)
}

// Service is the progression engine.
type Service struct {
	repo       Repository
	islandCost int
	levelStep  int
	log        *logger.Logger
	now        func() time.Time
}

// ActivityInput is the outcome of a completed activity.
type ActivityInput struct {
	Score          int
	TotalQuestions int
	Bonus          int
	Mode           string
	Multiplier     float64
}

// ActivityOutcome is the result of recording an activity.
type ActivityOutcome struct {
	XPGained  int
	LeveledUp bool
	NewBadges []string
	State     *models.Progression
}

// NewService creates a progression service backed by the GORM repository.
func NewService(repo *repository.ProgressionRepository, cfg *config.GamificationConfig, log *logger.Logger) *Service {
	return newService(repo, cfg, log)
}

// NewServiceWithInterfaces creates a progression service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, cfg *config.GamificationConfig, log *logger.Logger) *Service {
	return newService(repo, cfg, log)
}

func newService(repo Repository, cfg *config.GamificationConfig, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		islandCost: cfg.IslandCostXP,
		levelStep:  cfg.LevelStepXP,
		log:        log,
		now:        time.Now,
	}
}

// GetState returns the user's current progression.
func (s *Service) GetState(ctx context.Context, userID uint) (*models.Progression, error) {
	return s.repo.GetByUserID(userID)
}

// GetLedger returns the user's recent XP movements.
func (s *Service) GetLedger(ctx context.Context, userID uint, limit int) ([]models.PointLedger, error) {
	return s.repo.GetLedger(userID, limit)
}

// RecordActivityResult applies a completed activity to the user's
// progression: XP accrual, level re-derivation, streak continuation, and
// badge evaluation, all in one atomic update.
func (s *Service) RecordActivityResult(ctx context.Context, userID uint, input ActivityInput) (*ActivityOutcome, error) {
	if err := validateActivityInput(input); err != nil {
		return nil, err
	}

	multiplier := input.Multiplier
	if multiplier == 0 {
		multiplier = 1
	}
	xpGained := int(math.Floor(float64(input.Score)*baseXPPerCorrectAnswer*multiplier)) + input.Bonus

	var outcome ActivityOutcome
	now := s.now()

	state, err := s.repo.Transform(userID, func(prog *models.Progression) (*repository.TransformResult, error) {
		// Legacy records could hold xp > totalXP; heal once before
		// applying the new earnings.
		if prog.TotalXP < prog.XP {
			prog.TotalXP = prog.XP
		}

		prog.XP += xpGained
		prog.TotalXP += xpGained

		previousLevel := prog.Level
		prog.Level = levelForTotalXP(prog.TotalXP, s.levelStep)
		outcome.LeveledUp = prog.Level > previousLevel

		prog.Streak = nextStreak(prog.Streak, prog.LastActivityAt, now)
		prog.LastActivityAt = &now

		outcome.NewBadges = evaluateBadges(prog, badgeContext{
			Level:          prog.Level,
			Streak:         prog.Streak,
			Score:          input.Score,
			TotalQuestions: input.TotalQuestions,
			Mode:           input.Mode,
		})

		return &repository.TransformResult{
			NewBadges: outcome.NewBadges,
			Ledger: &models.PointLedger{
				Amount: xpGained,
				Reason: models.LedgerActivity,
				Detail: input.Mode,
			},
			Activity: &models.ActivityResult{
				Mode:           input.Mode,
				Score:          input.Score,
				TotalQuestions: input.TotalQuestions,
				XPGained:       xpGained,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	outcome.XPGained = xpGained
	outcome.State = state

	prommetrics.RecordActivity(input.Mode, xpGained)
	prommetrics.ObserveScoreRatio(input.Score, input.TotalQuestions)
	if outcome.LeveledUp {
		prommetrics.RecordLevelUp()
	}
	for _, code := range outcome.NewBadges {
		prommetrics.RecordBadgeAwarded(code)
	}

	s.log.Info().
		Uint("user_id", userID).
		Str("mode", input.Mode).
		Int("xp_gained", xpGained).
		Int("level", state.Level).
		Int("streak", state.Streak).
		Bool("leveled_up", outcome.LeveledUp).
		Strs("new_badges", outcome.NewBadges).
		Msg("Activity recorded")

	return &outcome, nil
}

// AdjustShields applies a signed delta to the shield counter, clamped at 0.
func (s *Service) AdjustShields(ctx context.Context, userID uint, delta int) (*models.Progression, error) {
	return s.repo.Transform(userID, func(prog *models.Progression) (*repository.TransformResult, error) {
		prog.Shields += delta
		if prog.Shields < 0 {
			prog.Shields = 0
		}
		return nil, nil
	})
}

// PurchaseIsland spends XP to unlock an island. Each island can be bought
// once per user.
func (s *Service) PurchaseIsland(ctx context.Context, userID uint, islandID string) (*models.Progression, error) {
	if islandID == "" {
		return nil, &ValidationError{Field: "island_id", Reason: "must not be empty"}
	}

	state, err := s.repo.Transform(userID, func(prog *models.Progression) (*repository.TransformResult, error) {
		if prog.OwnsIsland(islandID) {
			return nil, ErrAlreadyOwned
		}
		if prog.XP < s.islandCost {
			return nil, fmt.Errorf("island costs %d XP: %w", s.islandCost, ErrInsufficientXP)
		}
		prog.XP -= s.islandCost
		return &repository.TransformResult{
			Island: islandID,
			Ledger: &models.PointLedger{
				Amount: -s.islandCost,
				Reason: models.LedgerIsland,
				Detail: islandID,
			},
		}, nil
	})
	if err != nil {
		prommetrics.RecordPurchase("island", purchaseStatus(err))
		return nil, err
	}

	prommetrics.RecordPurchase("island", "ok")
	s.log.Info().
		Uint("user_id", userID).
		Str("island_id", islandID).
		Int("xp_remaining", state.XP).
		Msg("Island unlocked")

	return state, nil
}

// PurchasePowerUp spends XP on a consumable gameplay aid at a fixed price
// per type. Unknown types are rejected.
func (s *Service) PurchasePowerUp(ctx context.Context, userID uint, powerUpType string) (*models.Progression, int, error) {
	cost, ok := PowerUpCost(powerUpType)
	if !ok {
		prommetrics.RecordPurchase("powerup", "unknown_type")
		return nil, 0, &ValidationError{Field: "type", Reason: "unknown power-up type " + powerUpType}
	}

	state, err := s.repo.Transform(userID, func(prog *models.Progression) (*repository.TransformResult, error) {
		if prog.XP < cost {
			return nil, fmt.Errorf("%s costs %d XP: %w", powerUpType, cost, ErrInsufficientXP)
		}
		prog.XP -= cost
		return &repository.TransformResult{
			Ledger: &models.PointLedger{
				Amount: -cost,
				Reason: models.LedgerPowerUp,
				Detail: powerUpType,
			},
		}, nil
	})
	if err != nil {
		prommetrics.RecordPurchase("powerup", purchaseStatus(err))
		return nil, 0, err
	}

	prommetrics.RecordPurchase("powerup", "ok")
	s.log.Info().
		Uint("user_id", userID).
		Str("type", powerUpType).
		Int("cost", cost).
		Int("xp_remaining", state.XP).
		Msg("Power-up purchased")

	return state, cost, nil
}

// GrantXP adds XP out of band (admin console). The level is re-derived from
// lifetime XP; streaks and badges are untouched until the next activity.
func (s *Service) GrantXP(ctx context.Context, userID uint, amount int, detail string) (*models.Progression, error) {
	if amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	state, err := s.repo.Transform(userID, func(prog *models.Progression) (*repository.TransformResult, error) {
		if prog.TotalXP < prog.XP {
			prog.TotalXP = prog.XP
		}
		prog.XP += amount
		prog.TotalXP += amount
		prog.Level = levelForTotalXP(prog.TotalXP, s.levelStep)
		return &repository.TransformResult{
			Ledger: &models.PointLedger{
				Amount: amount,
				Reason: models.LedgerAdminGrant,
				Detail: detail,
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	prommetrics.XPAwardedTotal.Add(float64(amount))
	s.log.Info().
		Uint("user_id", userID).
		Int("amount", amount).
		Str("detail", detail).
		Msg("XP granted")

	return state, nil
}

// XPForNextLevel returns the remaining and total cost of the user's current
// tier, for progress displays.
func (s *Service) XPForNextLevel(totalXP int) (into, required int) {
	return xpIntoLevel(totalXP, s.levelStep), xpForNextLevel(totalXP, s.levelStep)
}

func validateActivityInput(input ActivityInput) error {
	if input.Score < 0 {
		return &ValidationError{Field: "score", Reason: "must be non-negative"}
	}
	if input.TotalQuestions < 0 {
		return &ValidationError{Field: "total_questions", Reason: "must be non-negative"}
	}
	if input.Bonus < 0 {
		return &ValidationError{Field: "bonus", Reason: "must be non-negative"}
	}
	if input.Multiplier < 0 {
		return &ValidationError{Field: "multiplier", Reason: "must be positive"}
	}
	switch input.Mode {
	case "", models.ModeStandard, models.ModeSurvival, models.ModeSpeedrun:
	default:
		return &ValidationError{Field: "mode", Reason: "unknown mode " + input.Mode}
	}
	return nil
}

func purchaseStatus(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientXP):
		return "insufficient_xp"
	case errors.Is(err, ErrAlreadyOwned):
		return "already_owned"
	default:
		return "error"
	}
}
