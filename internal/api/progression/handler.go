// Package progression provides REST API handlers for the gamification
// endpoints: progression state, activity submission, purchases, badges,
// and the leaderboard.
package progression

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicquest/civicquest-api/internal/api/middleware"
	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/internal/service/leaderboard"
	progsvc "github.com/civicquest/civicquest-api/internal/service/progression"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// Service interface for progression operations.
type Service interface {
	GetState(ctx context.Context, userID uint) (*models.Progression, error)
	GetLedger(ctx context.Context, userID uint, limit int) ([]models.PointLedger, error)
	RecordActivityResult(ctx context.Context, userID uint, input progsvc.ActivityInput) (*progsvc.ActivityOutcome, error)
	AdjustShields(ctx context.Context, userID uint, delta int) (*models.Progression, error)
	PurchaseIsland(ctx context.Context, userID uint, islandID string) (*models.Progression, error)
	PurchasePowerUp(ctx context.Context, userID uint, powerUpType string) (*models.Progression, int, error)
	XPForNextLevel(totalXP int) (into, required int)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	Get(ctx context.Context) ([]leaderboard.Entry, error)
}

// Handler handles progression API requests.
type Handler struct {
	service            Service
	leaderboardService LeaderboardService
	log                *logger.Logger
}

// NewHandler creates a new progression handler.
func NewHandler(service *progsvc.Service, leaderboardService *leaderboard.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, leaderboardService: leaderboardService, log: log}
}

// NewHandlerWithInterfaces creates a new progression handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(service Service, leaderboardService LeaderboardService, log *logger.Logger) *Handler {
	return &Handler{service: service, leaderboardService: leaderboardService, log: log}
}

type activityRequest struct {
	Score          int     `json:"score"`
	TotalQuestions int     `json:"total_questions"`
	Bonus          int     `json:"bonus"`
	Mode           string  `json:"mode"`
	Multiplier     float64 `json:"multiplier"`
}

type shieldsRequest struct {
	Change int `json:"change"`
}

type islandRequest struct {
	IslandID string `json:"island_id"`
}

type powerUpRequest struct {
	Type string `json:"type"`
}

// userView is the progression state shape returned to clients.
type userView struct {
	XP              int        `json:"xp"`
	TotalXP         int        `json:"total_xp"`
	Level           int        `json:"level"`
	Streak          int        `json:"streak"`
	Shields         int        `json:"shields"`
	Badges          []string   `json:"badges"`
	UnlockedIslands []string   `json:"unlocked_islands"`
	LastActivityAt  *time.Time `json:"last_activity_at,omitempty"`
	XPIntoLevel     int        `json:"xp_into_level"`
	XPForNextLevel  int        `json:"xp_for_next_level"`
}

func (h *Handler) viewOf(prog *models.Progression) userView {
	into, required := h.service.XPForNextLevel(prog.TotalXP)
	return userView{
		XP:              prog.XP,
		TotalXP:         prog.TotalXP,
		Level:           prog.Level,
		Streak:          prog.Streak,
		Shields:         prog.Shields,
		Badges:          prog.BadgeCodes(),
		UnlockedIslands: prog.IslandIDs(),
		LastActivityAt:  prog.LastActivityAt,
		XPIntoLevel:     into,
		XPForNextLevel:  required,
	}
}

// GetProgression returns the authenticated user's progression state.
// GET /api/v1/progression.
func (h *Handler) GetProgression(c *gin.Context) {
	user := middleware.CurrentUser(c)

	prog, err := h.service.GetState(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to get progression")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve progression")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": h.viewOf(prog)})
}

// RecordActivity applies a completed activity to the user's progression.
// POST /api/v1/progression/activity.
func (h *Handler) RecordActivity(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "malformed request body")
		return
	}

	outcome, err := h.service.RecordActivityResult(c.Request.Context(), user.ID, progsvc.ActivityInput{
		Score:          req.Score,
		TotalQuestions: req.TotalQuestions,
		Bonus:          req.Bonus,
		Mode:           req.Mode,
		Multiplier:     req.Multiplier,
	})
	if err != nil {
		h.handleServiceError(c, user.ID, err, "Failed to record activity")
		return
	}

	newBadges := outcome.NewBadges
	if newBadges == nil {
		newBadges = []string{}
	}

	c.JSON(http.StatusOK, gin.H{
		"xp_gained":  outcome.XPGained,
		"leveled_up": outcome.LeveledUp,
		"new_badges": newBadges,
		"user":       h.viewOf(outcome.State),
	})
}

// AdjustShields applies a signed delta to the shield counter.
// POST /api/v1/progression/shields.
func (h *Handler) AdjustShields(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req shieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "malformed request body")
		return
	}

	prog, err := h.service.AdjustShields(c.Request.Context(), user.ID, req.Change)
	if err != nil {
		h.handleServiceError(c, user.ID, err, "Failed to adjust shields")
		return
	}

	c.JSON(http.StatusOK, gin.H{"shields": prog.Shields})
}

// PurchaseIsland spends XP to unlock an island.
// POST /api/v1/progression/islands.
func (h *Handler) PurchaseIsland(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req islandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "malformed request body")
		return
	}

	prog, err := h.service.PurchaseIsland(c.Request.Context(), user.ID, req.IslandID)
	if err != nil {
		h.handleServiceError(c, user.ID, err, "Failed to purchase island")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "island unlocked",
		"user":    h.viewOf(prog),
	})
}

// PurchasePowerUp spends XP on a consumable power-up.
// POST /api/v1/progression/powerups.
func (h *Handler) PurchasePowerUp(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req powerUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "malformed request body")
		return
	}

	prog, cost, err := h.service.PurchasePowerUp(c.Request.Context(), user.ID, req.Type)
	if err != nil {
		h.handleServiceError(c, user.ID, err, "Failed to purchase power-up")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "power-up purchased",
		"type":    req.Type,
		"cost":    cost,
		"user":    h.viewOf(prog),
	})
}

// GetUserBadges returns the badges the authenticated user has earned.
// GET /api/v1/progression/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	user := middleware.CurrentUser(c)

	prog, err := h.service.GetState(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to get badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       prog.Badges,
		"total_badges": len(prog.Badges),
	})
}

// GetLedger returns the user's recent XP movements.
// GET /api/v1/progression/ledger?limit=50.
func (h *Handler) GetLedger(c *gin.Context) {
	user := middleware.CurrentUser(c)

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	entries, err := h.service.GetLedger(c.Request.Context(), user.ID, limit)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", user.ID).Msg("Failed to get ledger")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve ledger")
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog := progsvc.Catalog()
	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
	})
}

// GetPowerUpCatalog returns the power-up price table.
// GET /api/v1/powerups.
func (h *Handler) GetPowerUpCatalog(c *gin.Context) {
	types := progsvc.PowerUpTypes()
	prices := make(map[string]int, len(types))
	for _, t := range types {
		cost, _ := progsvc.PowerUpCost(t)
		prices[t] = cost
	}
	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

// GetLeaderboard returns the lifetime-XP leaderboard.
// GET /api/v1/leaderboard.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	entries, err := h.leaderboardService.Get(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// handleServiceError maps engine errors to HTTP status codes.
func (h *Handler) handleServiceError(c *gin.Context, userID uint, err error, logMsg string) {
	switch {
	case progsvc.IsValidation(err):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, progsvc.ErrInsufficientXP):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, progsvc.ErrAlreadyOwned):
		h.errorResponse(c, http.StatusBadRequest, "already owned")
	case errors.Is(err, repository.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, "progression not found")
	default:
		h.log.Error().Err(err).Uint("user_id", userID).Msg(logMsg)
		h.errorResponse(c, http.StatusInternalServerError, "internal error")
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
