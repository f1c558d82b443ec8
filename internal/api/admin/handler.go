// Package admin provides REST API handlers for the admin console: user
// management, manual XP grants, and engagement analytics.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/internal/service/analytics"
	progsvc "github.com/civicquest/civicquest-api/internal/service/progression"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// UserRepository interface for user management operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(role string) ([]models.User, error)
}

// ProgressionService interface for XP grant operations.
type ProgressionService interface {
	GrantXP(ctx context.Context, userID uint, amount int, detail string) (*models.Progression, error)
}

// AnalyticsService interface for analytics operations.
type AnalyticsService interface {
	GetSummary(ctx context.Context, periodDays int) (*analytics.Summary, error)
	RecordVisit(ctx context.Context, visit *models.Visit)
}

// Handler handles admin API requests.
type Handler struct {
	users       UserRepository
	progression ProgressionService
	analytics   AnalyticsService
	log         *logger.Logger
}

// NewHandler creates a new admin handler.
func NewHandler(users *repository.UserRepository, progression *progsvc.Service, analyticsService *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{users: users, progression: progression, analytics: analyticsService, log: log}
}

// NewHandlerWithInterfaces creates a new admin handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(users UserRepository, progression ProgressionService, analyticsService AnalyticsService, log *logger.Logger) *Handler {
	return &Handler{users: users, progression: progression, analytics: analyticsService, log: log}
}

// ListUsers returns all users with an optional role filter.
// GET /api/v1/admin/users?role=admin.
func (h *Handler) ListUsers(c *gin.Context) {
	role := c.Query("role")
	if role != "" && role != models.RoleUser && role != models.RoleAdmin {
		h.errorResponse(c, http.StatusBadRequest, "unknown role "+role)
		return
	}

	users, err := h.users.List(role)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list users")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":       users,
		"total_users": len(users),
	})
}

// GetUser returns a single user.
// GET /api/v1/admin/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

type updateUserRequest struct {
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

// UpdateUser updates a user's email or role.
// PATCH /api/v1/admin/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "user not found")
			return
		}
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		if *req.Role != models.RoleUser && *req.Role != models.RoleAdmin {
			h.errorResponse(c, http.StatusBadRequest, "unknown role "+*req.Role)
			return
		}
		user.Role = *req.Role
	}

	if err := h.users.Update(user); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to update user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update user")
		return
	}

	h.log.Info().Uint("user_id", userID).Msg("User updated")
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// DeleteUser removes a user and all its progression state.
// DELETE /api/v1/admin/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.users.GetByID(userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "user not found")
			return
		}
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user")
		return
	}

	if err := h.users.Delete(userID); err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to delete user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to delete user")
		return
	}

	h.log.Info().Uint("user_id", userID).Msg("User deleted")
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

type grantXPRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Amount int    `json:"amount" binding:"required"`
	Detail string `json:"detail"`
}

// GrantXP adds XP to a user out of band. The grant is audited in the ledger.
// POST /api/v1/admin/xp/grant.
func (h *Handler) GrantXP(c *gin.Context) {
	var req grantXPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "user_id and amount are required")
		return
	}

	prog, err := h.progression.GrantXP(c.Request.Context(), req.UserID, req.Amount, req.Detail)
	if err != nil {
		switch {
		case progsvc.IsValidation(err):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrNotFound):
			h.errorResponse(c, http.StatusNotFound, "user not found")
		default:
			h.log.Error().Err(err).Uint("user_id", req.UserID).Msg("Failed to grant XP")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to grant XP")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  req.UserID,
		"amount":   req.Amount,
		"xp":       prog.XP,
		"total_xp": prog.TotalXP,
		"level":    prog.Level,
	})
}

// GetAnalytics returns engagement aggregates for a period.
// GET /api/v1/admin/analytics?period=7.
func (h *Handler) GetAnalytics(c *gin.Context) {
	periodDays := 7
	if raw := c.Query("period"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			h.errorResponse(c, http.StatusBadRequest, "period must be a positive number of days")
			return
		}
		periodDays = parsed
	}

	summary, err := h.analytics.GetSummary(c.Request.Context(), periodDays)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get analytics summary")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve analytics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":      summary,
		"generated_at": time.Now().UTC(),
	})
}

type visitRequest struct {
	Path      string `json:"path"`
	VisitorID string `json:"visitor_id"`
}

// RecordVisit stores a page-visit beacon. Public, fire-and-forget.
// POST /api/v1/visits.
func (h *Handler) RecordVisit(c *gin.Context) {
	var req visitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "malformed request body")
		return
	}

	h.analytics.RecordVisit(c.Request.Context(), &models.Visit{
		Path:      req.Path,
		VisitorID: req.VisitorID,
		UserAgent: c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusAccepted, gin.H{"message": "recorded"})
}

// parseUserID extracts and validates the user ID from the URL parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user ID")
	}
	return uint(id), nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
