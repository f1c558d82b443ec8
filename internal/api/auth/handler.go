// Package auth provides REST API handlers for registration, login, and
// session management.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/civicquest/civicquest-api/internal/api/middleware"
	"github.com/civicquest/civicquest-api/internal/models"
	authsvc "github.com/civicquest/civicquest-api/internal/service/auth"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// Service interface for auth operations.
type Service interface {
	Register(ctx context.Context, username, email, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	Logout(ctx context.Context, token string) error
}

// Handler handles auth API requests.
type Handler struct {
	service Service
	log     *logger.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(service *authsvc.Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// NewHandlerWithInterfaces creates a new auth handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(service Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new account.
// POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrUsernameTaken) {
			h.errorResponse(c, http.StatusConflict, "username already taken")
			return
		}
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login verifies credentials and opens a session.
// POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "username and password are required")
		return
	}

	token, user, err := h.service.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) {
			h.errorResponse(c, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.log.Error().Err(err).Str("username", req.Username).Msg("Login failed")
		h.errorResponse(c, http.StatusInternalServerError, "failed to log in")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}

// Logout invalidates the current session token.
// POST /api/v1/auth/logout.
func (h *Handler) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := ""
	if len(header) > 7 {
		token = header[7:] // strip "Bearer "
	}
	if err := h.service.Logout(c.Request.Context(), token); err != nil {
		h.log.Warn().Err(err).Msg("Logout failed")
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the authenticated user.
// GET /api/v1/auth/me.
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		h.errorResponse(c, http.StatusUnauthorized, "authentication required")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
