// Package auth implements account registration and bearer-token sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/civicquest/civicquest-api/internal/cache"
	"github.com/civicquest/civicquest-api/internal/config"
	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

const sessionKeyPrefix = "session:"

var (
	// ErrInvalidCredentials is returned when the username or password does
	// not match. Callers must not reveal which one was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrSessionExpired is returned when a token is absent or has expired.
	ErrSessionExpired = errors.New("session expired")
)

// UserRepository defines the user storage operations the auth service needs.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
}

// Service handles registration, login, and session validation. Sessions are
// opaque tokens stored in Redis with a TTL.
type Service struct {
	users      UserRepository
	sessions   cache.Cache
	sessionTTL time.Duration
	admins     map[string]bool
	log        *logger.Logger
}

// NewService creates an auth service backed by the GORM repository.
func NewService(users *repository.UserRepository, sessions cache.Cache, cfg *config.AuthConfig, log *logger.Logger) *Service {
	return newService(users, sessions, cfg, log)
}

// NewServiceWithInterfaces creates an auth service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(users UserRepository, sessions cache.Cache, cfg *config.AuthConfig, log *logger.Logger) *Service {
	return newService(users, sessions, cfg, log)
}

func newService(users UserRepository, sessions cache.Cache, cfg *config.AuthConfig, log *logger.Logger) *Service {
	admins := make(map[string]bool, len(cfg.AdminUsernames))
	for _, name := range cfg.AdminUsernames {
		admins[name] = true
	}
	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		admins:     admins,
		log:        log,
	}
}

// Register creates a new account. Usernames on the configured allow-list
// receive the admin role; everyone else is a regular user.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if len(username) < 3 {
		return nil, fmt.Errorf("username must be at least 3 characters")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.users.GetByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleUser
	if s.admins[username] {
		role = models.RoleAdmin
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("username", username).
		Str("role", role).
		Msg("User registered")

	return user, nil
}

// Login verifies credentials and opens a session. The returned token is the
// bearer credential for subsequent requests.
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.NewString()
	key := sessionKeyPrefix + token
	if err := s.sessions.Set(ctx, key, strconv.FormatUint(uint64(user.ID), 10), s.sessionTTL); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("username", username).
		Msg("User logged in")

	return token, user, nil
}

// Logout invalidates a session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Del(ctx, sessionKeyPrefix+token)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrSessionExpired
	}

	val, err := s.sessions.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}

	userID, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed session value: %w", err)
	}

	user, err := s.users.GetByID(uint(userID))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	return user, nil
}
