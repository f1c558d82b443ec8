// Package leaderboard serves the lifetime-XP ranking, backed by a cached
// snapshot so the hot read path stays off the database.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civicquest/civicquest-api/internal/cache"
	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

const (
	cacheKey = "leaderboard:top"
	cacheTTL = 2 * time.Hour
)

// Entry is one leaderboard row.
type Entry struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Level    int    `json:"level"`
	TotalXP  int    `json:"total_xp"`
	Streak   int    `json:"streak"`
}

// Repository defines the progression queries the leaderboard needs.
type Repository interface {
	TopByTotalXP(limit int) ([]models.Progression, error)
}

// Service builds and serves leaderboard snapshots.
type Service struct {
	repo  Repository
	cache cache.Cache
	size  int
	log   *logger.Logger
}

// NewService creates a leaderboard service backed by the GORM repository.
func NewService(repo *repository.ProgressionRepository, c cache.Cache, size int, log *logger.Logger) *Service {
	return newService(repo, c, size, log)
}

// NewServiceWithInterfaces creates a leaderboard service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, c cache.Cache, size int, log *logger.Logger) *Service {
	return newService(repo, c, size, log)
}

func newService(repo Repository, c cache.Cache, size int, log *logger.Logger) *Service {
	if size <= 0 {
		size = 50
	}
	return &Service{repo: repo, cache: c, size: size, log: log}
}

// Get returns the current leaderboard, serving the cached snapshot when one
// exists and rebuilding on a miss.
func (s *Service) Get(ctx context.Context) ([]Entry, error) {
	raw, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		var entries []Entry
		if err := json.Unmarshal([]byte(raw), &entries); err == nil {
			return entries, nil
		}
		// Corrupt snapshot; fall through to a rebuild.
		s.log.Warn().Msg("Discarding unreadable leaderboard snapshot")
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}

	return s.Rebuild(ctx)
}

// Rebuild recomputes the leaderboard from storage and refreshes the cached
// snapshot. The scheduler calls this on a fixed cadence.
func (s *Service) Rebuild(ctx context.Context) ([]Entry, error) {
	progs, err := s.repo.TopByTotalXP(s.size)
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(progs))
	for i, prog := range progs {
		entries = append(entries, Entry{
			Rank:     i + 1,
			UserID:   prog.UserID,
			Username: prog.User.Username,
			Level:    prog.Level,
			TotalXP:  prog.TotalXP,
			Streak:   prog.Streak,
		})
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, string(raw), cacheTTL); err != nil {
		// A stale or missing snapshot only costs the next reader a rebuild.
		s.log.Warn().Err(err).Msg("Failed to cache leaderboard snapshot")
	}

	return entries, nil
}

// Invalidate drops the cached snapshot so the next read rebuilds.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Del(ctx, cacheKey)
}
