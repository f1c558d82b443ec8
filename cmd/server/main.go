// Command server runs the CivicQuest progression backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminapi "github.com/civicquest/civicquest-api/internal/api/admin"
	authapi "github.com/civicquest/civicquest-api/internal/api/auth"
	"github.com/civicquest/civicquest-api/internal/api/middleware"
	progapi "github.com/civicquest/civicquest-api/internal/api/progression"
	"github.com/civicquest/civicquest-api/internal/cache"
	"github.com/civicquest/civicquest-api/internal/config"
	"github.com/civicquest/civicquest-api/internal/models"
	"github.com/civicquest/civicquest-api/internal/repository"
	"github.com/civicquest/civicquest-api/internal/service/analytics"
	authsvc "github.com/civicquest/civicquest-api/internal/service/auth"
	"github.com/civicquest/civicquest-api/internal/service/leaderboard"
	progsvc "github.com/civicquest/civicquest-api/internal/service/progression"
	"github.com/civicquest/civicquest-api/internal/service/scheduler"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting CivicQuest backend")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	progressionRepo := repository.NewProgressionRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Services
	authService := authsvc.NewService(userRepo, redisCache, &cfg.Auth, log)
	progressionService := progsvc.NewService(progressionRepo, &cfg.Gamification, log)
	leaderboardService := leaderboard.NewService(progressionRepo, redisCache, cfg.Scheduler.LeaderboardCacheSize, log)
	analyticsService := analytics.NewService(activityRepo, progressionRepo, userRepo, log)
	schedulerService := scheduler.NewService(cfg, activityRepo, progressionRepo, leaderboardService, log)

	seedAdmins(cfg, userRepo, log)

	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// Handlers
	authHandler := authapi.NewHandler(authService, log)
	progressionHandler := progapi.NewHandler(progressionService, leaderboardService, log)
	adminHandler := adminapi.NewHandler(userRepo, progressionService, analyticsService, log)

	router := setupRouter(cfg, db, redisCache, authService, authHandler, progressionHandler, adminHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
}

func setupRouter(
	cfg *config.Config,
	db *repository.DB,
	redisCache cache.Cache,
	authService *authsvc.Service,
	authHandler *authapi.Handler,
	progressionHandler *progapi.Handler,
	adminHandler *adminapi.Handler,
) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		if err := redisCache.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	v1 := router.Group("/api/v1")

	// Public routes
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/visits", adminHandler.RecordVisit)
	v1.GET("/badges", progressionHandler.GetBadgeCatalog)
	v1.GET("/powerups", progressionHandler.GetPowerUpCatalog)
	v1.GET("/leaderboard", progressionHandler.GetLeaderboard)

	// Authenticated routes
	authorized := v1.Group("")
	authorized.Use(middleware.AuthRequired(authService))
	{
		authorized.POST("/auth/logout", authHandler.Logout)
		authorized.GET("/auth/me", authHandler.Me)

		authorized.GET("/progression", progressionHandler.GetProgression)
		authorized.POST("/progression/activity", progressionHandler.RecordActivity)
		authorized.POST("/progression/shields", progressionHandler.AdjustShields)
		authorized.POST("/progression/islands", progressionHandler.PurchaseIsland)
		authorized.POST("/progression/powerups", progressionHandler.PurchasePowerUp)
		authorized.GET("/progression/badges", progressionHandler.GetUserBadges)
		authorized.GET("/progression/ledger", progressionHandler.GetLedger)
	}

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.AuthRequired(authService), middleware.AdminRequired())
	{
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.PATCH("/users/:id", adminHandler.UpdateUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.POST("/xp/grant", adminHandler.GrantXP)
		admin.GET("/analytics", adminHandler.GetAnalytics)
	}

	return router
}

// seedAdmins promotes already-registered users on the allow-list. New
// registrations get the role at signup.
func seedAdmins(cfg *config.Config, userRepo *repository.UserRepository, log *logger.Logger) {
	for _, username := range cfg.Auth.AdminUsernames {
		user, err := userRepo.GetByUsername(username)
		if err != nil {
			continue
		}
		if user.Role == models.RoleAdmin {
			continue
		}
		user.Role = models.RoleAdmin
		if err := userRepo.Update(user); err != nil {
			log.Warn().Err(err).Str("username", username).Msg("Failed to promote admin user")
			continue
		}
		log.Info().Str("username", username).Msg("Promoted user to admin")
	}
}
