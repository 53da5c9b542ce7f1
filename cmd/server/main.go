package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	_ "archinsight/docs" // swagger docs

	"archinsight/internal/auth"
	"archinsight/internal/backup"
	"archinsight/internal/cache"
	"archinsight/internal/config"
	"archinsight/internal/db"
	"archinsight/internal/handler"
	"archinsight/internal/logger"
	"archinsight/internal/model"
	"archinsight/internal/repository"
	"archinsight/internal/router"
	"archinsight/internal/security"
	"archinsight/internal/service"
)

// @title ArchInsight Core API
// @version 1.0
// @description Session, credential vault and block access control service.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})

	if cfg.IsProduction() && cfg.UsingDefaultMasterKey() {
		log.Fatal().Msg("MASTER_KEY must be set in production")
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Team{},
		&model.Session{},
		&model.Block{},
		&model.APIKey{},
	); err != nil {
		log.Fatal().Err(err).Msg("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	teamRepo := repository.NewTeamRepository(gormDB)
	blockRepo := repository.NewBlockRepository(gormDB)
	keyRepo := repository.NewAPIKeyRepository(gormDB)

	sessionStore := auth.NewSessionStore(
		gormDB,
		time.Duration(cfg.SessionTTLHours)*time.Hour,
		cfg.SessionTokenBytes,
	)

	cipher := security.NewCipher(cfg.MasterKey, cfg.AllowInsecureCipher, log)

	// Backup collaborator. Disabled when the GitHub token is unset.
	ghClient := backup.NewGitHubClient(
		backup.GitHubConfig{
			Token:  cfg.GitHubToken,
			Owner:  cfg.GitHubOwner,
			Repo:   cfg.GitHubRepo,
			Branch: cfg.GitHubBranch,
		},
		func(ctx context.Context) (interface{}, error) {
			return userRepo.List(ctx, repository.UserFilter{})
		},
		func(ctx context.Context) (interface{}, error) {
			return teamRepo.List(ctx)
		},
		func(ctx context.Context) (interface{}, error) {
			return blockRepo.ListAll(ctx)
		},
		log,
	)
	notifier := backup.NewNotifier(ghClient, log)
	notifier.Start(context.Background())

	// Initialize services
	authService := service.NewAuthService(userRepo, sessionStore, log)
	vaultService := service.NewVaultService(keyRepo, cipher, log)
	blockService := service.NewBlockService(blockRepo, userRepo, notifier, log)
	adminService := service.NewAdminService(userRepo, teamRepo, blockRepo, keyRepo, sessionStore, cacheClient, notifier, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	blockHandler := handler.NewBlockHandler(blockService)
	vaultHandler := handler.NewVaultHandler(vaultService)
	adminHandler := handler.NewAdminHandler(adminService)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())

	// Register routes
	router.Register(e, authService, authHandler, blockHandler, vaultHandler, adminHandler)

	addr := ":" + cfg.ServerPort
	log.Info().Str("addr", addr).Msg("starting server")
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server start")
	}
}
