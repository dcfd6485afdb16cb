package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fintrack/internal/api"
	"fintrack/internal/api/handlers"
	"fintrack/internal/repository"
	"fintrack/internal/service"
	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"go.uber.org/zap"
)

// @title Fintrack API
// @version 1.0
// @description Personal finance tracking backend with AI-assisted transaction entry

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Session token issued at sign-in, sent as "Bearer <token>".

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting fintrack service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Optional session cache
	redisClient := repository.NewRedisClient(ctx, &cfg.Redis, appLogger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	sessionCache := repository.NewSessionCache(redisClient, appLogger)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	sessionRepo := repository.NewSessionRepository(db, appLogger)
	accountRepo := repository.NewAccountRepository(db, appLogger)
	verificationRepo := repository.NewVerificationRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	migrator := repository.NewMigrator(db, appLogger)

	// Initialize services
	authService := service.NewAuthService(userRepo, sessionRepo, accountRepo, verificationRepo, sessionCache, &cfg.Auth, appLogger)

	extractionService, err := service.NewExtractionService(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize extraction service", zap.Error(err))
	}
	defer extractionService.Close()

	txService := service.NewTransactionService(txRepo, extractionService, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	txHandler := handlers.NewTransactionHandler(txService, appLogger)
	migrateHandler := handlers.NewMigrateHandler(migrator, cfg.Server.MigrateToken, appLogger)

	if cfg.Server.MigrateToken == "" {
		appLogger.Warn("POST /api/migrate is unauthenticated; set MIGRATE_TOKEN to guard schema provisioning")
	}

	// Setup router
	app := api.SetupRouter(authHandler, txHandler, migrateHandler, authService, cfg.CORS.AllowedOrigin, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
