package main

import (
	"context"
	"log"
	"time"

	"fintrack/internal/models"
	"fintrack/internal/repository"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"
	"fintrack/pkg/logger"
	"fintrack/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	demoEmail    = "demo@fintrack.local"
	demoPassword = "demo-password"
)

// Seeds a demo user with a handful of transactions. Safe to re-run: it
// bails out when the demo user already exists.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator := repository.NewMigrator(db, appLogger)
	if err := migrator.Run(ctx); err != nil {
		appLogger.Fatal("Failed to provision schema", zap.Error(err))
	}

	userRepo := repository.NewUserRepository(db, appLogger)
	accountRepo := repository.NewAccountRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)

	if existing, _ := userRepo.GetByEmail(ctx, demoEmail); existing != nil {
		appLogger.Info("Demo user already seeded", zap.String("email", demoEmail))
		return
	}

	now := time.Now()
	user := &models.User{
		ID:            uuid.New(),
		Email:         demoEmail,
		EmailVerified: true,
		Name:          "Demo User",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		appLogger.Fatal("Failed to create demo user", zap.Error(err))
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		appLogger.Fatal("Failed to hash demo password", zap.Error(err))
	}
	account := &models.Account{
		ID:         uuid.New(),
		UserID:     user.ID,
		ProviderID: models.ProviderCredential,
		AccountID:  user.Email,
		Password:   &hash,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := accountRepo.Create(ctx, account); err != nil {
		appLogger.Fatal("Failed to create demo account", zap.Error(err))
	}

	groceries := "groceries"
	salary := "salary"
	coffee := "coffee"
	samples := []*models.Transaction{
		{
			Title:      "Monthly salary",
			Amount:     "4200.00",
			Type:       models.TypeIncome,
			Category:   &salary,
			OccurredAt: now.AddDate(0, 0, -14),
		},
		{
			Title:      "Weekly groceries",
			Amount:     "86.40",
			Type:       models.TypeExpense,
			Category:   &groceries,
			OccurredAt: now.AddDate(0, 0, -3),
		},
		{
			Title:      "Latte",
			Amount:     "4.50",
			Type:       models.TypeExpense,
			Category:   &coffee,
			OccurredAt: now.AddDate(0, 0, -1),
		},
	}
	for _, tx := range samples {
		tx.ID = uuid.New()
		tx.UserID = user.ID
		tx.Currency = "USD"
		tx.CreatedAt = now
		tx.UpdatedAt = now
		if err := txRepo.Create(ctx, tx); err != nil {
			appLogger.Fatal("Failed to seed transaction", zap.Error(err), zap.String("title", tx.Title))
		}
	}

	appLogger.Info("Database seeding completed",
		zap.String("email", demoEmail),
		zap.Int("transactions", len(samples)),
	)
}
