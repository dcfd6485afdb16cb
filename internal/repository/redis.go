package repository

import (
	"context"

	"fintrack/pkg/config"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NewRedisClient connects to Redis when an address is configured. The
// service degrades to database-only session lookups when it returns nil.
func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis connection failed, continuing without session cache", zap.Error(err))
		return nil
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr))
	return client
}
