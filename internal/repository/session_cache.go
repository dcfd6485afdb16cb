package repository

import (
	"context"
	"encoding/json"
	"time"

	"fintrack/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// SessionCache is a write-through cache in front of the sessions table.
// A nil client turns every method into a no-op, so Redis stays optional.
type SessionCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewSessionCache(client *redis.Client, logger *zap.Logger) *SessionCache {
	return &SessionCache{
		client: client,
		logger: logger,
	}
}

// Get returns the cached session for a token, or nil on a miss.
func (c *SessionCache) Get(ctx context.Context, token string) (*models.Session, error) {
	if c.client == nil {
		return nil, nil
	}

	data, err := c.client.Get(ctx, sessionKeyPrefix+token).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// Treat a corrupt entry as a miss; the DB remains authoritative.
		c.logger.Warn("Dropping unreadable session cache entry", zap.Error(err))
		_ = c.client.Del(ctx, sessionKeyPrefix+token).Err()
		return nil, nil
	}

	return &session, nil
}

// Set stores a session until it expires.
func (c *SessionCache) Set(ctx context.Context, session *models.Session) error {
	if c.client == nil {
		return nil
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, sessionKeyPrefix+session.Token, data, ttl).Err()
}

func (c *SessionCache) Delete(ctx context.Context, token string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, sessionKeyPrefix+token).Err()
}
