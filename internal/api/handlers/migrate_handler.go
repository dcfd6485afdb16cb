package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type SchemaMigrator interface {
	Run(ctx context.Context) error
}

// MigrateHandler provisions the schema. The endpoint is an operational
// one-shot; when a token is configured it must be presented in
// X-Migrate-Token, otherwise the endpoint is open (flagged at startup).
type MigrateHandler struct {
	migrator SchemaMigrator
	token    string
	logger   *zap.Logger
}

func NewMigrateHandler(migrator SchemaMigrator, token string, logger *zap.Logger) *MigrateHandler {
	return &MigrateHandler{
		migrator: migrator,
		token:    token,
		logger:   logger,
	}
}

// Migrate godoc
// @Summary Provision the database schema
// @Description Idempotently creates the user, session, account, verification and transaction tables
// @Tags operations
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/migrate [post]
func (h *MigrateHandler) Migrate(c *fiber.Ctx) error {
	if h.token != "" && c.Get("X-Migrate-Token") != h.token {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	if err := h.migrator.Run(c.Context()); err != nil {
		h.logger.Error("Schema migration failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Migration failed",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "schema migration completed",
	})
}
