package middleware

import (
	"context"
	"strings"

	"fintrack/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie browsers carry; mobile clients send the
// same token as a bearer header instead.
const SessionCookieName = "fintrack.session_token"

type SessionResolver interface {
	ResolveSession(ctx context.Context, token string) (*models.User, *models.Session, error)
}

// SessionToken pulls the session token from the Authorization header or
// the session cookie.
func SessionToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Cookies(SessionCookieName)
}

// AuthMiddleware resolves the caller's session and rejects the request
// when there is none. Handlers read the identity from Locals.
func AuthMiddleware(resolver SessionResolver, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := SessionToken(c)

		user, session, err := resolver.ResolveSession(c.Context(), token)
		if err != nil {
			logger.Debug("Rejected unauthenticated request", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.Locals("session", session)

		return c.Next()
	}
}
