package handlers

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/internal/service"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthProvider interface {
	SignUp(ctx context.Context, req *dto.SignUpRequest, meta service.SessionMeta) (*dto.SessionResponse, error)
	SignIn(ctx context.Context, req *dto.SignInRequest, meta service.SessionMeta) (*dto.SessionResponse, error)
	SignOut(ctx context.Context, token string) error
	ResolveSession(ctx context.Context, token string) (*models.User, *models.Session, error)
	VerifyEmail(ctx context.Context, token string) error
	SocialBegin(ctx context.Context, provider, callbackURL string) (string, error)
	SocialCallback(ctx context.Context, provider, code, state string, meta service.SessionMeta) (*dto.SessionResponse, string, error)
}

type AuthHandler struct {
	authService AuthProvider
	logger      *zap.Logger
}

func NewAuthHandler(authService AuthProvider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

func sessionMeta(c *fiber.Ctx) service.SessionMeta {
	return service.SessionMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
	}
}

func setSessionCookie(c *fiber.Ctx, resp *dto.SessionResponse) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    resp.Token,
		Expires:  resp.ExpiresAt,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// SignUp godoc
// @Summary Register with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignUpRequest true "Sign-up request"
// @Success 201 {object} dto.SessionResponse
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/auth/sign-up/email [post]
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := dto.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.authService.SignUp(c.Context(), &req, sessionMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "User already exists",
			})
		}
		h.logger.Error("Sign-up failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Sign-up failed",
		})
	}

	setSessionCookie(c, resp)
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// SignIn godoc
// @Summary Sign in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignInRequest true "Sign-in request"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} map[string]string
// @Router /api/auth/sign-in/email [post]
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := dto.Validate(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.authService.SignIn(c.Context(), &req, sessionMeta(c))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		h.logger.Error("Sign-in failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Sign-in failed",
		})
	}

	setSessionCookie(c, resp)
	return c.JSON(resp)
}

// SignOut godoc
// @Summary Destroy the current session
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]bool
// @Router /api/auth/sign-out [post]
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	token := middleware.SessionToken(c)
	if token != "" {
		if err := h.authService.SignOut(c.Context(), token); err != nil && !errors.Is(err, service.ErrNoSession) {
			h.logger.Warn("Sign-out failed", zap.Error(err))
		}
	}

	clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// GetSession godoc
// @Summary Return the current session and user, or null
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/auth/get-session [get]
func (h *AuthHandler) GetSession(c *fiber.Ctx) error {
	token := middleware.SessionToken(c)
	user, session, err := h.authService.ResolveSession(c.Context(), token)
	if err != nil {
		return c.JSON(nil)
	}

	return c.JSON(fiber.Map{
		"session": fiber.Map{
			"token":     session.Token,
			"userId":    session.UserID.String(),
			"expiresAt": session.ExpiresAt,
		},
		"user": dto.NewUserResponse(user),
	})
}

// VerifyEmail godoc
// @Summary Redeem an email verification token
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /api/auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing token",
		})
	}

	if err := h.authService.VerifyEmail(c.Context(), token); err != nil {
		if errors.Is(err, service.ErrInvalidVerification) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}
		h.logger.Error("Email verification failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Verification failed",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

// SocialSignIn godoc
// @Summary Redirect to a social provider's consent screen
// @Tags auth
// @Param provider query string true "Provider id, e.g. google"
// @Param callbackURL query string false "URL to return to after sign-in"
// @Success 302
// @Failure 400 {object} map[string]string
// @Router /api/auth/sign-in/social [get]
func (h *AuthHandler) SocialSignIn(c *fiber.Ctx) error {
	redirectURL, err := h.authService.SocialBegin(c.Context(), c.Query("provider"), c.Query("callbackURL"))
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedProvider) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unsupported provider",
			})
		}
		h.logger.Error("Social sign-in failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Social sign-in failed",
		})
	}

	return c.Redirect(redirectURL, fiber.StatusFound)
}

// SocialCallback godoc
// @Summary Provider redirect target completing a social sign-in
// @Tags auth
// @Param provider path string true "Provider id"
// @Param code query string true "Authorization code"
// @Param state query string true "Opaque state from the consent redirect"
// @Success 302
// @Failure 400 {object} map[string]string
// @Router /api/auth/callback/{provider} [get]
func (h *AuthHandler) SocialCallback(c *fiber.Ctx) error {
	resp, callbackURL, err := h.authService.SocialCallback(
		c.Context(), c.Params("provider"), c.Query("code"), c.Query("state"), sessionMeta(c),
	)
	if err != nil {
		h.logger.Warn("Social callback rejected", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Social sign-in failed",
		})
	}

	setSessionCookie(c, resp)
	return c.Redirect(callbackURL, fiber.StatusFound)
}
