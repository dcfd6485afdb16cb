package api

import (
	"fintrack/docs"
	"fintrack/internal/api/handlers"
	"fintrack/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// SetupRouter binds handlers into the HTTP surface: the auth gateway under
// /api/auth, the migrate one-shot, and the session-guarded transaction API.
func SetupRouter(
	authHandler *handlers.AuthHandler,
	txHandler *handlers.TransactionHandler,
	migrateHandler *handlers.MigrateHandler,
	resolver middleware.SessionResolver,
	allowedOrigin string,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigin,
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Swagger - importing the docs package registers the spec via init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Liveness
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("fintrack is running")
	})

	// Identity gateway (public)
	auth := app.Group("/api/auth")
	auth.Post("/sign-up/email", authHandler.SignUp)
	auth.Post("/sign-in/email", authHandler.SignIn)
	auth.Post("/sign-out", authHandler.SignOut)
	auth.Get("/get-session", authHandler.GetSession)
	auth.Get("/verify-email", authHandler.VerifyEmail)
	auth.Get("/sign-in/social", authHandler.SocialSignIn)
	auth.Get("/callback/:provider", authHandler.SocialCallback)

	// One-time schema provisioning
	app.Post("/api/migrate", migrateHandler.Migrate)

	// Transaction API (session required)
	authRequired := middleware.AuthMiddleware(resolver, appLogger)
	app.Post("/ai", authRequired, txHandler.CreateFromText)

	transactions := app.Group("/transactions", authRequired)
	transactions.Get("", txHandler.List)
	transactions.Put("/:id", txHandler.Update)
	transactions.Delete("/:id", txHandler.Delete)

	return app
}
