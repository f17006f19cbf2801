package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/apt-crowd/discourse/internal/config"
	"github.com/apt-crowd/discourse/internal/handler"
	"github.com/apt-crowd/discourse/internal/middleware"
	"github.com/apt-crowd/discourse/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ReadStateHandler    *handler.ReadStateHandler
	ThreadHandler       *handler.ThreadHandler
	NotificationHandler *handler.NotificationHandler
	TrackingHandler     *handler.TrackingHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	chat := app.Group("/api/chat", jwtMiddleware, middleware.RateLimit("chat", 120, time.Minute))

	if deps.ReadStateHandler != nil {
		deps.ReadStateHandler.Register(chat)
	}

	if deps.ThreadHandler != nil {
		threads := chat.Group("/threads")
		deps.ThreadHandler.Register(threads)
	}

	if deps.NotificationHandler != nil {
		notifications := chat.Group("/notifications")
		deps.NotificationHandler.Register(notifications)
	}

	if deps.TrackingHandler != nil {
		ws := chat.Group("/ws")
		deps.TrackingHandler.Register(ws)
	}
}
