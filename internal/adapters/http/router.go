package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

const handlerTimeout = 15 * time.Second

// SetupRoutes registers the REST, GraphQL, metrics, and map view routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(
		compress.New(compress.Config{Level: compress.LevelBestSpeed}),
		requestid.New(),
		RequestIDLogMiddleware(),
		AccessLogMiddleware(),
		SecurityHeadersMiddleware(),
		ETagMiddleware(),
		CachingMiddleware(),
	)

	// Probes are never rate limited.
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1", rateLimit(120))
	v1.Get("/events/kinds", KindsHandler())
	v1.Post("/events/:kind", timeout.NewWithContext(EmitHandler(deps), handlerTimeout))
	v1.Get("/location", timeout.NewWithContext(LocationHandler(deps), handlerTimeout))

	app.Post("/graphql", rateLimit(120), GraphQLHandler(deps))

	// One map view per connection; a reconnect storm is capped per IP.
	app.Use("/ws", rateLimit(30), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}

// rateLimit allows max requests per minute per client IP.
func rateLimit(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	})
}

// SecurityHeadersMiddleware sets the static response hardening headers.
func SecurityHeadersMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
		c.Set(fiber.HeaderXFrameOptions, "DENY")
		c.Set(fiber.HeaderReferrerPolicy, "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	}
}
