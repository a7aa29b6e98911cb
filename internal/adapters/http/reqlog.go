package http

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type loggerKey struct{}

// RequestIDLogMiddleware stores a logger carrying the Fiber request ID in the
// user context, so handlers and the access log share it.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			return c.Next()
		}

		log := slog.Default().With("request_id", rid)
		c.SetUserContext(context.WithValue(c.UserContext(), loggerKey{}, log))
		return c.Next()
	}
}

// LoggerFromCtx returns the request-scoped logger, or the default logger.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
