package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AccessLogMiddleware logs one structured line per request through the
// request-scoped logger. Scrapes and probes are logged at debug.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		method, path := c.Method(), c.Path()

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}

		level := slog.LevelInfo
		switch {
		case err != nil:
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		case path == "/metrics" || path == "/v1/health" || path == "/v1/ready":
			level = slog.LevelDebug
		}

		LoggerFromCtx(c.UserContext()).LogAttrs(c.UserContext(), level, method+" "+path, attrs...)
		return err
	}
}
