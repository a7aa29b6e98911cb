package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler checks NATS and cache connectivity. Both are optional; only a
// configured dependency that is down makes the process not ready.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		// NATS
		if deps.Bridge != nil {
			if deps.Bridge.Connected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		// Valkey cache
		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
