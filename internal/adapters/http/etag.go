package http

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware tags successful GET bodies with a weak ETag and answers
// 304 when the client already holds it. Responses marked no-store are left
// alone since their body is per-request.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := c.Next(); err != nil {
			return err
		}

		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
			return nil
		}
		if c.GetRespHeader(fiber.HeaderCacheControl) == "no-store" {
			return nil
		}
		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		sum := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
		c.Set(fiber.HeaderETag, etag)

		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
		}
		return nil
	}
}
