package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
)

// queryFunc matches both fiber.Ctx.Query and websocket.Conn.Query.
type queryFunc func(key string, defaultValue ...string) string

// navigationFromQuery reads a navigation state from lat, lng and target.
// A coordinate needs both halves and must be in range.
func navigationFromQuery(query queryFunc) (domain.NavigationState, error) {
	nav := domain.NavigationState{TargetID: query("target")}

	lat, err := optionalFloat("lat", query("lat"))
	if err != nil {
		return nav, err
	}
	lng, err := optionalFloat("lng", query("lng"))
	if err != nil {
		return nav, err
	}

	nav.Coordinate, err = domain.CoordinateOf(lat, lng)
	return nav, err
}

func optionalFloat(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &v, nil
}

// KindsHandler lists the event kinds the bus accepts.
func KindsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"kinds": events.Kinds()})
	}
}

// EmitHandler publishes the JSON body as an event of kind :kind.
func EmitHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		kind, ok := events.ParseKind(c.Params("kind"))
		if !ok {
			return errBadRequest(c, fmt.Sprintf("unknown event kind %q", c.Params("kind")))
		}
		if len(c.Body()) == 0 {
			return errBadRequest(c, "request body is required")
		}

		if err := deps.Bus.EmitJSON(kind, c.Body()); err != nil {
			if errors.Is(err, events.ErrInvalidPayload) || errors.Is(err, events.ErrUnknownKind) {
				return errBadRequest(c, err.Error())
			}
			LoggerFromCtx(c.UserContext()).Error("emit failed", "kind", kind, "error", err)
			return errInternal(c, err.Error())
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status": "accepted",
			"kind":   kind,
		})
	}
}

// LocationHandler resolves the coordinate a view would open at, given only
// navigation state. Device sensing needs a live session (see /ws).
func LocationHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		nav, err := navigationFromQuery(c.Query)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(deps.Locator.Resolve(nav))
	}
}
