package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/geolocation"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/usecases"
)

// wsCommand is sent from the client to drive its map view.
type wsCommand struct {
	Action  string          `json:"action"` // position | position_error | pan | zoom | fit | navigate | emit
	Lat     *float64        `json:"lat"`
	Lng     *float64        `json:"lng"`
	Target  string          `json:"target"`
	Code    int             `json:"code"`    // W3C PositionError code for position_error
	Message string          `json:"message"`
	Zoom    float64         `json:"zoom"`
	Bounds  *domain.Bounds  `json:"bounds"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// point returns the command's coordinate, which must be complete and in range.
func (cmd wsCommand) point() (domain.GeoPoint, error) {
	p, err := domain.CoordinateOf(cmd.Lat, cmd.Lng)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	if p == nil {
		return domain.GeoPoint{}, errCoordinateRequired
	}
	return *p, nil
}

var errCoordinateRequired = errors.New("lat and lng are required")

func wsError(msg string) map[string]string {
	return map[string]string{"type": "error", "error": msg}
}

// WebSocketHandler returns a handler that upgrades to WebSocket and runs one
// map view per connection. The view owns a headless map instance, resolves
// its opening coordinate from the query (lat, lng, target) and from the
// position the client reports, and streams state, location, and bus events.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		log := slog.Default().With(
			"session", uuid.NewString(),
			"remote", c.RemoteAddr().String(),
		)

		var mu sync.Mutex

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		nav, err := navigationFromQuery(c.Query)
		if err != nil {
			_ = writeJSON(wsError(err.Error()))
			return
		}
		viewer := c.Query("viewer", "anonymous")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		geo := geolocation.NewReported(deps.DeviceTimeout)
		view := deps.Views.Open(ctx, viewer, nav, geo, func(f usecases.Frame) {
			if err := writeJSON(f); err != nil {
				log.Debug("ws frame dropped", "type", f.Type, "error", err)
			}
		})
		log.Info("map view opened", "viewer", viewer, "source", view.Location().Source)

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var cmd wsCommand
			if err := json.Unmarshal(msg, &cmd); err != nil {
				_ = writeJSON(wsError("invalid JSON"))
				continue
			}
			if reply := handleCommand(deps, view, geo, cmd); reply != nil {
				_ = writeJSON(reply)
			}
		}

		// Cleanup
		close(done)
		view.Close(context.Background())
		log.Info("map view closed", "viewer", viewer)
	}
}

// handleCommand applies one client command and returns an error frame, or
// nil when the command was accepted.
func handleCommand(deps *Dependencies, view *usecases.MapView, geo *geolocation.Reported, cmd wsCommand) map[string]string {
	switch cmd.Action {
	case "position":
		point, err := cmd.point()
		if err != nil {
			return wsError(err.Error())
		}
		if !geo.Report(point) {
			return wsError("position already reported")
		}
	case "position_error":
		if !geo.Fail(geolocation.ErrorFromCode(cmd.Code, cmd.Message)) {
			return wsError("position already reported")
		}
	case "pan":
		point, err := cmd.point()
		if err != nil {
			return wsError(err.Error())
		}
		view.PanTo(point)
	case "zoom":
		view.SetZoom(cmd.Zoom)
	case "fit":
		if cmd.Bounds == nil || cmd.Bounds.Empty() {
			return wsError("bounds are required")
		}
		view.FitBounds(*cmd.Bounds)
	case "navigate":
		point, err := cmd.point()
		if err != nil {
			return wsError(err.Error())
		}
		view.Navigate(domain.NavigationState{Coordinate: &point, TargetID: cmd.Target})
	case "emit":
		kind, ok := events.ParseKind(cmd.Kind)
		if !ok {
			return wsError("unknown event kind: " + cmd.Kind)
		}
		if err := deps.Bus.EmitJSON(kind, cmd.Payload); err != nil {
			return wsError(err.Error())
		}
	default:
		return wsError("unknown action: " + cmd.Action)
	}
	return nil
}
