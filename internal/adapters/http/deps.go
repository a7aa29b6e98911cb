package http

import (
	"time"

	natsadapter "github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/nats"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/valkey"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/location"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Bus           *events.Bus
	Views         *usecases.MapViewService
	Locator       *location.Syncer
	Bridge        *natsadapter.Bridge
	Cache         *valkey.Cache
	DeviceTimeout time.Duration
}
