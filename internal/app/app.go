// Package app owns the process-wide objects of the API: one event bus, the
// optional Valkey cache and NATS bridge, and the map view service built on
// them. It is created once at start and closed once at shutdown.
package app

import (
	"log/slog"

	natsadapter "github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/nats"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/valkey"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/widget"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/location"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/mapservice"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/usecases"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/config"
)

// App holds the process-wide pieces every entry point shares: one bus, the
// optional cache and NATS bridge, and the map view service built on them.
// Close releases them in reverse order of construction.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Bus     *events.Bus
	Cache   *valkey.Cache       // nil when Valkey is unreachable
	Bridge  *natsadapter.Bridge // nil when NATS is disabled or unreachable
	Views   *usecases.MapViewService
	Locator *location.Syncer

	closers []func()
}

// New builds the application. Valkey and NATS are optional: when either is
// unavailable the app logs it and runs without that feature.
func New(cfg *config.Config, log *slog.Logger) *App {
	if log == nil {
		log = slog.Default()
	}
	a := &App{Config: cfg, Log: log, Bus: events.NewBus(log)}

	var zooms ports.ZoomRepository
	if cache, err := valkey.New(cfg.Valkey.Addr); err != nil {
		log.Warn("valkey unavailable, zoom will not be remembered", "error", err)
	} else {
		a.Cache = cache
		a.closers = append(a.closers, cache.Close)
		zooms = usecases.NewViewportService(cache, cfg.Valkey.ZoomTTL)
	}

	if cfg.NATS.Enabled {
		a.startBridge()
	}

	fallback := a.Fallback()
	a.Locator = location.NewSyncer(nil, fallback, log)
	a.Views = usecases.NewMapViewService(a.Bus, zooms, a.newViewport, mapOptions(cfg.Map), fallback, log)
	return a
}

func (a *App) startBridge() {
	nc, err := natsadapter.Connect(a.Config.NATS.URL)
	if err != nil {
		a.Log.Warn("nats unavailable, bus stays process-local", "error", err)
		return
	}
	bridge := natsadapter.NewBridge(nc, a.Config.NATS.Subject, a.Bus, a.Log)
	if err := bridge.Start(); err != nil {
		a.Log.Warn("nats bridge start failed", "error", err)
		nc.Close()
		return
	}
	a.Bridge = bridge
	a.closers = append(a.closers, bridge.Close)
}

// Fallback is the coordinate used when neither navigation nor the device
// supplies one.
func (a *App) Fallback() domain.GeoPoint {
	return domain.GeoPoint{Lat: a.Config.Location.DefaultLat, Lng: a.Config.Location.DefaultLng}
}

func (a *App) newViewport(center domain.GeoPoint, zoom float64) ports.MapInstance {
	m := a.Config.Map
	return widget.NewViewport(center, zoom, m.ViewportWidth, m.ViewportHeight, m.MaxZoom)
}

func mapOptions(m config.MapConfig) mapservice.Options {
	return mapservice.Options{DefaultZoom: m.DefaultZoom, MinZoom: m.MinZoom, MaxZoom: m.MaxZoom}
}

// Close releases the bridge and the cache, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
