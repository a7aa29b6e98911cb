package usecases

import (
	"context"
	"log/slog"
	"sync"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/location"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/mapservice"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

// Frame types pushed to a map view client.
const (
	FrameState    = "state"
	FrameLocation = "location"
	FrameEvent    = "event"
	FrameSelected = "selected"
)

// Frame is one outbound update of a map view.
type Frame struct {
	Type       string               `json:"type"`
	Ready      *bool                `json:"ready,omitempty"`
	Zoom       float64              `json:"zoom,omitempty"`
	Center     *domain.GeoPoint     `json:"center,omitempty"`
	Bounds     *domain.Bounds       `json:"bounds,omitempty"`
	Location   *location.Resolution `json:"location,omitempty"`
	Kind       events.Kind          `json:"kind,omitempty"`
	Payload    any                  `json:"payload,omitempty"`
	SelectedID string               `json:"selectedId,omitempty"`
}

// InstanceFactory creates the map widget a view owns.
type InstanceFactory func(center domain.GeoPoint, zoom float64) ports.MapInstance

// MapViewService opens map views wired to the shared event bus.
type MapViewService struct {
	bus      *events.Bus
	zooms    ports.ZoomRepository
	newMap   InstanceFactory
	opts     mapservice.Options
	fallback domain.GeoPoint
	log      *slog.Logger
}

// NewMapViewService creates a MapViewService. zooms may be nil.
func NewMapViewService(
	bus *events.Bus,
	zooms ports.ZoomRepository,
	newMap InstanceFactory,
	opts mapservice.Options,
	fallback domain.GeoPoint,
	log *slog.Logger,
) *MapViewService {
	if log == nil {
		log = slog.Default()
	}
	return &MapViewService{
		bus:      bus,
		zooms:    zooms,
		newMap:   newMap,
		opts:     opts,
		fallback: fallback,
		log:      log,
	}
}

// MapView is one activated view: it owns its map instance and must be
// closed by whoever opened it.
type MapView struct {
	svc      *MapViewService
	viewerID string
	facade   *mapservice.Facade
	instance ports.MapInstance
	act      *location.Activation
	send     func(Frame)

	mu       sync.Mutex
	nav      domain.NavigationState
	selected string
	closed   bool
	cleanup  []func()
	unwatch  func()
}

// Open activates a view. send receives every outbound frame and may be
// called from several goroutines. geo may be nil.
func (s *MapViewService) Open(ctx context.Context, viewerID string, nav domain.NavigationState, geo ports.Geolocator, send func(Frame)) *MapView {
	v := &MapView{
		svc:      s,
		viewerID: viewerID,
		facade:   mapservice.New(s.opts, s.log),
		send:     send,
		nav:      nav,
	}

	if s.zooms != nil {
		if z, ok, err := s.zooms.LastZoom(ctx, viewerID); err != nil {
			s.log.Warn("load last zoom", "viewer", viewerID, "error", err)
		} else if ok {
			v.facade.SeedZoom(z)
		}
	}

	v.unwatch = v.facade.Subscribe(func(ports.MapInstance) { v.pushState() })

	v.instance = s.newMap(s.fallback, v.facade.LastZoom())
	v.facade.Register(v.instance)

	v.cleanup = append(v.cleanup,
		events.On(s.bus, events.NavigateToMessage, v.onNavigate),
		s.bus.Tap(func(env events.Envelope) {
			v.send(Frame{Type: FrameEvent, Kind: env.Kind, Payload: env.Payload})
		}),
	)

	syncer := location.NewSyncer(geo, s.fallback, s.log)
	v.act = syncer.Activate(ctx, ports.NavigationFunc(v.navigation), v.onLocation)

	metrics.ActiveMapSessions.Inc()
	return v
}

func (v *MapView) onLocation(res location.Resolution) {
	v.facade.PanTo(res.Coordinate)
	if res.SelectedID != "" {
		v.setSelected(res.SelectedID)
	}
	v.send(Frame{Type: FrameLocation, Location: &res})
	v.pushState()
}

func (v *MapView) onNavigate(p domain.NavigateToMessage) error {
	v.facade.PanTo(p.Coordinate())
	if p.MessageID != "" {
		v.setSelected(p.MessageID)
	}
	v.pushState()
	return nil
}

func (v *MapView) navigation() domain.NavigationState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.nav
}

// Navigate replaces the navigation state of the view. A coordinate carried
// here wins over any device position that resolves afterwards.
func (v *MapView) Navigate(nav domain.NavigationState) {
	v.mu.Lock()
	v.nav = nav
	v.mu.Unlock()

	if !nav.HasCoordinate() {
		return
	}
	v.facade.PanTo(*nav.Coordinate)
	if nav.TargetID != "" {
		v.setSelected(nav.TargetID)
	}
	v.pushState()
}

func (v *MapView) setSelected(id string) {
	v.mu.Lock()
	v.selected = id
	v.mu.Unlock()
	v.send(Frame{Type: FrameSelected, SelectedID: id})
}

// Selected returns the id of the selected message, if any.
func (v *MapView) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selected
}

// Facade exposes the view's map facade to command handlers.
func (v *MapView) Facade() *mapservice.Facade { return v.facade }

// Location returns the current resolution of the view.
func (v *MapView) Location() location.Resolution { return v.act.Resolution() }

// LocationSettled is closed once device sensing is over.
func (v *MapView) LocationSettled() <-chan struct{} { return v.act.Done() }

// PanTo, SetZoom and FitBounds apply a client command and report the new state.
func (v *MapView) PanTo(p domain.GeoPoint) {
	v.facade.PanTo(p)
	v.pushState()
}

func (v *MapView) SetZoom(level float64) {
	v.facade.SetZoom(level)
	v.pushState()
}

func (v *MapView) FitBounds(b domain.Bounds) {
	v.facade.FitBounds(b)
	v.pushState()
}

// State builds a state frame from the facade.
func (v *MapView) State() Frame {
	ready := v.facade.Ready()
	f := Frame{Type: FrameState, Ready: &ready, Zoom: v.facade.Zoom()}
	if b, ok := v.facade.Bounds(); ok {
		f.Bounds = &b
	}
	if c, ok := v.facade.Center(); ok {
		f.Center = &c
	}
	return f
}

func (v *MapView) pushState() { v.send(v.State()) }

// Close tears the view down: it stops location sensing, drops every
// subscription, remembers the zoom, and unregisters the map. Safe to call
// more than once.
func (v *MapView) Close(ctx context.Context) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	cleanup := v.cleanup
	v.cleanup = nil
	v.mu.Unlock()

	v.act.Dispose()
	for _, fn := range cleanup {
		fn()
	}

	zoom := v.facade.Zoom()
	v.facade.Clear()
	v.unwatch()

	if v.svc.zooms != nil {
		if err := v.svc.zooms.SaveZoom(ctx, v.viewerID, zoom); err != nil {
			v.svc.log.Warn("save last zoom", "viewer", v.viewerID, "error", err)
		}
	}
	metrics.ActiveMapSessions.Dec()
}
