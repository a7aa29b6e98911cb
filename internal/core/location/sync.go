// Package location resolves the coordinate a map view opens at.
//
// Three sources compete, highest priority first: the coordinate carried in
// navigation state, the device position, and a fixed default. Navigation is
// read when the view activates and read again when the device answers, so a
// navigation coordinate always wins regardless of which arrives first.
package location

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

// Source names where a resolved coordinate came from.
type Source string

const (
	SourceDefault    Source = "default"
	SourceNavigation Source = "navigation"
	SourceDevice     Source = "device"
)

// Resolution is the authoritative coordinate of one activation.
type Resolution struct {
	Coordinate domain.GeoPoint `json:"coordinate"`
	Source     Source          `json:"source"`
	SelectedID string          `json:"selectedId,omitempty"`
}

// Syncer produces Resolutions. It is safe for concurrent use and holds no
// per-view state; each view gets its own Activation.
type Syncer struct {
	geo      ports.Geolocator
	fallback domain.GeoPoint
	log      *slog.Logger
	tracer   trace.Tracer
}

// NewSyncer creates a Syncer. geo may be nil when the platform has no
// geolocation capability.
func NewSyncer(geo ports.Geolocator, fallback domain.GeoPoint, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{
		geo:      geo,
		fallback: fallback,
		log:      log.With("component", "location"),
		tracer:   otel.Tracer("whispers/location"),
	}
}

// Fallback returns the fixed default coordinate.
func (s *Syncer) Fallback() domain.GeoPoint { return s.fallback }

// Resolve applies navigation-over-default precedence without device sensing.
func (s *Syncer) Resolve(nav domain.NavigationState) Resolution {
	if !nav.HasCoordinate() {
		return Resolution{Coordinate: s.fallback, Source: SourceDefault}
	}
	return Resolution{
		Coordinate: *nav.Coordinate,
		Source:     SourceNavigation,
		SelectedID: nav.TargetID,
	}
}

// Activation is one resolution pass for one view. Its owner must call
// Dispose on teardown.
type Activation struct {
	notify   sync.Mutex // held while onChange runs from the sensing goroutine
	mu       sync.Mutex
	res      Resolution
	disposed bool
	onChange func(Resolution)
	cancel   context.CancelFunc
	done     chan struct{}
}

// Activate resolves the initial coordinate and starts device sensing in the
// background. onChange is called synchronously with the initial resolution
// and again, from the sensing goroutine, if the device coordinate is adopted.
// No onChange call starts after Dispose returns.
func (s *Syncer) Activate(ctx context.Context, nav ports.NavigationSource, onChange func(Resolution)) *Activation {
	ctx, cancel := context.WithCancel(ctx)
	if onChange == nil {
		onChange = func(Resolution) {}
	}

	a := &Activation{
		res:      s.Resolve(nav.Current()),
		onChange: onChange,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	metrics.LocationResolutions.WithLabelValues(string(a.res.Source)).Inc()
	onChange(a.res)

	if s.geo == nil {
		s.log.Debug("no geolocation source, keeping initial coordinate", "source", a.res.Source)
		close(a.done)
		return a
	}

	go s.sense(ctx, a, nav)
	return a
}

func (s *Syncer) sense(ctx context.Context, a *Activation, nav ports.NavigationSource) {
	defer close(a.done)

	ctx, span := s.tracer.Start(ctx, "location.device")
	defer span.End()

	start := time.Now()
	p, err := s.geo.CurrentPosition(ctx)
	metrics.GeolocationLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			s.log.Debug("device geolocation abandoned", "error", err)
			return
		}
		metrics.GeolocationErrors.Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("device geolocation failed", "error", err)
		return
	}
	if !p.Valid() {
		metrics.GeolocationErrors.Inc()
		s.log.Warn("device geolocation returned out of range coordinate", "coordinate", p.String())
		return
	}

	// Precedence is decided against the navigation state as it is now, not
	// as it was when the view activated.
	latest := nav.Current()

	a.notify.Lock()
	defer a.notify.Unlock()
	a.mu.Lock()
	if a.disposed {
		a.mu.Unlock()
		return
	}
	var next Resolution
	switch {
	case latest.HasCoordinate() && a.res.Source == SourceNavigation:
		a.mu.Unlock()
		span.SetAttributes(attribute.String("location.adopted", string(SourceNavigation)))
		s.log.Debug("device coordinate ignored, navigation state wins")
		return
	case latest.HasCoordinate():
		next = s.Resolve(latest)
	default:
		next = Resolution{Coordinate: p, Source: SourceDevice}
	}
	a.res = next
	a.mu.Unlock()

	span.SetAttributes(attribute.String("location.adopted", string(next.Source)))
	metrics.LocationResolutions.WithLabelValues(string(next.Source)).Inc()
	a.onChange(next)
}

// Resolution returns the current coordinate of the activation.
func (a *Activation) Resolution() Resolution {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.res
}

// Done is closed once device sensing finished, failed, or was abandoned.
func (a *Activation) Done() <-chan struct{} { return a.done }

// Dispose cancels an in-flight device request and stops notifications.
// It waits for a running onChange to return, so it must not be called from
// inside onChange. It is safe to call more than once.
func (a *Activation) Dispose() {
	a.notify.Lock()
	a.mu.Lock()
	a.disposed = true
	a.mu.Unlock()
	a.notify.Unlock()
	a.cancel()
}
