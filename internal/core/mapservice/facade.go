// Package mapservice is the single point of indirection between map-consuming
// components and the map instance owned by a view.
//
// The facade holds a non-owning reference. It relays commands while a map is
// registered (Ready) and silently drops them otherwise (Unready); nothing is
// queued for replay once the map comes back.
package mapservice

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

// State is the readiness of a Facade.
type State int

const (
	Unready State = iota
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "unready"
}

// Listener is told about every transition. instance is nil on Unready.
type Listener func(instance ports.MapInstance)

// Options bounds zoom levels and seeds the last-known zoom.
type Options struct {
	DefaultZoom float64
	MinZoom     float64
	MaxZoom     float64
}

// DefaultOptions matches common web map tile ranges.
func DefaultOptions() Options {
	return Options{DefaultZoom: 13, MinZoom: 2, MaxZoom: 20}
}

type subscriber struct {
	id uint64
	fn Listener
}

// Facade exposes map operations and readiness to decoupled consumers.
type Facade struct {
	mu       sync.Mutex
	instance ports.MapInstance
	lastZoom float64
	nextID   uint64
	subs     []subscriber
	opts     Options
	log      *slog.Logger
}

// New creates an Unready facade.
func New(opts Options, log *slog.Logger) *Facade {
	if log == nil {
		log = slog.Default()
	}
	if opts.MaxZoom <= 0 || opts.MaxZoom < opts.MinZoom {
		opts = DefaultOptions()
	}
	return &Facade{
		opts:     opts,
		lastZoom: clamp(opts.DefaultZoom, opts.MinZoom, opts.MaxZoom),
		log:      log.With("component", "map_facade"),
	}
}

// Register makes m the live instance and notifies subscribers. Registering
// nil is the same as Clear.
func (f *Facade) Register(m ports.MapInstance) {
	if m == nil {
		f.Clear()
		return
	}

	f.mu.Lock()
	f.instance = m
	subs := slices.Clone(f.subs)
	f.mu.Unlock()

	metrics.MapTransitions.WithLabelValues(Ready.String()).Inc()
	f.log.Debug("map registered", "subscribers", len(subs))
	for _, s := range subs {
		s.fn(m)
	}
}

// Clear drops the instance reference on teardown. The instance is not
// touched again after this call. Clearing an Unready facade is not a
// transition and notifies nobody.
func (f *Facade) Clear() {
	f.mu.Lock()
	if f.instance == nil {
		f.mu.Unlock()
		return
	}
	f.instance = nil
	subs := slices.Clone(f.subs)
	f.mu.Unlock()

	metrics.MapTransitions.WithLabelValues(Unready.String()).Inc()
	f.log.Debug("map cleared", "subscribers", len(subs))
	for _, s := range subs {
		s.fn(nil)
	}
}

// Subscribe registers fn for future transitions. The returned func removes
// this registration only.
func (f *Facade) Subscribe(fn Listener) (unsubscribe func()) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscriber{id: id, fn: fn})
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.subs = slices.DeleteFunc(slices.Clone(f.subs), func(s subscriber) bool { return s.id == id })
			f.mu.Unlock()
		})
	}
}

// State reports the current readiness.
func (f *Facade) State() State {
	if f.Ready() {
		return Ready
	}
	return Unready
}

// Ready reports whether an instance is registered.
func (f *Facade) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.instance != nil
}

// WithMap calls fn with the live instance if Ready and reports whether it ran.
func (f *Facade) WithMap(fn func(m ports.MapInstance)) bool {
	f.mu.Lock()
	m := f.instance
	f.mu.Unlock()

	if m == nil {
		return false
	}
	fn(m)
	return true
}

// PanTo recenters the view.
func (f *Facade) PanTo(p domain.GeoPoint) {
	if !p.Valid() {
		f.log.Warn("pan ignored: coordinate out of range", "coordinate", p.String())
		return
	}
	f.WithMap(func(m ports.MapInstance) { m.PanTo(p) })
}

// SetZoom sets the zoom level, clamped to the configured range.
func (f *Facade) SetZoom(level float64) {
	level = clamp(level, f.opts.MinZoom, f.opts.MaxZoom)
	f.WithMap(func(m ports.MapInstance) {
		m.SetZoom(level)
		f.rememberZoom(level)
	})
}

// Zoom returns the live zoom when Ready and the last-known zoom otherwise.
func (f *Facade) Zoom() float64 {
	var z float64
	if f.WithMap(func(m ports.MapInstance) { z = m.Zoom() }) {
		f.rememberZoom(z)
		return z
	}
	return f.LastZoom()
}

// LastZoom returns the zoom recorded by the latest SetZoom, Zoom or SeedZoom.
func (f *Facade) LastZoom() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastZoom
}

// SeedZoom replaces the last-known zoom, e.g. with a persisted value.
func (f *Facade) SeedZoom(level float64) {
	f.rememberZoom(clamp(level, f.opts.MinZoom, f.opts.MaxZoom))
}

// Bounds returns the visible box; ok is false when Unready.
func (f *Facade) Bounds() (b domain.Bounds, ok bool) {
	ok = f.WithMap(func(m ports.MapInstance) { b = m.Bounds() })
	return b, ok
}

// Center returns the view center; ok is false when Unready.
func (f *Facade) Center() (p domain.GeoPoint, ok bool) {
	ok = f.WithMap(func(m ports.MapInstance) { p = m.Center() })
	return p, ok
}

// FitBounds adjusts the viewport to contain b.
func (f *Facade) FitBounds(b domain.Bounds) {
	f.WithMap(func(m ports.MapInstance) { m.FitBounds(b) })
}

func (f *Facade) rememberZoom(z float64) {
	f.mu.Lock()
	f.lastZoom = z
	f.mu.Unlock()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
