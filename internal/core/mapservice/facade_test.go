package mapservice_test

import (
	"testing"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/mapservice"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
)

// --- Mock MapInstance ---

type mockMap struct {
	center    domain.GeoPoint
	zoom      float64
	bounds    domain.Bounds
	panCalls  int
	fitCalls  int
	zoomCalls int
}

func (m *mockMap) PanTo(p domain.GeoPoint)   { m.panCalls++; m.center = p }
func (m *mockMap) SetZoom(level float64)     { m.zoomCalls++; m.zoom = level }
func (m *mockMap) Zoom() float64             { return m.zoom }
func (m *mockMap) Center() domain.GeoPoint   { return m.center }
func (m *mockMap) Bounds() domain.Bounds     { return m.bounds }
func (m *mockMap) FitBounds(b domain.Bounds) { m.fitCalls++; m.bounds = b }

func newFacade() *mapservice.Facade {
	return mapservice.New(mapservice.Options{DefaultZoom: 12, MinZoom: 2, MaxZoom: 20}, nil)
}

// --- Tests ---

func TestFacade_TransitionsNotifySubscribers(t *testing.T) {
	f := newFacade()
	m := &mockMap{zoom: 10}

	var a, b []ports.MapInstance
	f.Subscribe(func(inst ports.MapInstance) { a = append(a, inst) })
	f.Subscribe(func(inst ports.MapInstance) { b = append(b, inst) })

	if f.State() != mapservice.Unready {
		t.Fatalf("expected unready, got %s", f.State())
	}

	f.Register(m)
	if !f.Ready() {
		t.Fatal("expected ready after register")
	}
	f.Clear()
	if f.Ready() {
		t.Fatal("expected unready after clear")
	}

	for name, got := range map[string][]ports.MapInstance{"a": a, "b": b} {
		if len(got) != 2 {
			t.Fatalf("subscriber %s: expected 2 notifications, got %d", name, len(got))
		}
		if got[0] != m {
			t.Errorf("subscriber %s: expected instance on ready", name)
		}
		if got[1] != nil {
			t.Errorf("subscriber %s: expected nil on unready", name)
		}
	}
}

func TestFacade_ClearWhenUnreadyIsSilent(t *testing.T) {
	f := newFacade()
	calls := 0
	f.Subscribe(func(ports.MapInstance) { calls++ })

	f.Clear()
	f.Register(nil)

	if calls != 0 {
		t.Errorf("expected no notifications, got %d", calls)
	}
}

func TestFacade_Unsubscribe(t *testing.T) {
	f := newFacade()
	calls := 0
	unsub := f.Subscribe(func(ports.MapInstance) { calls++ })
	unsub()

	f.Register(&mockMap{})
	if calls != 0 {
		t.Errorf("unsubscribed listener called %d times", calls)
	}
}

func TestFacade_WithMap(t *testing.T) {
	f := newFacade()

	calls := 0
	if f.WithMap(func(ports.MapInstance) { calls++ }) {
		t.Error("WithMap reported running while unready")
	}
	if calls != 0 {
		t.Fatalf("callback invoked while unready")
	}

	m := &mockMap{}
	f.Register(m)

	var got ports.MapInstance
	if !f.WithMap(func(inst ports.MapInstance) { calls++; got = inst }) {
		t.Error("WithMap reported not running while ready")
	}
	if calls != 1 {
		t.Errorf("expected callback once, got %d", calls)
	}
	if got != m {
		t.Error("callback did not receive the registered instance")
	}
}

func TestFacade_OperationsAreNoOpsWhenUnready(t *testing.T) {
	f := newFacade()
	m := &mockMap{zoom: 9}

	f.PanTo(domain.GeoPoint{Lat: 1, Lng: 1})
	f.SetZoom(15)
	f.FitBounds(domain.Bounds{MinLat: 0, MinLng: 0, MaxLat: 1, MaxLng: 1})

	if _, ok := f.Bounds(); ok {
		t.Error("expected no bounds while unready")
	}
	if _, ok := f.Center(); ok {
		t.Error("expected no center while unready")
	}

	// Nothing queued for replay.
	f.Register(m)
	if m.panCalls != 0 || m.zoomCalls != 0 || m.fitCalls != 0 {
		t.Errorf("operations replayed after register: pan=%d zoom=%d fit=%d", m.panCalls, m.zoomCalls, m.fitCalls)
	}
}

func TestFacade_OperationsRelayWhenReady(t *testing.T) {
	f := newFacade()
	m := &mockMap{zoom: 9}
	f.Register(m)

	target := domain.GeoPoint{Lat: 51.5, Lng: -0.1}
	f.PanTo(target)
	if m.center != target {
		t.Errorf("expected center %v, got %v", target, m.center)
	}

	f.SetZoom(14)
	if f.Zoom() != 14 {
		t.Errorf("expected zoom 14, got %v", f.Zoom())
	}

	box := domain.Bounds{MinLat: 51, MinLng: -1, MaxLat: 52, MaxLng: 0}
	f.FitBounds(box)
	got, ok := f.Bounds()
	if !ok || got != box {
		t.Errorf("expected bounds %+v, got %+v (ok=%v)", box, got, ok)
	}
}

func TestFacade_InvalidPanIgnored(t *testing.T) {
	f := newFacade()
	m := &mockMap{}
	f.Register(m)

	f.PanTo(domain.GeoPoint{Lat: 120, Lng: 0})
	if m.panCalls != 0 {
		t.Error("out of range coordinate was relayed")
	}
}

func TestFacade_ZoomClampedAndRemembered(t *testing.T) {
	f := newFacade()

	if z := f.Zoom(); z != 12 {
		t.Errorf("expected default last-known zoom 12, got %v", z)
	}

	m := &mockMap{zoom: 12}
	f.Register(m)

	f.SetZoom(42)
	if m.zoom != 20 {
		t.Errorf("expected zoom clamped to 20, got %v", m.zoom)
	}
	f.SetZoom(0)
	if m.zoom != 2 {
		t.Errorf("expected zoom clamped to 2, got %v", m.zoom)
	}

	f.SetZoom(16)
	f.Clear()
	if z := f.Zoom(); z != 16 {
		t.Errorf("expected last-known zoom 16 after clear, got %v", z)
	}
}

func TestFacade_SeedZoom(t *testing.T) {
	f := newFacade()
	f.SeedZoom(7)
	if z := f.Zoom(); z != 7 {
		t.Errorf("expected seeded zoom 7, got %v", z)
	}
}

func TestFacade_ReRegisterNotifiesNewInstance(t *testing.T) {
	f := newFacade()
	first, second := &mockMap{}, &mockMap{}

	var got []ports.MapInstance
	f.Subscribe(func(inst ports.MapInstance) { got = append(got, inst) })

	f.Register(first)
	f.Register(second)

	if len(got) != 2 || got[1] != second {
		t.Fatalf("expected second instance to be announced, got %v", got)
	}

	f.PanTo(domain.GeoPoint{Lat: 3, Lng: 4})
	if first.panCalls != 0 || second.panCalls != 1 {
		t.Errorf("commands went to the wrong instance: first=%d second=%d", first.panCalls, second.panCalls)
	}
}
