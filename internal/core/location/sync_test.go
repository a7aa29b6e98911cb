package location_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/location"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
)

var fallback = domain.GeoPoint{Lat: 34.0522, Lng: -118.2437}

// --- Mock Geolocator ---

// mockGeo blocks until the test sends a result, so the device answer always
// arrives after the initial resolution.
type mockGeo struct {
	results chan geoResult
}

type geoResult struct {
	p   domain.GeoPoint
	err error
}

func newMockGeo() *mockGeo { return &mockGeo{results: make(chan geoResult, 1)} }

func (m *mockGeo) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	select {
	case r := <-m.results:
		return r.p, r.err
	case <-ctx.Done():
		return domain.GeoPoint{}, ctx.Err()
	}
}

// recorder collects onChange calls.
type recorder struct {
	mu  sync.Mutex
	got []location.Resolution
}

func (r *recorder) onChange(res location.Resolution) {
	r.mu.Lock()
	r.got = append(r.got, res)
	r.mu.Unlock()
}

func (r *recorder) calls() []location.Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]location.Resolution(nil), r.got...)
}

func navWith(p *domain.GeoPoint, target string) ports.NavigationSource {
	return ports.NavigationFunc(func() domain.NavigationState {
		return domain.NavigationState{Coordinate: p, TargetID: target}
	})
}

func waitDone(t *testing.T, a *location.Activation) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("device sensing did not finish")
	}
}

// --- Tests ---

func TestActivate_NavigationWinsOverLateDevice(t *testing.T) {
	geo := newMockGeo()
	s := location.NewSyncer(geo, fallback, nil)
	rec := &recorder{}

	a := s.Activate(context.Background(), navWith(&domain.GeoPoint{Lat: 10, Lng: 20}, "msg-1"), rec.onChange)
	defer a.Dispose()

	geo.results <- geoResult{p: domain.GeoPoint{Lat: 30, Lng: 40}}
	waitDone(t, a)

	res := a.Resolution()
	if res.Coordinate != (domain.GeoPoint{Lat: 10, Lng: 20}) {
		t.Errorf("expected (10, 20), got %v", res.Coordinate)
	}
	if res.Source != location.SourceNavigation {
		t.Errorf("expected navigation source, got %s", res.Source)
	}
	if res.SelectedID != "msg-1" {
		t.Errorf("expected msg-1 selected, got %q", res.SelectedID)
	}
	if n := len(rec.calls()); n != 1 {
		t.Errorf("expected only the initial notification, got %d", n)
	}
}

func TestActivate_DeviceAdoptedWithoutNavigation(t *testing.T) {
	geo := newMockGeo()
	s := location.NewSyncer(geo, fallback, nil)
	rec := &recorder{}

	a := s.Activate(context.Background(), navWith(nil, ""), rec.onChange)
	defer a.Dispose()

	if got := a.Resolution(); got.Source != location.SourceDefault || got.Coordinate != fallback {
		t.Fatalf("expected default before device answers, got %+v", got)
	}

	geo.results <- geoResult{p: domain.GeoPoint{Lat: 51.5, Lng: -0.1}}
	waitDone(t, a)

	res := a.Resolution()
	if res.Coordinate != (domain.GeoPoint{Lat: 51.5, Lng: -0.1}) {
		t.Errorf("expected (51.5, -0.1), got %v", res.Coordinate)
	}
	if res.Source != location.SourceDevice {
		t.Errorf("expected device source, got %s", res.Source)
	}

	calls := rec.calls()
	if len(calls) != 2 || calls[1].Source != location.SourceDevice {
		t.Errorf("expected initial + device notification, got %+v", calls)
	}
}

func TestActivate_DeviceErrorKeepsDefault(t *testing.T) {
	geo := newMockGeo()
	s := location.NewSyncer(geo, fallback, nil)

	a := s.Activate(context.Background(), navWith(nil, ""), nil)
	defer a.Dispose()

	geo.results <- geoResult{err: errors.New("permission denied")}
	waitDone(t, a)

	res := a.Resolution()
	if res.Coordinate != fallback || res.Source != location.SourceDefault {
		t.Errorf("expected fallback, got %+v", res)
	}
}

func TestActivate_NavigationArrivingLateStillWins(t *testing.T) {
	geo := newMockGeo()
	s := location.NewSyncer(geo, fallback, nil)

	var mu sync.Mutex
	var state domain.NavigationState
	nav := ports.NavigationFunc(func() domain.NavigationState {
		mu.Lock()
		defer mu.Unlock()
		return state
	})

	a := s.Activate(context.Background(), nav, nil)
	defer a.Dispose()

	mu.Lock()
	state = domain.NavigationState{Coordinate: &domain.GeoPoint{Lat: 10, Lng: 20}}
	mu.Unlock()

	geo.results <- geoResult{p: domain.GeoPoint{Lat: 30, Lng: 40}}
	waitDone(t, a)

	res := a.Resolution()
	if res.Coordinate != (domain.GeoPoint{Lat: 10, Lng: 20}) || res.Source != location.SourceNavigation {
		t.Errorf("expected navigation coordinate checked at callback time, got %+v", res)
	}
}

func TestActivate_DisposeSuppressesLateCallback(t *testing.T) {
	geo := &staticGeo{p: domain.GeoPoint{Lat: 51.5, Lng: -0.1}, release: make(chan struct{})}
	s := location.NewSyncer(geo, fallback, nil)
	rec := &recorder{}

	a := s.Activate(context.Background(), navWith(nil, ""), rec.onChange)
	a.Dispose()
	a.Dispose()
	close(geo.release)
	waitDone(t, a)

	if n := len(rec.calls()); n != 1 {
		t.Errorf("expected no notification after dispose, got %d calls", n)
	}
	if res := a.Resolution(); res.Source != location.SourceDefault {
		t.Errorf("expected default after dispose, got %+v", res)
	}
}

func TestActivate_NilGeolocator(t *testing.T) {
	s := location.NewSyncer(nil, fallback, nil)

	a := s.Activate(context.Background(), navWith(nil, ""), nil)
	waitDone(t, a)

	if res := a.Resolution(); res.Coordinate != fallback {
		t.Errorf("expected fallback, got %+v", res)
	}
}

func TestResolve_TargetOnlyWithCoordinate(t *testing.T) {
	s := location.NewSyncer(nil, fallback, nil)

	res := s.Resolve(domain.NavigationState{TargetID: "msg-2"})
	if res.Source != location.SourceDefault || res.SelectedID != "" {
		t.Errorf("target without coordinate must not be selected, got %+v", res)
	}
}

// staticGeo ignores cancellation and answers once released, like a platform
// callback that fires after the view went away.
type staticGeo struct {
	p       domain.GeoPoint
	release chan struct{}
}

func (g *staticGeo) CurrentPosition(ctx context.Context) (domain.GeoPoint, error) {
	<-g.release
	return g.p, nil
}
