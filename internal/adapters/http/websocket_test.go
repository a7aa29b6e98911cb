package http

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/geolocation"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/adapters/widget"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/events"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/location"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/mapservice"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/usecases"
)

func queryOf(values map[string]string) queryFunc {
	return func(key string, defaultValue ...string) string {
		if v, ok := values[key]; ok {
			return v
		}
		if len(defaultValue) > 0 {
			return defaultValue[0]
		}
		return ""
	}
}

func TestNavigationFromQuery(t *testing.T) {
	nav, err := navigationFromQuery(queryOf(map[string]string{"target": "m1"}))
	if err != nil || nav.HasCoordinate() || nav.TargetID != "m1" {
		t.Errorf("target only: got %+v, %v", nav, err)
	}

	nav, err = navigationFromQuery(queryOf(map[string]string{"lat": "10.5", "lng": "-20"}))
	if err != nil || !nav.HasCoordinate() || *nav.Coordinate != (domain.GeoPoint{Lat: 10.5, Lng: -20}) {
		t.Errorf("coordinate: got %+v, %v", nav, err)
	}

	if _, err := navigationFromQuery(queryOf(map[string]string{"lng": "1"})); err == nil {
		t.Error("expected error for half a coordinate")
	}
	if _, err := navigationFromQuery(queryOf(map[string]string{"lat": "0", "lng": "181"})); err == nil {
		t.Error("expected error for out of range longitude")
	}
}

type session struct {
	deps *Dependencies
	view *usecases.MapView
	geo  *geolocation.Reported
}

func openSession(t *testing.T) *session {
	t.Helper()
	fallback := domain.GeoPoint{Lat: 34.0522, Lng: -118.2437}
	bus := events.NewBus(nil)
	views := usecases.NewMapViewService(bus, nil,
		func(center domain.GeoPoint, zoom float64) ports.MapInstance {
			return widget.NewViewport(center, zoom, 390, 844, 20)
		},
		mapservice.DefaultOptions(), fallback, nil)

	s := &session{
		deps: &Dependencies{Bus: bus, Views: views, Locator: location.NewSyncer(nil, fallback, nil)},
		geo:  geolocation.NewReported(time.Second),
	}
	s.view = views.Open(context.Background(), "viewer", domain.NavigationState{}, s.geo, func(usecases.Frame) {})
	t.Cleanup(func() { s.view.Close(context.Background()) })
	return s
}

func f64(v float64) *float64 { return &v }

func (s *session) do(cmd wsCommand) map[string]string {
	return handleCommand(s.deps, s.view, s.geo, cmd)
}

func TestHandleCommand_PositionIsReportedOnce(t *testing.T) {
	s := openSession(t)

	if reply := s.do(wsCommand{Action: "position", Lat: f64(48.85), Lng: f64(2.35)}); reply != nil {
		t.Fatalf("unexpected reply: %v", reply)
	}
	select {
	case <-s.view.LocationSettled():
	case <-time.After(2 * time.Second):
		t.Fatal("location did not settle")
	}
	if res := s.view.Location(); res.Source != location.SourceDevice {
		t.Errorf("expected device source, got %s", res.Source)
	}

	if reply := s.do(wsCommand{Action: "position", Lat: f64(1), Lng: f64(1)}); reply == nil {
		t.Error("expected second report to be refused")
	}
}

func TestHandleCommand_PositionErrorKeepsDefault(t *testing.T) {
	s := openSession(t)

	if reply := s.do(wsCommand{Action: "position_error", Code: 1, Message: "denied"}); reply != nil {
		t.Fatalf("unexpected reply: %v", reply)
	}
	<-s.view.LocationSettled()
	if res := s.view.Location(); res.Source != location.SourceDefault {
		t.Errorf("expected default source, got %s", res.Source)
	}
}

func TestHandleCommand_ViewportCommands(t *testing.T) {
	s := openSession(t)

	if reply := s.do(wsCommand{Action: "pan", Lat: f64(95), Lng: f64(0)}); reply == nil {
		t.Error("expected out of range pan to be refused")
	}
	s.do(wsCommand{Action: "pan", Lat: f64(40.7), Lng: f64(-74)})
	if c, _ := s.view.Facade().Center(); c != (domain.GeoPoint{Lat: 40.7, Lng: -74}) {
		t.Errorf("expected pan to move center, got %v", c)
	}

	s.do(wsCommand{Action: "zoom", Zoom: 99})
	if z := s.view.Facade().Zoom(); z != 20 {
		t.Errorf("expected zoom clamped to 20, got %v", z)
	}

	if reply := s.do(wsCommand{Action: "fit"}); reply == nil {
		t.Error("expected fit without bounds to be refused")
	}
	box := domain.Bounds{MinLat: 40, MinLng: -75, MaxLat: 41, MaxLng: -73}
	s.do(wsCommand{Action: "fit", Bounds: &box})
	if b, _ := s.view.Facade().Bounds(); !b.Contains(box.Center()) {
		t.Errorf("expected bounds %+v to contain %v", b, box.Center())
	}
}

func TestHandleCommand_NavigateSelects(t *testing.T) {
	s := openSession(t)

	s.do(wsCommand{Action: "navigate", Lat: f64(35.68), Lng: f64(139.69), Target: "m5"})
	if s.view.Selected() != "m5" {
		t.Errorf("expected m5 selected, got %q", s.view.Selected())
	}
}

func TestHandleCommand_RejectsIncompleteCoordinates(t *testing.T) {
	s := openSession(t)

	cmds := []wsCommand{
		{Action: "navigate", Lat: f64(10), Target: "m9"},
		{Action: "navigate", Lng: f64(10)},
		{Action: "pan", Lat: f64(10)},
		{Action: "position"},
		{Action: "position", Lat: f64(91), Lng: f64(0)},
	}
	for _, cmd := range cmds {
		if reply := s.do(cmd); reply["type"] != "error" {
			t.Errorf("%s %+v: expected error frame, got %v", cmd.Action, cmd, reply)
		}
	}

	if s.view.Selected() == "m9" {
		t.Error("half coordinate navigation must not select its target")
	}
	if c, _ := s.view.Facade().Center(); c.Lng == 0 {
		t.Errorf("center moved to a half coordinate: %v", c)
	}

	// A rejected position does not consume the one report a session gets.
	if reply := s.do(wsCommand{Action: "position", Lat: f64(48.85), Lng: f64(2.35)}); reply != nil {
		t.Fatalf("unexpected reply: %v", reply)
	}
	<-s.view.LocationSettled()
	if res := s.view.Location(); res.Source != location.SourceDevice || res.Coordinate.Lng != 2.35 {
		t.Errorf("expected device resolution at the reported point, got %+v", res)
	}
}

func TestHandleCommand_EmitRejectsHalfNavigation(t *testing.T) {
	s := openSession(t)
	delivered := false
	events.On(s.deps.Bus, events.NavigateToMessage, func(domain.NavigateToMessage) error {
		delivered = true
		return nil
	})

	reply := s.do(wsCommand{Action: "emit", Kind: "navigateToMessage", Payload: json.RawMessage(`{"lat":10}`)})
	if reply["type"] != "error" {
		t.Errorf("expected error frame, got %v", reply)
	}
	if delivered {
		t.Error("listener must not see a half coordinate")
	}
}

func TestHandleCommand_Emit(t *testing.T) {
	s := openSession(t)
	var got string
	events.On(s.deps.Bus, events.MessageCreated, func(p domain.MessageCreated) error {
		got = p.ID
		return nil
	})

	if reply := s.do(wsCommand{Action: "emit", Kind: "messageCreated", Payload: json.RawMessage(`{"id":"m8"}`)}); reply != nil {
		t.Fatalf("unexpected reply: %v", reply)
	}
	if got != "m8" {
		t.Errorf("expected m8 emitted, got %q", got)
	}

	if reply := s.do(wsCommand{Action: "emit", Kind: "nope"}); reply == nil {
		t.Error("expected unknown kind to be refused")
	}
	if reply := s.do(wsCommand{Action: "dance"}); reply["type"] != "error" {
		t.Errorf("expected error frame, got %v", reply)
	}
}
