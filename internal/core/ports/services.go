package ports

import (
	"context"
	"errors"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
)

// MapInstance is an opaque, externally owned map widget. Consumers only issue
// commands through it; they never create or destroy it.
type MapInstance interface {
	PanTo(p domain.GeoPoint)
	SetZoom(level float64)
	Zoom() float64
	Center() domain.GeoPoint
	Bounds() domain.Bounds
	FitBounds(b domain.Bounds)
}

// Geolocator asks the platform for the current device position. It blocks
// until the platform answers or ctx is done; any timeout is the platform's.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (domain.GeoPoint, error)
}

// NavigationSource yields the latest navigation-carried state of a view.
type NavigationSource interface {
	Current() domain.NavigationState
}

// NavigationFunc adapts a plain function to NavigationSource.
type NavigationFunc func() domain.NavigationState

func (f NavigationFunc) Current() domain.NavigationState { return f() }

// EventRelay forwards bus events to a message broker.
type EventRelay interface {
	Relay(ctx context.Context, kind string, payload any) error
}

// ErrCacheMiss is returned by CacheService.Get when the key does not exist.
var ErrCacheMiss = errors.New("cache miss")

// CacheService provides read-through caching. Get wraps ErrCacheMiss for
// absent keys; any other error means the cache could not answer.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
