// Package widget provides a headless map instance: a viewport with a center,
// a zoom level and a fixed screen size, as rendered by a client map SDK.
package widget

import (
	"math"
	"sync"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/domain"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/geospatial"
)

// Viewport implements ports.MapInstance.
type Viewport struct {
	mu     sync.RWMutex
	center domain.GeoPoint
	zoom   float64
	width  int
	height int
	maxZ   float64
}

// NewViewport creates a viewport of width x height pixels.
func NewViewport(center domain.GeoPoint, zoom float64, width, height int, maxZoom float64) *Viewport {
	return &Viewport{center: center, zoom: zoom, width: width, height: height, maxZ: maxZoom}
}

func (v *Viewport) PanTo(p domain.GeoPoint) {
	v.mu.Lock()
	v.center = p
	v.mu.Unlock()
}

func (v *Viewport) SetZoom(level float64) {
	v.mu.Lock()
	v.zoom = level
	v.mu.Unlock()
}

func (v *Viewport) Zoom() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.zoom
}

func (v *Viewport) Center() domain.GeoPoint {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.center
}

func (v *Viewport) Bounds() domain.Bounds {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return geospatial.Viewport(v.center, v.zoom, v.width, v.height)
}

// FitBounds centers on b and picks the largest zoom showing all of it.
func (v *Viewport) FitBounds(b domain.Bounds) {
	z := geospatial.ZoomToFit(b, v.width, v.height)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.center = b.Center()
	if math.IsInf(z, 1) || z > v.maxZ {
		z = v.maxZ
	}
	v.zoom = z
}
