package ports

import "context"

// ZoomRepository remembers the last zoom level a viewer left a map at.
type ZoomRepository interface {
	// LastZoom returns ok=false when nothing was stored for the viewer.
	LastZoom(ctx context.Context, viewerID string) (zoom float64, ok bool, err error)
	SaveZoom(ctx context.Context, viewerID string, zoom float64) error
}
