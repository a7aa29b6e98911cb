package usecases

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
)

// ViewportService remembers the zoom a viewer left the map at, so the next
// activation opens at the same scale. Coordinates are never stored.
type ViewportService struct {
	cache      ports.CacheService
	ttlSeconds int
}

var _ ports.ZoomRepository = (*ViewportService)(nil)

// NewViewportService creates a ViewportService. cache may be nil, in which
// case nothing is remembered.
func NewViewportService(cache ports.CacheService, ttlSeconds int) *ViewportService {
	if ttlSeconds <= 0 {
		ttlSeconds = 30 * 24 * 3600
	}
	return &ViewportService{cache: cache, ttlSeconds: ttlSeconds}
}

func zoomKey(viewerID string) string { return "viewer:zoom:" + viewerID }

// LastZoom returns the stored zoom for viewerID. A missing key is ok=false
// with no error; any other cache failure is returned.
func (s *ViewportService) LastZoom(ctx context.Context, viewerID string) (float64, bool, error) {
	if s.cache == nil || viewerID == "" {
		return 0, false, nil
	}

	data, err := s.cache.Get(ctx, zoomKey(viewerID))
	if errors.Is(err, ports.ErrCacheMiss) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load zoom for viewer %s: %w", viewerID, err)
	}

	z, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt zoom for viewer %s: %w", viewerID, err)
	}
	return z, true, nil
}

// SaveZoom stores zoom for viewerID.
func (s *ViewportService) SaveZoom(ctx context.Context, viewerID string, zoom float64) error {
	if s.cache == nil || viewerID == "" {
		return nil
	}
	value := strconv.FormatFloat(zoom, 'f', -1, 64)
	if err := s.cache.Set(ctx, zoomKey(viewerID), []byte(value), s.ttlSeconds); err != nil {
		return fmt.Errorf("save zoom: %w", err)
	}
	return nil
}
