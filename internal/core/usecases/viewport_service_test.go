package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/usecases"
)

// --- Mock CacheService ---

type mockCache struct {
	data   map[string][]byte
	ttls   map[string]int
	getErr error
	setErr error
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// --- Tests ---

func TestViewportService_SaveAndLoad(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewViewportService(cache, 60)

	if err := svc.SaveZoom(context.Background(), "u1", 15.5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cache.ttls["viewer:zoom:u1"] != 60 {
		t.Errorf("expected ttl 60, got %d", cache.ttls["viewer:zoom:u1"])
	}

	z, ok, err := svc.LastZoom(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("expected stored zoom, got ok=%v err=%v", ok, err)
	}
	if z != 15.5 {
		t.Errorf("expected 15.5, got %v", z)
	}
}

func TestViewportService_MissAndCacheErrors(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewViewportService(cache, 60)

	if _, ok, err := svc.LastZoom(context.Background(), "nobody"); ok || err != nil {
		t.Errorf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	outage := errors.New("connection refused")
	cache.getErr = outage
	if _, ok, err := svc.LastZoom(context.Background(), "u1"); ok || !errors.Is(err, outage) {
		t.Errorf("expected outage to be reported, got ok=%v err=%v", ok, err)
	}

	cache.setErr = errors.New("connection refused")
	if err := svc.SaveZoom(context.Background(), "u1", 3); err == nil {
		t.Error("expected save error")
	}
}

func TestViewportService_CorruptValue(t *testing.T) {
	cache := newMockCache()
	cache.data["viewer:zoom:u1"] = []byte("not-a-number")
	svc := usecases.NewViewportService(cache, 60)

	if _, _, err := svc.LastZoom(context.Background(), "u1"); err == nil {
		t.Error("expected error for corrupt value")
	}
}

func TestViewportService_NilCache(t *testing.T) {
	svc := usecases.NewViewportService(nil, 0)

	if err := svc.SaveZoom(context.Background(), "u1", 12); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, ok, _ := svc.LastZoom(context.Background(), "u1"); ok {
		t.Error("nil cache should never hit")
	}
}
