package valkey

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/core/ports"
	"github.com/amahmoud7/geo-bubble-whispers-sub005/internal/pkg/metrics"
)

// Cache implements ports.CacheService using Valkey (Redis-compatible).
type Cache struct {
	client valkey.Client
}

// New creates a new Valkey cache client.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get retrieves a value by key. A missing key is reported as an error
// wrapping ports.ErrCacheMiss.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if IsMiss(err) {
			metrics.CacheMisses.WithLabelValues("get").Inc()
			return nil, fmt.Errorf("%w: %s", ports.ErrCacheMiss, key)
		}
		return nil, fmt.Errorf("valkey get %s: %w", key, err)
	}
	metrics.CacheHits.WithLabelValues("get").Inc()
	return b, nil
}

// Set stores a value with a TTL in seconds.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	cmd := c.client.Do(ctx,
		c.client.B().Set().Key(key).Value(valkey.BinaryString(value)).Ex(time.Duration(ttlSeconds)*time.Second).Build(),
	)
	return cmd.Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Do(ctx, c.client.B().Del().Key(key).Build()).Error()
}

// Ping checks connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}

// IsMiss reports whether err means the key does not exist.
func IsMiss(err error) bool {
	return errors.Is(err, ports.ErrCacheMiss) || valkey.IsValkeyNil(err)
}
