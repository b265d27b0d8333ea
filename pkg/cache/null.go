package cache

import (
	"context"
	"time"

	"github.com/matzehuels/temppivot/pkg/observability"
)

// NullCache stands in for a cache when offsets must not outlive the run:
// --no-cache, or no writable cache directory. Every lookup misses and
// writes are dropped, so each run starts from the offsets stored in the
// scene file alone.
type NullCache struct{}

// NewNullCache returns a [NullCache].
func NewNullCache() Cache {
	return &NullCache{}
}

// Get misses. The miss still reaches the cache hooks.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	observability.Cache().OnCacheMiss(ctx, keyType(key))
	return nil, false, nil
}

func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
