// Package cache stores offset container blobs between CLI runs.
//
// The editor keeps learned pivot offsets on a container node inside the
// scene, so they live as long as the scene file. The CLI's in-memory scenes
// are rebuilt from a description on every run; this package plays the role
// of the saved scene by keeping the container blob on disk, keyed by the
// scene description's content hash.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under the XDG cache directory
//   - [NullCache]: stores nothing, used by --no-cache
//
// # Keys
//
// Keys are produced by a [Keyer] and have the form "prefix:sha256". The
// prefix names the kind of entry and is what the cache hooks in
// [github.com/matzehuels/temppivot/pkg/observability] report.
package cache

import (
	"context"
	"time"
)

// ContainerTTL is how long a cached container blob stays valid.
const ContainerTTL = 30 * 24 * time.Hour

// Cache is a byte-oriented key-value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
