// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about pivot sessions, the offset store and the CLI's file
// cache.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the engine free from observability frameworks
//   - Allows different backends (structured logs, counters, traces)
//
// Session and store hooks carry no context: they fire from inside editor
// notification callbacks, which have none.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSessionHooks(&mySessionHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Session().OnSessionStart(len(nodes), maxDepth)
//	// ... propagate ...
//	observability.Session().OnPropagate(passes, changed, converged, elapsed)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Session Hooks
// =============================================================================

// SessionHooks receives events from pivot sessions.
type SessionHooks interface {
	// OnSessionStart records a master group bound to nodes.
	OnSessionStart(bound, maxDepth int)

	// OnPropagate records one propagation run.
	OnPropagate(passes, changed int, converged bool, duration time.Duration)

	// OnSessionEnd records teardown; learned reports whether an offset was cached.
	OnSessionEnd(bound int, learned bool)

	// OnStale records an operation skipped because its node vanished.
	OnStale(nodeID, op string)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from the offset store.
type StoreHooks interface {
	// OnOffsetHit records a cached offset found for a node.
	OnOffsetHit(uuid string)

	// OnOffsetMiss records a node without a cached offset.
	OnOffsetMiss(uuid string)

	// OnOffsetWrite records the container blob being rewritten.
	OnOffsetWrite(entries, size int)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from the CLI's file cache.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSessionHooks is a no-op implementation of SessionHooks.
type NoopSessionHooks struct{}

func (NoopSessionHooks) OnSessionStart(int, int)                   {}
func (NoopSessionHooks) OnPropagate(int, int, bool, time.Duration) {}
func (NoopSessionHooks) OnSessionEnd(int, bool)                    {}
func (NoopSessionHooks) OnStale(string, string)                    {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnOffsetHit(string)     {}
func (NoopStoreHooks) OnOffsetMiss(string)    {}
func (NoopStoreHooks) OnOffsetWrite(int, int) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	sessionHooks SessionHooks = NoopSessionHooks{}
	storeHooks   StoreHooks   = NoopStoreHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	hooksMu      sync.RWMutex
)

// SetSessionHooks registers custom session hooks.
// This should be called once at application startup before any session starts.
func SetSessionHooks(h SessionHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		sessionHooks = h
	}
}

// SetStoreHooks registers custom offset store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// Session returns the registered session hooks.
func Session() SessionHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return sessionHooks
}

// Store returns the registered offset store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	sessionHooks = NoopSessionHooks{}
	storeHooks = NoopStoreHooks{}
	cacheHooks = NoopCacheHooks{}
}
