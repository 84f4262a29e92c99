// Package observability provides hooks for metrics, tracing, and logging.
//
// Instrumentation is optional and backend-agnostic. Libraries emit events
// through the registered hooks; the application decides at startup where the
// events go.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Hook interfaces per event category (records, cache, HTTP)
//   - No-op default implementations
//   - Registration of custom implementations at startup
//
// Hooks are registered by main, not by libraries, which keeps the parsing
// packages free of observability imports.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetRecordHooks(&myRecordHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Records().OnRecordStart(ctx, "hello", "2.10-3")
//	// ... assemble ...
//	observability.Records().OnRecordComplete(ctx, "hello", "2.10-3", leftovers, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Record Hooks
// =============================================================================

// RecordHooks receives events from batch parsing.
type RecordHooks interface {
	// Batch events
	OnBatchStart(ctx context.Context, runID string, records int)
	OnBatchComplete(ctx context.Context, runID string, records, failed int, duration time.Duration)

	// Per-record events
	OnRecordStart(ctx context.Context, pkg, version string)
	OnRecordComplete(ctx context.Context, pkg, version string, leftovers int, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an incoming request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response sent for a request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopRecordHooks is a no-op implementation of RecordHooks.
type NoopRecordHooks struct{}

func (NoopRecordHooks) OnBatchStart(context.Context, string, int)                        {}
func (NoopRecordHooks) OnBatchComplete(context.Context, string, int, int, time.Duration) {}
func (NoopRecordHooks) OnRecordStart(context.Context, string, string)                    {}
func (NoopRecordHooks) OnRecordComplete(context.Context, string, string, int, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                       {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	recordHooks RecordHooks = NoopRecordHooks{}
	cacheHooks  CacheHooks  = NoopCacheHooks{}
	httpHooks   HTTPHooks   = NoopHTTPHooks{}
	hooksMu     sync.RWMutex
)

// SetRecordHooks registers custom record hooks.
// This should be called once at application startup before any batch runs.
func SetRecordHooks(h RecordHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		recordHooks = h
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

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Records returns the registered record hooks.
func Records() RecordHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return recordHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	recordHooks = NoopRecordHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
