// Package cache stores assembled records keyed by the raw stanza text that
// produced them.
//
// Parsing is deterministic: the same stanza text, identity and options
// always yield the same record, so a cached result never goes stale for its
// key. TTLs only bound disk and memory use.
//
// Four backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry under a directory, for the CLI
//   - [MemoryCache]: a bounded in-process LRU, for the HTTP server
//   - [RedisCache]: shared across processes
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer]. [NewScopedKeyer] adds a namespace prefix so
// several deployments can share one Redis instance.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL.
type Cache interface {
	// Get returns the stored value and whether it was found.
	// A missing or expired entry is a miss, not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Keyer derives cache keys.
type Keyer interface {
	// RecordKey returns the key for one assembled record.
	RecordKey(text string, pkg, version string, opts RecordKeyOpts) string
}

// RecordKeyOpts holds the assembly options that change the result.
type RecordKeyOpts struct {
	Passthrough bool `json:"passthrough,omitempty"`
}

// DefaultKeyer hashes the key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RecordKey implements Keyer.
func (DefaultKeyer) RecordKey(text string, pkg, version string, opts RecordKeyOpts) string {
	return hashKey("record", text, pkg, version, opts)
}
