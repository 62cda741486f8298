// Package cache provides result caching for pipeline checks.
//
// A check is a pure function of the submitted node IDs and edge pairs, so its
// result can be memoized under a content hash of that projection. Every
// backend implements [Cache]; a miss or a backend failure only costs a
// recomputation and never changes a response.
//
// # Backends
//
//   - [NullCache]: caching disabled
//   - [MemoryCache]: in-process LRU, the server default
//   - [FileCache]: one JSON file per entry, used by the CLI
//   - [RedisCache]: shared between server replicas
//   - [MongoCache]: shared, with a TTL index for expiry
//
// Use [Open] to build a backend from [Options].
//
// # Keys
//
// A [Keyer] turns a result kind and a graph hash into a storage key.
// [ScopedKeyer] prefixes keys so several deployments can share one backend.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte payloads under string keys with an optional TTL.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// TTLs for cached entries.
const (
	// TTLResult is how long a check result stays cached. Results never go
	// stale (the key is a content hash), so this only bounds storage.
	TTLResult = 24 * time.Hour
)

// Result kinds used in cache keys.
const (
	KindParse   = "parse"
	KindAnalyze = "analyze"
)
