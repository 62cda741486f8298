package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey returns the key for a result of the given kind computed from
	// the graph identified by graphHash.
	ResultKey(kind, graphHash string) string
}

// DefaultKeyer produces keys of the form "result:<kind>:<hash>".
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey implements Keyer.
func (DefaultKeyer) ResultKey(kind, graphHash string) string {
	return fmt.Sprintf("result:%s:%s", kind, graphHash)
}

// GraphHash hashes the checker's view of a pipeline: node IDs and
// (source, target) pairs, both in submission order. Presentation fields never
// reach it, so moving a node on the canvas does not invalidate its result.
//
// Order matters because the submitted list lengths are part of the result and
// the traversal order fixes which cycle is reported.
func GraphHash(nodes []string, pairs [][2]string) string {
	return hashKey("graph", nodes, pairs)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Use full SHA-256 hash (64 hex chars / 256 bits) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
