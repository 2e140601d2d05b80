// Package cache provides a small byte cache used to skip rebuilding
// population profiles from large reference datasets.
//
// Profiles are cheap to compute but expensive to reach: the dominant cost
// of a run against a big survey export is parsing the TSV. Caching the
// serialized profile keyed by the dataset's content hash lets repeated
// runs skip that work entirely, with --no-cache as the escape hatch.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TTLProfile is how long cached population profiles stay valid. Content
// hashing already invalidates on data changes; the TTL just bounds
// unbounded growth of the cache directory.
const TTLProfile = 30 * 24 * time.Hour

// Cache stores opaque byte values under string keys. The surface is
// deliberately small: profile caching only ever reads, writes, and shuts
// down (stale entries expire, they are never deleted by key).
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores a value; ttl <= 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Close releases any resources held by the cache.
	Close() error
}

// ProfileKeyOpts are the inputs that change what profile a reference
// dataset produces. Two runs with the same dataset bytes but different
// column bindings must not share a cache entry.
type ProfileKeyOpts struct {
	GenderColumn string
	AgeColumn    string
	Genders      [2]string
}

// Keyer generates cache keys.
type Keyer interface {
	// ProfileKey generates a key for a population profile built from the
	// dataset with the given content hash.
	ProfileKey(datasetHash string, opts ProfileKeyOpts) string
}

// DefaultKeyer is the standard key generator.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard key generator.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// ProfileKey generates a profile cache key.
func (k *DefaultKeyer) ProfileKey(datasetHash string, opts ProfileKeyOpts) string {
	return hashKey("profile", datasetHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...interface{}) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	// Full SHA-256 (64 hex chars) to prevent collisions
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
