// Package cache provides pluggable response caching for the forge and
// registry HTTP clients.
//
// Backends store opaque byte slices under string keys with a per-entry TTL.
// The file backend is the default for CLI usage; the redis backend lets
// build-farm runners share one cache; the null backend disables caching.
package cache

import (
	"context"
	"time"
)

// Cache is the backend interface shared by all cache implementations.
// Implementations must treat a missing key as (nil, false, nil), not an error.
type Cache interface {
	// Get retrieves the value stored under key. The second return value
	// reports whether the key was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
