// Package genstore keeps per-path generation counters for kvcache.
//
// A cached secret carries the generation its path had when the store was
// loaded. Bumping the path's generation makes every one of its cached keys
// stale at once, without listing them. Generations start at 0 for a path
// that was never bumped.
package genstore

import (
	"context"
	"time"
)

// GenStore holds generations by key. kvcache passes path keys built by
// internal/util.PathKey.
//
// LocalGenStore serves a single process. RedisGenStore is needed when the
// cached entries themselves live in Redis and are shared, so that one
// process invalidating a path invalidates it everywhere.
type GenStore interface {
	Snapshot(ctx context.Context, key string) (uint64, error)
	// SnapshotMany returns an entry for every key, 0 when unknown.
	SnapshotMany(ctx context.Context, keys []string) (map[string]uint64, error)
	// Bump increments atomically and returns the new generation.
	Bump(ctx context.Context, key string) (uint64, error)
	// Cleanup forgets keys idle longer than retention. Stores that expire
	// keys on their own do nothing.
	Cleanup(retention time.Duration)
	Close(ctx context.Context) error
}
