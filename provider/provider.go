// Package provider defines the byte store behind kvcache.
//
// Implementations must be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for a key, without added metadata or
// re-encoding.
//
// The keyspaces "entry:<ns>:" and "path:<ns>:" are owned by kvcache. Foreign
// writes under these prefixes fail wire validation and are deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs, safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. May ignore cost if unsupported.
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	Close(ctx context.Context) error
}
