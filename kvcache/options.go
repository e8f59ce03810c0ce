package kvcache

import (
	"time"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/codec"
	"github.com/unkn0wn-root/confita/genstore"
	"github.com/unkn0wn-root/confita/provider"
)

const (
	DefaultNamespace  = "confita"
	DefaultTTL        = 10 * time.Minute
	DefaultMaxEntries = 1024

	defaultGenRetention = 30 * 24 * time.Hour
	defaultSweep        = time.Hour
)

// SetCostFunc returns the admission cost of one framed entry.
// The default costs every entry 1, so the default provider's capacity is an
// entry count.
type SetCostFunc func(storageKey string, raw []byte) int64

type Options struct {
	// Namespace isolates this cache's keys in a shared provider.
	// Default "confita".
	Namespace string

	// Provider stores framed entries. Default: ristretto sized for MaxEntries.
	Provider provider.Provider

	// MaxEntries bounds the default provider. Ignored when Provider is set.
	MaxEntries int64

	// Codec encodes values. Default codec.Msgpack.
	Codec codec.Codec[any]

	// TTL of every entry. Default 10m.
	TTL time.Duration

	// GenStore holds per-path generations. Default: in-process store swept
	// every CleanupInterval, forgetting paths idle for GenRetention.
	GenStore        genstore.GenStore
	CleanupInterval time.Duration
	GenRetention    time.Duration

	ComputeSetCost SetCostFunc

	Logger confita.Logger
	Hooks  Hooks

	// Disabled turns every operation into a no-op miss.
	Disabled bool
}
