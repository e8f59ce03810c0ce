// Package codec encodes cached secret values for storage in a provider.
//
// Cached values are whatever a secret store returned for a key: strings,
// booleans, numbers, and occasionally nested maps or lists. A codec must
// round-trip these without changing their kind, so that a value served from
// the cache casts exactly like the freshly loaded one. Msgpack is the default.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
