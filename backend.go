package confita

import "context"

// Options tune a single lookup. The zero value asks for a string from the
// backend's default location.
type Options struct {
	Type Type   // target type; String by default
	Path string // remote store path override; ignored by local backends
}

// Schema maps key names to their target types for whole-structure reads.
type Schema map[string]Type

// Keys returns the schema keys in no particular order.
func (s Schema) Keys() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// Backend is a read-only key-value source.
//
// Get returns (value, true, nil) when the key is defined, (nil, false, nil)
// when it is missing or null, and a non-nil error when the source failed or
// the value could not be cast to opts.Type. An empty string is a defined value.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string, opts Options) (any, bool, error)
	GetStruct(ctx context.Context, schema Schema, opts Options) (map[string]any, error)
}

// StructFrom is the default GetStruct: one Get per schema key using the
// schema-declared type. Every schema key is present in the result; undefined
// keys map to nil.
func StructFrom(ctx context.Context, b Backend, schema Schema, opts Options) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	for key, t := range schema {
		o := opts
		o.Type = t
		v, ok, err := b.Get(ctx, key, o)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = v
		} else {
			out[key] = nil
		}
	}
	return out, nil
}

// Lookup reads key from a plain mapping and casts it. Null entries are
// reported as missing.
func Lookup(kv map[string]any, key string, t Type) (any, bool, error) {
	raw, ok := kv[key]
	if !ok || raw == nil {
		// still validate t so unsupported types fail consistently
		if !t.Valid() {
			return nil, false, &CastError{Type: t, Err: ErrUnsupportedType}
		}
		return nil, false, nil
	}
	v, err := Cast(raw, t)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}
