// Package dict provides a backend over a fixed in-memory mapping.
package dict

import (
	"context"

	"github.com/unkn0wn-root/confita"
)

// Backend serves keys from a mapping captured at construction.
type Backend struct {
	kv map[string]any
}

var _ confita.Backend = (*Backend)(nil)

// New copies kv; later changes to kv are not observed.
func New(kv map[string]any) *Backend {
	cp := make(map[string]any, len(kv))
	for k, v := range kv {
		cp[k] = v
	}
	return &Backend{kv: cp}
}

// FromStrings is New for string-only mappings.
func FromStrings(kv map[string]string) *Backend {
	cp := make(map[string]any, len(kv))
	for k, v := range kv {
		cp[k] = v
	}
	return &Backend{kv: cp}
}

func (b *Backend) Name() string { return "dict" }

func (b *Backend) Get(_ context.Context, key string, opts confita.Options) (any, bool, error) {
	return confita.Lookup(b.kv, key, opts.Type)
}

func (b *Backend) GetStruct(ctx context.Context, schema confita.Schema, opts confita.Options) (map[string]any, error) {
	return confita.StructFrom(ctx, b, schema, opts)
}
