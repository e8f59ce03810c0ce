// Package inline provides a backend over a literal JSON or YAML string,
// such as a value passed on the command line.
package inline

import (
	"context"
	"strings"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/internal/parse"
)

// Backend serves keys from a parsed string.
type Backend struct {
	kv map[string]any
}

var _ confita.Backend = (*Backend)(nil)

// New parses s as JSON, then as JSON with single quotes turned into double
// quotes, then as YAML. Input that parses as none of these yields an empty
// mapping.
func New(s string) *Backend {
	return &Backend{kv: decode(s)}
}

// NewPtr is New for optional input; nil yields an empty mapping.
func NewPtr(s *string) *Backend {
	if s == nil {
		return &Backend{kv: map[string]any{}}
	}
	return New(*s)
}

func decode(s string) map[string]any {
	if kv, err := parse.JSON([]byte(s)); err == nil {
		return kv
	}
	quoted := strings.ReplaceAll(strings.TrimSpace(s), "'", `"`)
	if kv, err := parse.JSON([]byte(quoted)); err == nil {
		return kv
	}
	if kv, err := parse.YAML([]byte(s)); err == nil {
		return kv
	}
	return map[string]any{}
}

func (b *Backend) Name() string { return "string" }

func (b *Backend) Get(_ context.Context, key string, opts confita.Options) (any, bool, error) {
	return confita.Lookup(b.kv, key, opts.Type)
}

func (b *Backend) GetStruct(ctx context.Context, schema confita.Schema, opts confita.Options) (map[string]any, error) {
	return confita.StructFrom(ctx, b, schema, opts)
}
