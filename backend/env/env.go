// Package env provides a backend over process environment variables.
//
// Keys are looked up by exact name through an injected lookup function, so
// tests can resolve against a snapshot instead of mutating the real process
// environment. Case-insensitive matching is the resolver's job, not this backend's.
package env

import (
	"context"
	"os"
	"strings"

	"github.com/unkn0wn-root/confita"
)

// LookupFunc reports the value of an environment variable and whether it is set.
type LookupFunc func(string) (string, bool)

// Backend reads keys from the environment.
type Backend struct {
	lookup LookupFunc
	prefix string
}

var _ confita.Backend = (*Backend)(nil)

// Option configures the environment backend.
type Option func(*Backend)

// WithLookup overrides the lookup (os.LookupEnv by default).
func WithLookup(fn LookupFunc) Option {
	return func(b *Backend) {
		if fn != nil {
			b.lookup = fn
		}
	}
}

// WithPrefix prepends prefix to every key before lookup, e.g. "APP_".
func WithPrefix(prefix string) Option {
	return func(b *Backend) { b.prefix = prefix }
}

// New returns a backend reading the live process environment unless
// WithLookup says otherwise.
func New(opts ...Option) *Backend {
	b := &Backend{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromMap returns a backend over a fixed snapshot.
func FromMap(vars map[string]string, opts ...Option) *Backend {
	snapshot := make(map[string]string, len(vars))
	for k, v := range vars {
		snapshot[k] = v
	}
	lookup := func(k string) (string, bool) {
		v, ok := snapshot[k]
		return v, ok
	}
	return New(append([]Option{WithLookup(lookup)}, opts...)...)
}

// FromEnviron returns a backend over "KEY=value" pairs such as os.Environ().
// Entries without "=" are ignored; the last duplicate wins.
func FromEnviron(environ []string, opts ...Option) *Backend {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = v
	}
	return FromMap(vars, opts...)
}

// Snapshot captures the current process environment.
func Snapshot(opts ...Option) *Backend { return FromEnviron(os.Environ(), opts...) }

func (b *Backend) Name() string { return "environment" }

func (b *Backend) Get(_ context.Context, key string, opts confita.Options) (any, bool, error) {
	v, ok := b.lookup(b.prefix + key)
	if !ok {
		return confita.Lookup(nil, key, opts.Type)
	}
	out, err := confita.Cast(v, opts.Type)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (b *Backend) GetStruct(ctx context.Context, schema confita.Schema, opts confita.Options) (map[string]any, error) {
	return confita.StructFrom(ctx, b, schema, opts)
}
