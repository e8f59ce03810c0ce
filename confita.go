package confita

import (
	"context"
	"fmt"
	"strings"
)

// Config configures a resolver.
type Config struct {
	// Backends in increasing order of precedence: the last backend holding a
	// defined value for a key wins.
	Backends []Backend

	// CaseInsensitive also tries the upper- and lower-cased spelling of a key
	// in every backend. The zero value resolves keys exactly as given.
	CaseInsensitive bool

	Logger Logger // if nil, NopLogger is used
}

// Confita resolves keys over an ordered list of backends.
type Confita struct {
	backends        []Backend
	caseInsensitive bool
	log             Logger
}

// New validates cfg and returns a resolver.
func New(cfg Config) (*Confita, error) {
	backends := make([]Backend, len(cfg.Backends))
	for i, b := range cfg.Backends {
		if b == nil {
			return nil, fmt.Errorf("confita: backend %d is nil", i)
		}
		backends[i] = b
	}
	return &Confita{
		backends:        backends,
		caseInsensitive: cfg.CaseInsensitive,
		log:             Coalesce[Logger](cfg.Logger, NopLogger{}),
	}, nil
}

// Backends returns a copy of the backend list in precedence order.
func (c *Confita) Backends() []Backend {
	out := make([]Backend, len(c.backends))
	copy(out, c.backends)
	return out
}

// Get returns the last defined value of key across the backends. A backend
// error aborts the lookup.
func (c *Confita) Get(ctx context.Context, key string, opts Options) (any, bool, error) {
	var (
		value any
		found bool
	)
	for _, b := range c.backends {
		v, ok, err := c.candidate(ctx, b, key, opts)
		if err != nil {
			return nil, false, &BackendError{Backend: b.Name(), Key: key, Err: err}
		}
		if !ok {
			c.log.Debug("backend read", Fields{"backend": b.Name(), "key": key, "found": false})
			continue
		}
		c.log.Debug("backend read", Fields{"backend": b.Name(), "key": key, "value": v, "found": true})
		value, found = v, true
	}
	c.log.Debug("final value", Fields{"key": key, "value": value, "found": found})
	return value, found, nil
}

// candidate is the value b contributes for key. In case-insensitive mode the
// key is tried as given, upper-cased, then lower-cased; the first defined
// spelling wins.
func (c *Confita) candidate(ctx context.Context, b Backend, key string, opts Options) (any, bool, error) {
	for _, k := range c.spellings(key) {
		v, ok, err := b.Get(ctx, k, opts)
		if err != nil || ok {
			return v, ok, err
		}
	}
	return nil, false, nil
}

func (c *Confita) spellings(key string) []string {
	if !c.caseInsensitive {
		return []string{key}
	}
	out := []string{key}
	for _, k := range []string{strings.ToUpper(key), strings.ToLower(key)} {
		dup := false
		for _, seen := range out {
			if k == seen {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, k)
		}
	}
	return out
}

// GetStruct resolves every key of schema. Keys that no backend defines map
// to nil. Backends are asked for the whole schema at once through their
// GetStruct; case-insensitive resolution retries the still-undefined keys
// with their upper- and lower-cased spellings, as Get does.
func (c *Confita) GetStruct(ctx context.Context, schema Schema, opts Options) (map[string]any, error) {
	out := make(map[string]any, len(schema))
	for k := range schema {
		out[k] = nil
	}
	for _, b := range c.backends {
		got, err := c.structCandidate(ctx, b, schema, opts)
		if err != nil {
			return nil, &BackendError{Backend: b.Name(), Err: err}
		}
		for k, v := range got {
			if v == nil {
				continue
			}
			if _, ok := schema[k]; !ok {
				continue
			}
			c.log.Debug("backend read", Fields{"backend": b.Name(), "key": k, "value": v})
			out[k] = v
		}
	}
	c.log.Debug("final struct", Fields{"keys": len(schema), "value": out})
	return out, nil
}

func (c *Confita) structCandidate(ctx context.Context, b Backend, schema Schema, opts Options) (map[string]any, error) {
	got, err := b.GetStruct(ctx, schema, opts)
	if err != nil || !c.caseInsensitive {
		return got, err
	}
	if got == nil {
		got = make(map[string]any, len(schema))
	}
	for _, fold := range []func(string) string{strings.ToUpper, strings.ToLower} {
		// variant spelling -> schema keys still undefined in this backend
		pending := make(map[string][]string)
		variant := make(Schema)
		for k, t := range schema {
			if got[k] != nil {
				continue
			}
			vk := fold(k)
			if vk == k {
				continue
			}
			pending[vk] = append(pending[vk], k)
			variant[vk] = t
		}
		if len(variant) == 0 {
			continue
		}
		more, err := b.GetStruct(ctx, variant, opts)
		if err != nil {
			return nil, err
		}
		for vk, v := range more {
			if v == nil {
				continue
			}
			for _, k := range pending[vk] {
				if got[k] == nil {
					got[k] = v
				}
			}
		}
	}
	return got, nil
}

// GetString resolves key as a string.
func (c *Confita) GetString(ctx context.Context, key string, opts Options) (string, bool, error) {
	opts.Type = String
	v, ok, err := c.Get(ctx, key, opts)
	if err != nil || !ok {
		return "", ok, err
	}
	x, isT := v.(string)
	if !isT {
		return "", false, &CastError{Value: v, Type: String, Err: ErrTypeMismatch}
	}
	return x, true, nil
}

// GetBool resolves key as a bool.
func (c *Confita) GetBool(ctx context.Context, key string, opts Options) (bool, bool, error) {
	opts.Type = Bool
	v, ok, err := c.Get(ctx, key, opts)
	if err != nil || !ok {
		return false, ok, err
	}
	x, isT := v.(bool)
	if !isT {
		return false, false, &CastError{Value: v, Type: Bool, Err: ErrTypeMismatch}
	}
	return x, true, nil
}

// GetInt resolves key as an int.
func (c *Confita) GetInt(ctx context.Context, key string, opts Options) (int, bool, error) {
	opts.Type = Int
	v, ok, err := c.Get(ctx, key, opts)
	if err != nil || !ok {
		return 0, ok, err
	}
	x, isT := v.(int)
	if !isT {
		return 0, false, &CastError{Value: v, Type: Int, Err: ErrTypeMismatch}
	}
	return x, true, nil
}

// GetFloat resolves key as a float64.
func (c *Confita) GetFloat(ctx context.Context, key string, opts Options) (float64, bool, error) {
	opts.Type = Float
	v, ok, err := c.Get(ctx, key, opts)
	if err != nil || !ok {
		return 0, ok, err
	}
	x, isT := v.(float64)
	if !isT {
		return 0, false, &CastError{Value: v, Type: Float, Err: ErrTypeMismatch}
	}
	return x, true, nil
}
