// Package parse turns JSON or YAML documents into flat key-value mappings
// for the file and inline backends.
package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping is returned when a document parses but its root is not a mapping.
var ErrNotMapping = errors.New("parse: document root is not a mapping")

// Mapping parses data as JSON, then as YAML.
func Mapping(data []byte) (map[string]any, error) {
	kv, jerr := JSON(data)
	if jerr == nil {
		return kv, nil
	}
	kv, yerr := YAML(data)
	if yerr == nil {
		return kv, nil
	}
	return nil, fmt.Errorf("parse: json: %v; yaml: %w", jerr, yerr)
}

// JSON parses a single JSON object. Integral numbers become int, other
// numbers float64.
func JSON(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("parse: trailing data after json document")
	}
	m, ok := Normalize(v).(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}

// YAML parses a YAML document whose root is a mapping.
func YAML(data []byte) (map[string]any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	m, ok := Normalize(v).(map[string]any)
	if !ok {
		return nil, ErrNotMapping
	}
	return m, nil
}

// Normalize converts decoder output into plain Go values: json.Number and
// every integer kind into int or float64, float32 into float64, and maps with
// non-string keys into map[string]any.
func Normalize(v any) any {
	switch x := v.(type) {
	case int8:
		return int(x)
	case int16:
		return int(x)
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		if x > math.MaxInt64 {
			return float64(x)
		}
		return int(x)
	case uint:
		if uint64(x) > math.MaxInt64 {
			return float64(x)
		}
		return int(x)
	case float32:
		return float64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return int(n)
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = Normalize(e)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	case []any:
		for i, e := range x {
			x[i] = Normalize(e)
		}
		return x
	default:
		return v
	}
}
