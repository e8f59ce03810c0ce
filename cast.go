package confita

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type is the target type of a lookup.
type Type uint8

const (
	String Type = iota // default
	Bool
	Int
	Float
)

func (t Type) String() string {
	switch t {
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// Valid reports whether t is one of the supported lookup types.
func (t Type) Valid() bool { return t <= Float }

// ParseType maps "string", "bool", "int" and "float" (plus a few common
// aliases) to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str":
		return String, nil
	case "bool", "boolean":
		return Bool, nil
	case "int", "integer":
		return Int, nil
	case "float", "float64", "number":
		return Float, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, s)
}

// Cast converts a raw backend value into t.
//
// A nil raw value yields nil. Values already of the target kind are returned
// as is (integers normalised to int, floats to float64). Only strings are
// converted: a string becomes true when its lower-cased form contains a "t",
// and numbers are parsed with strconv. Any other combination is a mismatch.
func Cast(raw any, t Type) (any, error) {
	if !t.Valid() {
		return nil, &CastError{Value: raw, Type: t, Err: ErrUnsupportedType}
	}
	if raw == nil {
		return nil, nil
	}

	v, kind := normalize(raw)
	if kind == t {
		return v, nil
	}

	s, ok := v.(string)
	if !ok {
		return nil, &CastError{Value: raw, Type: t, Err: ErrTypeMismatch}
	}
	switch t {
	case Bool:
		return strings.Contains(strings.ToLower(s), "t"), nil
	case Int:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return nil, &CastError{Value: raw, Type: t, Err: ErrConversion, Cause: err}
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, &CastError{Value: raw, Type: t, Err: ErrConversion, Cause: err}
		}
		return f, nil
	}
	// unreachable: String handled by kind == t
	return nil, &CastError{Value: raw, Type: t, Err: ErrTypeMismatch}
}

// normalize reports the lookup kind of v. Unsigned values beyond the int
// range are floats, as in internal/parse. Kinds that are not one of the four
// lookup types report an invalid Type so they never match a target.
func normalize(v any) (any, Type) {
	switch x := v.(type) {
	case string:
		return x, String
	case bool:
		return x, Bool
	case int:
		return x, Int
	case int8:
		return int(x), Int
	case int16:
		return int(x), Int
	case int32:
		return int(x), Int
	case int64:
		return int(x), Int
	case uint8:
		return int(x), Int
	case uint16:
		return int(x), Int
	case uint32:
		return int(x), Int
	case uint64:
		if x > math.MaxInt64 {
			return float64(x), Float
		}
		return int(x), Int
	case uint:
		if uint64(x) > math.MaxInt64 {
			return float64(x), Float
		}
		return int(x), Int
	case float32:
		return float64(x), Float
	case float64:
		return x, Float
	}
	return v, Type(255)
}

// FormatValue renders a resolved value the way it would appear in an
// environment variable; nil renders as "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
