package confita

// Coalesce returns def when v is the zero value of T - otherwise v.
// Backends use it to fill Config defaults.
func Coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
