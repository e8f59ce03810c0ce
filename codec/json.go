package codec

import (
	"bytes"
	"encoding/json"
)

// JSON encodes values with encoding/json. Numbers decode as json.Number so
// integers are not widened to float64; kvcache normalises them back to int
// or float64.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	err := dec.Decode(&v)
	return v, err
}
