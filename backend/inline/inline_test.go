package inline

import (
	"context"
	"testing"

	"github.com/unkn0wn-root/confita"
)

func checkDocument(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()
	cases := []struct {
		key  string
		typ  confita.Type
		want any
	}{
		{"lower", confita.String, "cased"},
		{"upper", confita.String, "CASED"},
		{"int", confita.Int, 1},
		{"float", confita.Float, 1.0},
		{"bool", confita.Bool, true},
	}
	for _, tc := range cases {
		v, ok, err := b.Get(ctx, tc.key, confita.Options{Type: tc.typ})
		if err != nil || !ok || v != tc.want {
			t.Fatalf("%s: got %v (%T) ok=%v err=%v, want %v", tc.key, v, v, ok, err, tc.want)
		}
	}
	for _, key := range []string{"none", "UNKNOWN"} {
		if v, ok, err := b.Get(ctx, key, confita.Options{}); err != nil || ok || v != nil {
			t.Fatalf("%s: expected undefined, got %v ok=%v err=%v", key, v, ok, err)
		}
	}
}

func TestJSON(t *testing.T) {
	checkDocument(t, New(`{"lower": "cased", "upper": "CASED", "int": 1, "float": 1.0, "bool": true, "none": null}`))
}

func TestJSONSingleQuotes(t *testing.T) {
	checkDocument(t, New(`  {'lower': 'cased','upper': 'CASED','int': 1,'float': 1.0,'bool': true,'none': null} `))
}

func TestYAML(t *testing.T) {
	checkDocument(t, New("lower: cased\nupper: CASED\nint: 1\nfloat: 1.0\nbool: true\nnone: null"))
}

func TestEdgeCases(t *testing.T) {
	empty := ""
	for name, b := range map[string]*Backend{
		"empty":       New(""),
		"empty dict":  New("{}"),
		"spaced dict": New(" {} "),
		"scalar":      New("just words"),
		"nil":         NewPtr(nil),
		"empty ptr":   NewPtr(&empty),
		"list":        New("[1, 2]"),
		"broken json": New(`{"a": `),
	} {
		if _, ok, err := b.Get(context.Background(), "UNKNOWN", confita.Options{}); ok || err != nil {
			t.Fatalf("%s: expected undefined, ok=%v err=%v", name, ok, err)
		}
	}
}

func TestGetStruct(t *testing.T) {
	b := New(`{"a": "x", "n": "7"}`)
	got, err := b.GetStruct(context.Background(), confita.Schema{"a": confita.String, "n": confita.Int, "z": confita.Bool}, confita.Options{})
	if err != nil {
		t.Fatalf("GetStruct: %v", err)
	}
	if got["a"] != "x" || got["n"] != 7 || got["z"] != nil || len(got) != 3 {
		t.Fatalf("unexpected struct: %v", got)
	}
}
