package confita_test

import (
	"context"
	"testing"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/backend/dict"
	"github.com/unkn0wn-root/confita/backend/env"
	"github.com/unkn0wn-root/confita/backend/file"
	"github.com/unkn0wn-root/confita/backend/vault"
)

type storeReader map[string]map[string]any

func (s storeReader) ReadWithContext(_ context.Context, path string) (*vaultapi.Secret, error) {
	d, ok := s[path]
	if !ok {
		return nil, nil
	}
	return &vaultapi.Secret{Data: d}, nil
}

func TestLayeredSources(t *testing.T) {
	vb, err := vault.New(vault.Config{
		Logger:           confita.NopLogger{},
		DefaultPath:      "path1",
		ReadinessTimeout: time.Second,
		Reader:           storeReader{"path1": {"K_1": "secret_1", "K_2": "secret_2", "K_3": "secret_3"}},
		HealthCheck:      func(context.Context) (int, error) { return 200, nil },
	})
	if err != nil {
		t.Fatalf("vault.New: %v", err)
	}
	fb, err := file.New("testdata/vars.yaml")
	if err != nil {
		t.Fatalf("file.New: %v", err)
	}
	defer fb.Close()

	c, err := confita.New(confita.Config{
		Backends: []confita.Backend{
			vb,
			fb,
			dict.New(map[string]any{"K_5": "secret_5"}),
			env.FromMap(map[string]string{"K_3": "secret_3_from_environment"}),
		},
	})
	if err != nil {
		t.Fatalf("confita.New: %v", err)
	}
	ctx := context.Background()

	for key, want := range map[string]any{
		"K_1": "secret_1",
		"K_2": "secret_2_from_yml",
		"K_4": "secret_4",
		"K_5": "secret_5",
		"K_3": "secret_3_from_environment",
	} {
		v, ok, err := c.Get(ctx, key, confita.Options{})
		if err != nil || !ok || v != want {
			t.Fatalf("%s: got %v ok=%v err=%v, want %v", key, v, ok, err, want)
		}
	}
	if v, ok, err := c.Get(ctx, "K_UNKNOWN", confita.Options{}); v != nil || ok || err != nil {
		t.Fatalf("K_UNKNOWN: got %v ok=%v err=%v", v, ok, err)
	}
	if v, _, _ := c.Get(ctx, "K_9", confita.Options{Type: confita.Bool}); v != true {
		t.Fatalf("K_9: %v", v)
	}

	got, err := c.GetStruct(ctx, confita.Schema{"K_1": confita.String, "K_3": confita.String, "K_6": confita.String}, confita.Options{})
	if err != nil {
		t.Fatalf("GetStruct: %v", err)
	}
	if got["K_1"] != "secret_1" || got["K_3"] != "secret_3_from_environment" || got["K_6"] != nil {
		t.Fatalf("unexpected struct: %v", got)
	}
}

func TestBackendOrder(t *testing.T) {
	bk1 := dict.New(map[string]any{"K_1": "bk_1"})
	bk2 := dict.New(map[string]any{"K_1": "bk_2"})
	ctx := context.Background()

	c, _ := confita.New(confita.Config{Backends: []confita.Backend{bk1, bk2}})
	if v, _, _ := c.Get(ctx, "K_1", confita.Options{}); v != "bk_2" {
		t.Fatalf("got %v", v)
	}
	c, _ = confita.New(confita.Config{Backends: []confita.Backend{bk2, bk1}})
	if v, _, _ := c.Get(ctx, "K_1", confita.Options{}); v != "bk_1" {
		t.Fatalf("got %v", v)
	}
}
