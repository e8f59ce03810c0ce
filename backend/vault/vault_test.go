package vault

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/kvcache"
)

type stubReader struct {
	mu    sync.Mutex
	data  map[string]map[string]any
	err   error
	reads map[string]int
}

func newStubReader(data map[string]map[string]any) *stubReader {
	return &stubReader{data: data, reads: make(map[string]int)}
}

func (s *stubReader) ReadWithContext(_ context.Context, path string) (*vaultapi.Secret, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[path]++
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.data[path]
	if !ok {
		return nil, nil
	}
	return &vaultapi.Secret{Data: d}, nil
}

func (s *stubReader) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[path]
}

func (s *stubReader) set(path, key string, v any) {
	s.mu.Lock()
	s.data[path][key] = v
	s.mu.Unlock()
}

func alwaysHealthy(context.Context) (int, error) { return 200, nil }
func neverHealthy(context.Context) (int, error)  { return 503, nil }

func testStore() map[string]map[string]any {
	return map[string]map[string]any{
		"path1": {"k_1": "secret_1", "k_2": "secret_2", "flag": "true", "port": json.Number("8080"), "none": nil},
		"path2": {"k_1": "other_1"},
	}
}

func newTestBackend(t *testing.T, r Reader, mod func(*Config)) *Backend {
	t.Helper()
	cfg := Config{
		Logger:           confita.NopLogger{},
		DefaultPath:      "path1",
		ReadinessTimeout: 200 * time.Millisecond,
		PollInterval:     50 * time.Millisecond,
		Reader:           r,
		HealthCheck:      alwaysHealthy,
	}
	if mod != nil {
		mod(&cfg)
	}
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b
}

func withCache(c *Config) { c.Cache = &kvcache.Options{} }

func TestNewRequiresLogger(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilLogger) {
		t.Fatalf("expected ErrNilLogger, got %v", err)
	}
}

func TestDefaults(t *testing.T) {
	b, err := New(Config{Logger: confita.NopLogger{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if b.Address() != DefaultAddress || b.timeout != DefaultReadinessTimeout || b.interval != DefaultPollInterval {
		t.Fatalf("unexpected defaults: %s %s %s", b.Address(), b.timeout, b.interval)
	}
	if b.CacheEnabled() {
		t.Fatal("cache must be off by default")
	}
	if _, ok := b.reader.(*vaultapi.Logical); !ok {
		t.Fatalf("default reader should be *vaultapi.Logical, got %T", b.reader)
	}
	if b.Name() != "vault" {
		t.Fatalf("unexpected name %q", b.Name())
	}
}

func TestReadStore(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, nil)
	ctx := context.Background()

	kv, err := b.ReadStore(ctx, "path1")
	if err != nil {
		t.Fatalf("ReadStore: %v", err)
	}
	if kv["k_1"] != "secret_1" || kv["port"] != 8080 {
		t.Fatalf("unexpected store: %v", kv)
	}

	kv, err = b.ReadStore(ctx, "missing")
	if err != nil || len(kv) != 0 {
		t.Fatalf("missing path: kv=%v err=%v", kv, err)
	}

	r.err = errors.New("connection refused")
	_, err = b.ReadStore(ctx, "path1")
	var re *ReadError
	if !errors.As(err, &re) || re.Path != "path1" {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if !errors.Is(err, ErrBackendUnavailable) || !errors.Is(err, confita.ErrSourceUnavailable) {
		t.Fatalf("ReadError must unwrap to the unavailable sentinels: %v", err)
	}
	if r.count("path1") != 2 {
		t.Fatalf("reads are not retried: %d", r.count("path1"))
	}
}

func TestKVv2(t *testing.T) {
	r := newStubReader(map[string]map[string]any{
		"secret/data/app": {
			"data":     map[string]any{"token": "t0k3n"},
			"metadata": map[string]any{"version": json.Number("3")},
		},
		"secret/data/empty": {"metadata": map[string]any{}},
	})
	b := newTestBackend(t, r, func(c *Config) { c.KVv2 = true; c.DefaultPath = "secret/data/app" })
	ctx := context.Background()

	v, ok, err := b.Get(ctx, "token", confita.Options{})
	if err != nil || !ok || v != "t0k3n" {
		t.Fatalf("token: v=%v ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := b.Get(ctx, "metadata", confita.Options{}); ok {
		t.Fatal("KV v2 metadata must not leak into the key space")
	}
	if kv, err := b.ReadStore(ctx, "secret/data/empty"); err != nil || len(kv) != 0 {
		t.Fatalf("empty v2 store: %v %v", kv, err)
	}
}

func TestGetCasts(t *testing.T) {
	b := newTestBackend(t, newStubReader(testStore()), nil)
	ctx := context.Background()

	if v, ok, err := b.Get(ctx, "flag", confita.Options{Type: confita.Bool}); err != nil || !ok || v != true {
		t.Fatalf("flag: v=%v ok=%v err=%v", v, ok, err)
	}
	if v, ok, err := b.Get(ctx, "port", confita.Options{Type: confita.Int}); err != nil || !ok || v != 8080 {
		t.Fatalf("port: v=%v ok=%v err=%v", v, ok, err)
	}
	if _, _, err := b.Get(ctx, "port", confita.Options{}); !errors.Is(err, confita.ErrTypeMismatch) {
		t.Fatalf("int read as string must mismatch, got %v", err)
	}
	if _, ok, err := b.Get(ctx, "none", confita.Options{}); ok || err != nil {
		t.Fatalf("null secret: ok=%v err=%v", ok, err)
	}
	if v, _, _ := b.Get(ctx, "k_1", confita.Options{Path: "path2"}); v != "other_1" {
		t.Fatalf("path override: %v", v)
	}
}

func TestUnsupportedTypeSkipsRead(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, nil)
	if _, _, err := b.Get(context.Background(), "k_1", confita.Options{Type: confita.Type(42)}); !errors.Is(err, confita.ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	if r.count("path1") != 0 {
		t.Fatal("store must not be read for an unsupported type")
	}
}

func TestNoPath(t *testing.T) {
	b := newTestBackend(t, newStubReader(testStore()), func(c *Config) { c.DefaultPath = "" })
	ctx := context.Background()
	if _, _, err := b.Get(ctx, "k_1", confita.Options{}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("Get: expected ErrNoPath, got %v", err)
	}
	if _, err := b.GetStruct(ctx, confita.Schema{"k_1": confita.String}, confita.Options{}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("GetStruct: expected ErrNoPath, got %v", err)
	}
	if _, _, err := b.GetKey(ctx, KeyRef{Key: "k_1"}); !errors.Is(err, ErrNoPath) {
		t.Fatalf("GetKey: expected ErrNoPath, got %v", err)
	}
}

func TestNotReady(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, func(c *Config) {
		c.HealthCheck = neverHealthy
		c.ReadinessTimeout = 60 * time.Millisecond
		c.PollInterval = 20 * time.Millisecond
	})
	ctx := context.Background()

	_, _, err := b.Get(ctx, "k_1", confita.Options{})
	if !errors.Is(err, ErrAgentNotReady) || !errors.Is(err, confita.ErrSourceUnavailable) {
		t.Fatalf("expected ErrAgentNotReady, got %v", err)
	}
	if _, err := b.ReadStoreWhenReady(ctx, "path1"); !errors.Is(err, ErrAgentNotReady) {
		t.Fatalf("ReadStoreWhenReady: %v", err)
	}
	if _, err := b.GetMultipleKeysWhenReady(ctx, map[string]KeyRef{"a": {Key: "k_1"}}); !errors.Is(err, ErrAgentNotReady) {
		t.Fatalf("GetMultipleKeysWhenReady: %v", err)
	}
	if r.count("path1") != 0 {
		t.Fatal("store must not be read when the agent is not ready")
	}
}

func TestGetWithoutCacheReadsEveryTime(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if v, _, _ := b.Get(ctx, "k_1", confita.Options{}); v != "secret_1" {
			t.Fatalf("k_1: %v", v)
		}
	}
	if r.count("path1") != 3 {
		t.Fatalf("expected 3 reads, got %d", r.count("path1"))
	}
}

func TestGetWithCacheLoadsPathOnce(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, withCache)
	ctx := context.Background()

	if v, ok, err := b.Get(ctx, "k_1", confita.Options{}); err != nil || !ok || v != "secret_1" {
		t.Fatalf("k_1: v=%v ok=%v err=%v", v, ok, err)
	}
	if v, _, _ := b.Get(ctx, "k_2", confita.Options{}); v != "secret_2" {
		t.Fatalf("k_2: %v", v)
	}
	if v, _, _ := b.Get(ctx, "port", confita.Options{Type: confita.Int}); v != 8080 {
		t.Fatalf("port from cache: %v", v)
	}
	if r.count("path1") != 1 {
		t.Fatalf("expected a single store load, got %d", r.count("path1"))
	}

	// a key absent from the store is not found, and is reloaded each time
	if _, ok, err := b.Get(ctx, "absent", confita.Options{}); ok || err != nil {
		t.Fatalf("absent: ok=%v err=%v", ok, err)
	}
	if r.count("path1") != 2 {
		t.Fatalf("expected reload for an absent key, got %d", r.count("path1"))
	}
}

func TestCacheIsKeyedByPath(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, withCache)
	ctx := context.Background()

	v1, _, _ := b.Get(ctx, "k_1", confita.Options{Path: "path1"})
	v2, _, _ := b.Get(ctx, "k_1", confita.Options{Path: "path2"})
	v1again, _, _ := b.Get(ctx, "k_1", confita.Options{Path: "path1"})
	if v1 != "secret_1" || v2 != "other_1" || v1again != "secret_1" {
		t.Fatalf("paths collided: %v %v %v", v1, v2, v1again)
	}
	if (KeyRef{Path: "path1", Key: "k_1"}).CacheKey() == (KeyRef{Path: "path2", Key: "k_1"}).CacheKey() {
		t.Fatal("cache keys must include the path")
	}
}

func TestInvalidateReloads(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, withCache)
	ctx := context.Background()

	_, _, _ = b.Get(ctx, "k_1", confita.Options{})
	r.set("path1", "k_1", "rotated")
	if v, _, _ := b.Get(ctx, "k_1", confita.Options{}); v != "secret_1" {
		t.Fatalf("expected cached value before invalidation, got %v", v)
	}

	if err := b.Invalidate(ctx, ""); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if v, _, _ := b.Get(ctx, "k_1", confita.Options{}); v != "rotated" {
		t.Fatalf("expected reloaded value, got %v", v)
	}
	if r.count("path1") != 2 {
		t.Fatalf("expected 2 loads, got %d", r.count("path1"))
	}
}

func TestCacheStore(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, withCache)
	ctx := context.Background()

	if err := b.CacheStore(ctx, "path_to_kv", map[string]any{"unseen": "sofar", "other": "one"}); err != nil {
		t.Fatalf("CacheStore: %v", err)
	}
	for k, want := range map[string]string{"unseen": "sofar", "other": "one"} {
		if v, _, _ := b.Get(ctx, k, confita.Options{Path: "path_to_kv"}); v != want {
			t.Fatalf("%s: got %v", k, v)
		}
	}
	if r.count("path_to_kv") != 0 {
		t.Fatal("cached store must not be read")
	}
}

func TestGetStructBypassesCache(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, withCache)
	ctx := context.Background()

	schema := confita.Schema{"k_1": confita.String, "flag": confita.Bool, "port": confita.Int, "absent": confita.String}
	for i := 0; i < 2; i++ {
		got, err := b.GetStruct(ctx, schema, confita.Options{})
		if err != nil {
			t.Fatalf("GetStruct: %v", err)
		}
		if got["k_1"] != "secret_1" || got["flag"] != true || got["port"] != 8080 || got["absent"] != nil || len(got) != 4 {
			t.Fatalf("unexpected struct: %v", got)
		}
	}
	if r.count("path1") != 2 {
		t.Fatalf("GetStruct must read the store each call, got %d", r.count("path1"))
	}
	// and leave the cache empty
	_, _, _ = b.Get(ctx, "k_1", confita.Options{})
	if r.count("path1") != 3 {
		t.Fatalf("expected a cache miss after GetStruct, got %d reads", r.count("path1"))
	}
}

func TestGetMultipleKeysWithoutCache(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, nil)
	ctx := context.Background()

	got, err := b.GetMultipleKeys(ctx, map[string]KeyRef{
		"var_1": {Path: "path1", Key: "k_1"},
		"var_2": {Path: "path2", Key: "k_1"},
		"var_3": {Path: "path1", Key: "absent"},
		"var_4": {Key: "k_2"},
	})
	if err != nil {
		t.Fatalf("GetMultipleKeys: %v", err)
	}
	if got["var_1"] != "secret_1" || got["var_2"] != "other_1" || got["var_3"] != nil || got["var_4"] != "secret_2" {
		t.Fatalf("unexpected batch: %v", got)
	}
	if _, present := got["var_3"]; !present {
		t.Fatal("missing secrets must be present as nil")
	}

	r.err = errors.New("boom")
	if _, err := b.GetMultipleKeys(ctx, map[string]KeyRef{"a": {Key: "k_1"}}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected batch abort, got %v", err)
	}
}

func TestGetMultipleKeysWithCache(t *testing.T) {
	r := newStubReader(testStore())
	b := newTestBackend(t, r, withCache)
	ctx := context.Background()

	refs := map[string]KeyRef{
		"a": {Path: "path1", Key: "k_1"},
		"b": {Path: "path1", Key: "k_2"},
		"c": {Path: "path2", Key: "k_1"},
		"d": {Path: "path2", Key: "absent"},
	}
	for i := 0; i < 2; i++ {
		got, err := b.GetMultipleKeys(ctx, refs)
		if err != nil {
			t.Fatalf("GetMultipleKeys: %v", err)
		}
		if got["a"] != "secret_1" || got["b"] != "secret_2" || got["c"] != "other_1" || got["d"] != nil || len(got) != 4 {
			t.Fatalf("unexpected batch: %v", got)
		}
	}
	// path2 is reloaded on the second pass because "d" is never cached
	if r.count("path1") != 1 || r.count("path2") != 2 {
		t.Fatalf("unexpected loads: path1=%d path2=%d", r.count("path1"), r.count("path2"))
	}

	r.err = errors.New("boom")
	if _, err := b.GetMultipleKeys(ctx, map[string]KeyRef{"x": {Path: "path3", Key: "k"}}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected load failure to abort the batch, got %v", err)
	}
}

func TestInvalidateWithoutCache(t *testing.T) {
	b := newTestBackend(t, newStubReader(testStore()), nil)
	if err := b.Invalidate(context.Background(), "path1"); err != nil {
		t.Fatalf("Invalidate without cache: %v", err)
	}
	if err := b.CacheStore(context.Background(), "path1", map[string]any{"a": "b"}); err != nil {
		t.Fatalf("CacheStore without cache: %v", err)
	}
}
