// Package vault provides a backend over a HashiCorp Vault key-value store,
// usually reached through a local Vault agent.
//
// Every read waits for the agent to report healthy first. With a cache
// configured, the first miss under a path loads the whole store at that path
// and serves later keys from memory until the TTL expires or the path is
// invalidated.
package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/kvcache"
)

const (
	DefaultAddress          = "http://localhost:8200"
	DefaultReadinessTimeout = 30 * time.Second
	DefaultPollInterval     = time.Second
	DefaultHealthPath       = "/v1/sys/health"
)

// Reader reads a logical path. *vaultapi.Logical satisfies it. A missing
// path is reported as (nil, nil).
type Reader interface {
	ReadWithContext(ctx context.Context, path string) (*vaultapi.Secret, error)
}

type Config struct {
	Logger confita.Logger // required

	Address     string // default http://localhost:8200
	DefaultPath string // path used when a lookup names none

	ReadinessTimeout time.Duration // default 30s
	PollInterval     time.Duration // default 1s
	HealthPath       string        // default /v1/sys/health

	// KVv2 unwraps the nested data.data of KV version 2 mounts.
	KVv2 bool

	// Reader defaults to the logical client of a Vault API client for
	// Address, built without retries.
	Reader Reader
	// HealthCheck defaults to GET Address+HealthPath with the Vault client's
	// HTTP client.
	HealthCheck HealthCheck

	// Cache enables caching when non-nil. A nil Cache.Logger inherits Logger.
	Cache *kvcache.Options
}

type Backend struct {
	log         confita.Logger
	address     string
	defaultPath string
	timeout     time.Duration
	interval    time.Duration
	kvv2        bool

	reader Reader
	check  HealthCheck
	cache  *kvcache.Cache
}

var _ confita.Backend = (*Backend)(nil)

func New(cfg Config) (*Backend, error) {
	if cfg.Logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.ReadinessTimeout < 0 || cfg.PollInterval < 0 {
		return nil, errors.New("vault: negative readiness timeout or poll interval")
	}

	b := &Backend{
		log:         cfg.Logger,
		address:     strings.TrimRight(confita.Coalesce(cfg.Address, DefaultAddress), "/"),
		defaultPath: cfg.DefaultPath,
		timeout:     confita.Coalesce(cfg.ReadinessTimeout, DefaultReadinessTimeout),
		interval:    confita.Coalesce(cfg.PollInterval, DefaultPollInterval),
		kvv2:        cfg.KVv2,
		reader:      cfg.Reader,
		check:       cfg.HealthCheck,
	}

	if b.reader == nil || b.check == nil {
		apiCfg := vaultapi.DefaultConfig()
		if apiCfg.Error != nil {
			return nil, fmt.Errorf("vault: client config: %w", apiCfg.Error)
		}
		apiCfg.Address = b.address
		apiCfg.MaxRetries = 0
		if b.reader == nil {
			client, err := vaultapi.NewClient(apiCfg)
			if err != nil {
				return nil, fmt.Errorf("vault: client: %w", err)
			}
			b.reader = client.Logical()
		}
		if b.check == nil {
			b.check = HTTPHealthCheck(apiCfg.HttpClient, b.address+confita.Coalesce(cfg.HealthPath, DefaultHealthPath))
		}
	}

	if cfg.Cache != nil {
		opts := *cfg.Cache
		if opts.Logger == nil {
			opts.Logger = cfg.Logger
		}
		c, err := kvcache.New(opts)
		if err != nil {
			return nil, fmt.Errorf("vault: cache: %w", err)
		}
		b.cache = c
	}
	return b, nil
}

func (b *Backend) Name() string { return "vault" }

func (b *Backend) Address() string     { return b.address }
func (b *Backend) DefaultPath() string { return b.defaultPath }
func (b *Backend) CacheEnabled() bool  { return b.cache != nil && b.cache.Enabled() }

func (b *Backend) resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if b.defaultPath != "" {
		return b.defaultPath, nil
	}
	return "", ErrNoPath
}

// Get reads key at opts.Path, or the default path, and casts it to opts.Type.
func (b *Backend) Get(ctx context.Context, key string, opts confita.Options) (any, bool, error) {
	if _, err := confita.Cast(nil, opts.Type); err != nil {
		return nil, false, err
	}
	path, err := b.resolvePath(opts.Path)
	if err != nil {
		return nil, false, err
	}

	var (
		raw any
		ok  bool
	)
	if b.CacheEnabled() {
		raw, ok, err = b.cachedKey(ctx, path, key)
	} else {
		raw, ok, err = b.GetKeyWhenReady(ctx, KeyRef{Path: path, Key: key})
	}
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := confita.Cast(raw, opts.Type)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// cachedKey serves key from the cache, loading the whole store at path on a
// miss. The answer comes from the loaded store, not a re-read of the cache.
func (b *Backend) cachedKey(ctx context.Context, path, key string) (any, bool, error) {
	v, ok, err := b.cache.Get(ctx, path, key)
	if err != nil {
		b.log.Warn("vault cache read failed", confita.Fields{"path": path, "err": err})
	} else if ok {
		return v, true, nil
	}

	gen := b.cache.SnapshotGen(ctx, path)
	kv, err := b.ReadStoreWhenReady(ctx, path)
	if err != nil {
		return nil, false, err
	}
	b.storeWithGen(ctx, path, kv, gen)
	raw := kv[key]
	return raw, raw != nil, nil
}

// GetStruct reads the whole store at the resolved path once and casts each
// schema key. It neither consults nor fills the cache.
func (b *Backend) GetStruct(ctx context.Context, schema confita.Schema, opts confita.Options) (map[string]any, error) {
	path, err := b.resolvePath(opts.Path)
	if err != nil {
		return nil, err
	}
	kv, err := b.ReadStoreWhenReady(ctx, path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(schema))
	for key, t := range schema {
		v, _, err := confita.Lookup(kv, key, t)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// Invalidate drops every cached key of path (the default path when empty).
// Without a cache it does nothing.
func (b *Backend) Invalidate(ctx context.Context, path string) error {
	if !b.CacheEnabled() {
		return nil
	}
	p, err := b.resolvePath(path)
	if err != nil {
		return err
	}
	g, err := b.cache.Invalidate(ctx, p)
	if err != nil {
		return err
	}
	b.log.Info("vault cache invalidated", confita.Fields{"path": p, "gen": g})
	return nil
}

// Close releases the cache.
func (b *Backend) Close(ctx context.Context) error {
	if b.cache == nil {
		return nil
	}
	return b.cache.Close(ctx)
}
