// Package kvcache caches secret-store values keyed by (path, key).
//
// A path is loaded wholesale: on the first miss the caller reads the whole
// key-value store at that path and stores every key. Each path carries a
// generation (see genstore). Entries are framed with the generation they
// were loaded under, and a read that finds an entry from an older
// generation deletes it and reports a miss. Invalidate bumps the
// generation, which drops every key of the path at once.
//
// Writes are conditional: StoreWithGen takes the generation observed before
// the store was read, and skips the write if the path was invalidated
// while the read was in flight.
package kvcache

import (
	"context"
	"fmt"
	"time"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/codec"
	"github.com/unkn0wn-root/confita/genstore"
	"github.com/unkn0wn-root/confita/internal/parse"
	"github.com/unkn0wn-root/confita/internal/util"
	"github.com/unkn0wn-root/confita/internal/wire"
	"github.com/unkn0wn-root/confita/provider"
	"github.com/unkn0wn-root/confita/provider/ristretto"
)

// Cache is safe for concurrent use.
type Cache struct {
	ns             string
	provider       provider.Provider
	codec          codec.Codec[any]
	log            confita.Logger
	hooks          Hooks
	enabled        bool
	ttl            time.Duration
	computeSetCost SetCostFunc
	gen            genstore.GenStore
}

func New(opts Options) (*Cache, error) {
	c := &Cache{
		ns:      confita.Coalesce(opts.Namespace, DefaultNamespace),
		codec:   opts.Codec,
		enabled: !opts.Disabled,
	}
	c.log = confita.Coalesce[confita.Logger](opts.Logger, confita.NopLogger{})
	c.hooks = opts.Hooks
	if c.hooks == nil {
		c.hooks = NopHooks{}
	}
	c.ttl = confita.Coalesce(opts.TTL, DefaultTTL)
	if c.ttl < 0 {
		return nil, fmt.Errorf("kvcache: negative TTL %s", opts.TTL)
	}
	if c.codec == nil {
		c.codec = codec.Msgpack[any]{}
	}

	if opts.ComputeSetCost != nil {
		c.computeSetCost = opts.ComputeSetCost
	} else {
		c.computeSetCost = func(string, []byte) int64 { return 1 }
	}

	if opts.Provider != nil {
		c.provider = opts.Provider
	} else {
		p, err := ristretto.New(ristretto.ForEntries(confita.Coalesce(opts.MaxEntries, DefaultMaxEntries)))
		if err != nil {
			return nil, fmt.Errorf("kvcache: default provider: %w", err)
		}
		c.provider = p
	}

	if opts.GenStore != nil {
		c.gen = opts.GenStore
	} else {
		c.gen = genstore.NewLocalGenStore(
			confita.Coalesce(opts.CleanupInterval, defaultSweep),
			confita.Coalesce(opts.GenRetention, defaultGenRetention),
		)
	}
	return c, nil
}

func (c *Cache) Enabled() bool { return c.enabled }

// TTL returns the lifetime applied to every entry.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Close releases the generation store, then the provider.
func (c *Cache) Close(ctx context.Context) error {
	if c.gen != nil {
		_ = c.gen.Close(ctx)
	}
	if c.provider != nil {
		return c.provider.Close(ctx)
	}
	return nil
}

// Get returns the cached value of key under path. Corrupt, undecodable and
// stale entries are deleted and reported as misses. Only provider errors are
// returned.
func (c *Cache) Get(ctx context.Context, path, key string) (any, bool, error) {
	if !c.enabled {
		return nil, false, nil
	}
	k := util.EntryKey(c.ns, path, key)
	raw, ok, err := c.provider.Get(ctx, k)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		c.hooks.Miss(path)
		return nil, false, nil
	}
	gen, payload, err := wire.Decode(raw)
	if err != nil {
		c.selfHeal(ctx, path, k, "corrupt")
		return nil, false, nil
	}
	if gen != c.SnapshotGen(ctx, path) {
		c.selfHeal(ctx, path, k, "gen_mismatch")
		return nil, false, nil
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		c.selfHeal(ctx, path, k, "value_decode")
		return nil, false, nil
	}
	c.hooks.Hit(path)
	return parse.Normalize(v), true, nil
}

func (c *Cache) selfHeal(ctx context.Context, path, storageKey, reason string) {
	_ = c.provider.Del(ctx, storageKey)
	c.hooks.SelfHeal(storageKey, reason)
	c.hooks.Miss(path)
	c.log.Debug("dropped cache entry", confita.Fields{"path": path, "reason": reason})
}

// SnapshotGen returns the current generation of path. A generation store
// error yields 0 so conditional writes skip and reads self-heal.
func (c *Cache) SnapshotGen(ctx context.Context, path string) uint64 {
	g, err := c.gen.Snapshot(ctx, util.PathKey(c.ns, path))
	if err != nil {
		c.hooks.GenSnapshotError(1, err)
		c.log.Warn("gen snapshot error", confita.Fields{"path": path, "err": err})
		return 0
	}
	return g
}

// SnapshotGens returns the generations of several paths in one call.
func (c *Cache) SnapshotGens(ctx context.Context, paths []string) map[string]uint64 {
	keys := make([]string, len(paths))
	for i, p := range paths {
		keys[i] = util.PathKey(c.ns, p)
	}
	m, err := c.gen.SnapshotMany(ctx, keys)
	out := make(map[string]uint64, len(paths))
	if err != nil {
		c.hooks.GenSnapshotError(len(paths), err)
		c.log.Warn("gen snapshot error", confita.Fields{"paths": len(paths), "err": err})
		for _, p := range paths {
			out[p] = c.SnapshotGen(ctx, p)
		}
		return out
	}
	for i, p := range paths {
		out[p] = m[keys[i]]
	}
	return out
}

// SetWithGen stores one value under (path, key) stamped with observedGen,
// unless the path generation has moved since.
func (c *Cache) SetWithGen(ctx context.Context, path, key string, value any, observedGen uint64) error {
	if !c.enabled {
		return nil
	}
	if c.SnapshotGen(ctx, path) != observedGen {
		c.hooks.StaleWrite(path)
		c.log.Debug("cache write skipped (gen mismatch)", confita.Fields{"path": path, "obs": observedGen})
		return nil
	}
	_, err := c.set(ctx, path, key, value, observedGen)
	return err
}

// StoreWithGen stores every key of a freshly loaded store, all stamped with
// observedGen. It returns how many entries the provider accepted. Nothing is
// written if the path generation moved since observedGen.
func (c *Cache) StoreWithGen(ctx context.Context, path string, kv map[string]any, observedGen uint64) (int, error) {
	if !c.enabled || len(kv) == 0 {
		return 0, nil
	}
	if c.SnapshotGen(ctx, path) != observedGen {
		c.hooks.StaleWrite(path)
		c.log.Debug("cache store skipped (gen mismatch)", confita.Fields{"path": path, "obs": observedGen})
		return 0, nil
	}
	stored := 0
	for key, v := range kv {
		if v == nil {
			continue
		}
		ok, err := c.set(ctx, path, key, v, observedGen)
		if err != nil {
			return stored, err
		}
		if ok {
			stored++
		}
	}
	c.log.Debug("cached store", confita.Fields{"path": path, "keys": len(kv), "stored": stored, "gen": observedGen})
	return stored, nil
}

func (c *Cache) set(ctx context.Context, path, key string, value any, gen uint64) (bool, error) {
	payload, err := c.codec.Encode(value)
	if err != nil {
		return false, fmt.Errorf("kvcache: encode %s/%s: %w", path, key, err)
	}
	k := util.EntryKey(c.ns, path, key)
	raw := wire.Encode(gen, payload)
	ok, err := c.provider.Set(ctx, k, raw, c.computeSetCost(k, raw), c.ttl)
	if err != nil {
		return false, err
	}
	if !ok {
		c.hooks.ProviderSetRejected(k)
		c.log.Debug("cache write rejected by provider (pressure)", confita.Fields{"path": path})
	}
	return ok, nil
}

// Invalidate bumps the generation of path. Every entry stored for the path
// before the bump is dropped on its next read. Entries named in keys are
// also deleted eagerly.
func (c *Cache) Invalidate(ctx context.Context, path string, keys ...string) (uint64, error) {
	if !c.enabled {
		return 0, nil
	}
	g, err := c.gen.Bump(ctx, util.PathKey(c.ns, path))
	if err != nil {
		c.hooks.GenBumpError(path, err)
		c.log.Error("gen bump error", confita.Fields{"path": path, "err": err})
		return 0, fmt.Errorf("kvcache: invalidate %s: %w", path, err)
	}
	for _, key := range keys {
		_ = c.provider.Del(ctx, util.EntryKey(c.ns, path, key))
	}
	c.log.Debug("invalidated path", confita.Fields{"path": path, "gen": g})
	return g, nil
}
