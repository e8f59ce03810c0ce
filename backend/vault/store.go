package vault

import (
	"context"
	"sort"

	"github.com/unkn0wn-root/confita"
	"github.com/unkn0wn-root/confita/internal/parse"
)

// ReadStore reads the whole key-value store at path once. A missing path
// yields an empty map. Any read failure is a *ReadError; it is not retried.
func (b *Backend) ReadStore(ctx context.Context, path string) (map[string]any, error) {
	secret, err := b.reader.ReadWithContext(ctx, path)
	if err != nil {
		return nil, &ReadError{Path: path, Err: err}
	}
	if secret == nil || secret.Data == nil {
		return map[string]any{}, nil
	}
	data := secret.Data
	if b.kvv2 {
		inner, _ := data["data"].(map[string]any)
		if inner == nil {
			return map[string]any{}, nil
		}
		data = inner
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = parse.Normalize(v)
	}
	return out, nil
}

// ReadStoreWhenReady is ReadStore after IsAgentReady.
func (b *Backend) ReadStoreWhenReady(ctx context.Context, path string) (map[string]any, error) {
	if !b.IsAgentReady(ctx) {
		b.log.Error("failed to communicate with vault agent, cannot retrieve secrets", confita.Fields{"path": path})
		return nil, ErrAgentNotReady
	}
	return b.ReadStore(ctx, path)
}

// GetKey reads one secret directly from the store, bypassing the cache.
// A missing path or key is reported as not found.
func (b *Backend) GetKey(ctx context.Context, ref KeyRef) (any, bool, error) {
	path, err := b.resolvePath(ref.Path)
	if err != nil {
		return nil, false, err
	}
	kv, err := b.ReadStore(ctx, path)
	if err != nil {
		b.log.Error("vault read failed", confita.Fields{"path": path, "key": ref.Key, "err": err})
		return nil, false, err
	}
	v := kv[ref.Key]
	return v, v != nil, nil
}

// GetKeyWhenReady is GetKey after IsAgentReady.
func (b *Backend) GetKeyWhenReady(ctx context.Context, ref KeyRef) (any, bool, error) {
	if !b.IsAgentReady(ctx) {
		b.log.Error("failed to communicate with vault agent, cannot retrieve secret", confita.Fields{"key": ref.Key})
		return nil, false, ErrAgentNotReady
	}
	return b.GetKey(ctx, ref)
}

// GetMultipleKeys resolves a batch of named references. Every name is present
// in the result, nil when its secret is missing.
//
// Without a cache each reference is a direct GetKey and the first error
// aborts the batch. With a cache, hits are served from memory and each path
// holding a miss is loaded once, after a single readiness check; a load
// failure aborts before any result is assembled.
func (b *Backend) GetMultipleKeys(ctx context.Context, refs map[string]KeyRef) (map[string]any, error) {
	out := make(map[string]any, len(refs))
	if !b.CacheEnabled() {
		for name, ref := range refs {
			v, _, err := b.GetKey(ctx, ref)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
		return out, nil
	}

	resolved := make(map[string]KeyRef, len(refs))
	for name, ref := range refs {
		path, err := b.resolvePath(ref.Path)
		if err != nil {
			return nil, err
		}
		resolved[name] = KeyRef{Path: path, Key: ref.Key}
	}

	hits := make(map[string]any) // by CacheKey
	misses := make(map[string][]string)
	for name, ref := range resolved {
		if v, ok := hits[ref.CacheKey()]; ok {
			out[name] = v
			continue
		}
		v, ok, err := b.cache.Get(ctx, ref.Path, ref.Key)
		if err != nil {
			b.log.Warn("vault cache read failed", confita.Fields{"path": ref.Path, "err": err})
		}
		if ok {
			hits[ref.CacheKey()] = v
			out[name] = v
			continue
		}
		misses[ref.Path] = append(misses[ref.Path], name)
	}
	if len(misses) == 0 {
		return out, nil
	}

	paths := make([]string, 0, len(misses))
	for p := range misses {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	gens := b.cache.SnapshotGens(ctx, paths)

	if !b.IsAgentReady(ctx) {
		b.log.Error("failed to communicate with vault agent, cannot retrieve secrets", confita.Fields{"paths": len(paths)})
		return nil, ErrAgentNotReady
	}
	loaded := make(map[string]map[string]any, len(paths))
	for _, p := range paths {
		kv, err := b.ReadStore(ctx, p)
		if err != nil {
			b.log.Error("vault read failed", confita.Fields{"path": p, "err": err})
			return nil, err
		}
		loaded[p] = kv
	}
	for _, p := range paths {
		b.storeWithGen(ctx, p, loaded[p], gens[p])
		for _, name := range misses[p] {
			out[name] = loaded[p][resolved[name].Key]
		}
	}
	return out, nil
}

// GetMultipleKeysWhenReady checks readiness once, then runs GetMultipleKeys.
func (b *Backend) GetMultipleKeysWhenReady(ctx context.Context, refs map[string]KeyRef) (map[string]any, error) {
	if !b.IsAgentReady(ctx) {
		b.log.Error("failed to communicate with vault agent, cannot retrieve secrets", confita.Fields{"keys": len(refs)})
		return nil, ErrAgentNotReady
	}
	return b.GetMultipleKeys(ctx, refs)
}

// CacheStore caches every key of a freshly loaded store under path. Without
// a cache it does nothing.
func (b *Backend) CacheStore(ctx context.Context, path string, kv map[string]any) error {
	if !b.CacheEnabled() {
		return nil
	}
	_, err := b.cache.StoreWithGen(ctx, path, kv, b.cache.SnapshotGen(ctx, path))
	return err
}

// storeWithGen caches a store loaded under gen. Failures only cost a later
// reload, so they are logged, not returned.
func (b *Backend) storeWithGen(ctx context.Context, path string, kv map[string]any, gen uint64) {
	n, err := b.cache.StoreWithGen(ctx, path, kv, gen)
	if err != nil {
		b.log.Warn("vault cache store failed", confita.Fields{"path": path, "err": err})
		return
	}
	b.log.Debug("vault store cached", confita.Fields{"path": path, "keys": n})
}
