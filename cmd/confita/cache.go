package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/confita/codec"
	"github.com/unkn0wn-root/confita/genstore"
	"github.com/unkn0wn-root/confita/kvcache"
	"github.com/unkn0wn-root/confita/provider/bigcache"
	"github.com/unkn0wn-root/confita/provider/redis"
)

const (
	cacheNamespace   = "confita-cli"
	redisPingTimeout = 3 * time.Second
)

// cacheCodec picks the value codec for --cache-codec, wrapped in a decode
// size limit when maxValue > 0.
func cacheCodec(name string, maxValue int) (codec.Codec[any], error) {
	var c codec.Codec[any]
	switch name {
	case "", "msgpack":
		c = codec.Msgpack[any]{}
	case "cbor":
		cb, err := codec.NewCBOR[any](true)
		if err != nil {
			return nil, err
		}
		c = cb
	case "json":
		c = codec.JSON[any]{}
	case "protobuf":
		c = codec.Protobuf{}
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
	if maxValue > 0 {
		c = codec.Limit[any]{Inner: c, MaxDecode: maxValue}
	}
	return c, nil
}

// vaultCache builds the vault cache options for the selected store. A zero
// TTL disables caching and returns nil options.
func vaultCache(ctx context.Context, src sources, hooks kvcache.Hooks) (*kvcache.Options, error) {
	if src.vaultCacheTTL <= 0 {
		return nil, nil
	}
	c, err := cacheCodec(src.cacheCodec, src.cacheMaxValue)
	if err != nil {
		return nil, err
	}
	opts := &kvcache.Options{Namespace: cacheNamespace, TTL: src.vaultCacheTTL, Codec: c, Hooks: hooks}

	switch src.cacheStore {
	case "", "ristretto":
		// kvcache default
	case "bigcache":
		p, err := bigcache.New(ctx, bigcache.Config{LifeWindow: src.vaultCacheTTL})
		if err != nil {
			return nil, err
		}
		opts.Provider = p
	case "redis":
		if src.redisAddr == "" {
			return nil, fmt.Errorf("--cache-store=redis requires --redis-addr")
		}
		client := goredis.NewClient(&goredis.Options{Addr: src.redisAddr})
		// the provider owns the client; the generation store borrows it
		p, err := redis.New(redis.Config{Client: client, CloseClient: true})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err = p.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
		gs, err := genstore.NewRedisGenStore(genstore.RedisConfig{Client: client, Namespace: cacheNamespace})
		if err != nil {
			_ = p.Close(ctx)
			return nil, err
		}
		opts.Provider = p
		opts.GenStore = gs
	default:
		return nil, fmt.Errorf("unknown cache store %q", src.cacheStore)
	}
	return opts, nil
}

// releaseCache closes what vaultCache opened when the cache never reached a
// vault backend.
func releaseCache(ctx context.Context, opts *kvcache.Options) {
	if opts == nil {
		return
	}
	if opts.GenStore != nil {
		_ = opts.GenStore.Close(ctx)
	}
	if opts.Provider != nil {
		_ = opts.Provider.Close(ctx)
	}
}
