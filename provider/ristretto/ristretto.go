// Package ristretto is the default in-process store of kvcache: a bounded
// cache with per-entry TTL and cost-based admission.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/confita/provider"
)

type Provider struct {
	c         *rc.Cache
	waitOnSet bool
}

var _ provider.Provider = (*Provider)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool

	// IgnoreInternalCost leaves ristretto's per-item bookkeeping out of the
	// cost, so MaxCost is exactly the sum of the costs passed to Set.
	IgnoreInternalCost bool

	// WaitOnSet blocks each Set until ristretto has applied it, so a Get
	// issued right after a Set observes the value. Admission may still reject it.
	WaitOnSet bool
}

// ForEntries sizes a cache holding at most maxEntries unit-cost entries.
func ForEntries(maxEntries int64) Config {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
		WaitOnSet:          true,
	}
}

func New(cfg Config) (*Provider, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("ristretto: invalid config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,

		IgnoreInternalCost: cfg.IgnoreInternalCost,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, waitOnSet: cfg.WaitOnSet}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, cost, ttl)
	if ok && p.waitOnSet {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics exposes ristretto's counters when Config.Metrics is set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
