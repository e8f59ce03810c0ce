package main

import (
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	asynchook "github.com/unkn0wn-root/confita/hooks/async"
	promhook "github.com/unkn0wn-root/confita/hooks/prom"
	sloghook "github.com/unkn0wn-root/confita/hooks/slog"
	"github.com/unkn0wn-root/confita/kvcache"
)

// fanout delivers every cache event to each hook in order.
type fanout []kvcache.Hooks

var _ kvcache.Hooks = fanout(nil)

func (f fanout) Hit(p string) {
	for _, h := range f {
		h.Hit(p)
	}
}

func (f fanout) Miss(p string) {
	for _, h := range f {
		h.Miss(p)
	}
}

func (f fanout) SelfHeal(k, reason string) {
	for _, h := range f {
		h.SelfHeal(k, reason)
	}
}

func (f fanout) ProviderSetRejected(k string) {
	for _, h := range f {
		h.ProviderSetRejected(k)
	}
}

func (f fanout) StaleWrite(p string) {
	for _, h := range f {
		h.StaleWrite(p)
	}
}

func (f fanout) GenSnapshotError(n int, err error) {
	for _, h := range f {
		h.GenSnapshotError(n, err)
	}
}

func (f fanout) GenBumpError(p string, err error) {
	for _, h := range f {
		h.GenBumpError(p, err)
	}
}

// cacheEvents wires the vault cache hooks: Prometheus counters for
// --cache-stats and slog event logging for the slog backend, both behind one
// async queue so lookups never wait on them.
type cacheEvents struct {
	reg   *prometheus.Registry
	async *asynchook.Hooks
}

func newCacheEvents(stats bool, slogger *slog.Logger) (*cacheEvents, error) {
	var (
		hooks fanout
		ev    cacheEvents
	)
	if stats {
		ev.reg = prometheus.NewRegistry()
		ph, err := promhook.New(ev.reg, "confita")
		if err != nil {
			return nil, err
		}
		hooks = append(hooks, ph)
	}
	if slogger != nil {
		hooks = append(hooks, sloghook.New(slogger, sloghook.Options{MissEvery: 1, SelfHealEvery: 1}))
	}
	if len(hooks) == 0 {
		return &ev, nil
	}
	ev.async = asynchook.New(hooks, 1, 256)
	return &ev, nil
}

// Hooks returns nil when no events are wanted, leaving kvcache on its no-op hooks.
func (e *cacheEvents) Hooks() kvcache.Hooks {
	if e.async == nil {
		return nil
	}
	return e.async
}

// Close drains queued events.
func (e *cacheEvents) Close() {
	if e.async != nil {
		e.async.Close()
	}
}

// Report writes the counters in the Prometheus text format. Call it after Close.
func (e *cacheEvents) Report(w io.Writer) error {
	if e.reg == nil {
		return nil
	}
	families, err := e.reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
