// Package promhook exports kvcache events as Prometheus counters.
package promhook

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/confita/kvcache"
)

// Hooks counts cache events. Paths are used as label values, so keep the set
// of secret paths bounded.
type Hooks struct {
	lookups     *prometheus.CounterVec
	selfHeals   *prometheus.CounterVec
	rejected    prometheus.Counter
	staleWrites *prometheus.CounterVec
	genErrors   *prometheus.CounterVec
}

var _ kvcache.Hooks = (*Hooks)(nil)

// New creates the counters and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer, namespace string) (*Hooks, error) {
	if namespace == "" {
		namespace = "confita"
	}
	h := &Hooks{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Secret cache lookups by path and result (hit or miss).",
		}, []string{"path", "result"}),
		selfHeals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "self_heals_total",
			Help:      "Cache entries deleted on read, by reason.",
		}, []string{"reason"}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "set_rejected_total",
			Help:      "Writes rejected by the cache provider.",
		}),
		staleWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "stale_writes_total",
			Help:      "Writes skipped because the path was invalidated during the load.",
		}, []string{"path"}),
		genErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "gen_errors_total",
			Help:      "Generation store errors by operation.",
		}, []string{"op"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{h.lookups, h.selfHeals, h.rejected, h.staleWrites, h.genErrors} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return h, nil
}

func (h *Hooks) Hit(path string)                 { h.lookups.WithLabelValues(path, "hit").Inc() }
func (h *Hooks) Miss(path string)                { h.lookups.WithLabelValues(path, "miss").Inc() }
func (h *Hooks) SelfHeal(_, reason string)       { h.selfHeals.WithLabelValues(reason).Inc() }
func (h *Hooks) ProviderSetRejected(string)      { h.rejected.Inc() }
func (h *Hooks) StaleWrite(path string)          { h.staleWrites.WithLabelValues(path).Inc() }
func (h *Hooks) GenSnapshotError(n int, _ error) { h.genErrors.WithLabelValues("snapshot").Add(float64(n)) }
func (h *Hooks) GenBumpError(string, error)      { h.genErrors.WithLabelValues("bump").Inc() }
