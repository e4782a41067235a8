package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/keyedpool/pool"
)

// Adapter implements pool.Metrics and exports Prometheus counters.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	created prometheus.Counter
	reused  prometheus.Counter
	missed  prometheus.Counter
	evicted prometheus.Counter
	killed  *prometheus.CounterVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        name,
			Help:        help,
			ConstLabels: constLabels,
		})
	}
	a := &Adapter{
		created: counter("objects_created_total", "Objects created and accepted into the pool"),
		reused:  counter("objects_reused_total", "Obtains served by an existing object"),
		missed:  counter("obtain_misses_total", "Obtains that ended without an object"),
		evicted: counter("objects_evicted_total", "Objects dropped by an eviction sweep"),
		killed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "objects_killed_total",
				Help:        "Objects disposed, by reason",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(a.created, a.reused, a.missed, a.evicted, a.killed)
	return a
}

func (a *Adapter) Created() { a.created.Inc() }
func (a *Adapter) Reused()  { a.reused.Inc() }
func (a *Adapter) Missed()  { a.missed.Inc() }
func (a *Adapter) Evicted() { a.evicted.Inc() }

// Killed increments the disposal counter with a reason label.
func (a *Adapter) Killed(r pool.KillReason) {
	a.killed.WithLabelValues(r.String()).Inc()
}

// Compile-time check: ensure Adapter implements pool.Metrics.
var _ pool.Metrics = (*Adapter)(nil)
