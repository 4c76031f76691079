// Package metrics exposes Prometheus collectors for pool activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector aggregates the pool's Prometheus instruments. A nil Collector is
// safe to call; every method becomes a no-op, which keeps the pool usable in
// tests and in hosts that disable the metrics endpoint.
type Collector struct {
	workersStarted prometheus.Counter
	workersStopped prometheus.Counter
	workersCrashed prometheus.Counter
	reuseHits      prometheus.Counter
	reuseMisses    prometheus.Counter
	trackedWorkers prometheus.Gauge
	actionSeconds  prometheus.Histogram
}

// NewCollector builds the pool's instruments and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		workersStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_workers_started_total",
			Help: "Worker daemons spawned.",
		}),
		workersStopped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_workers_stopped_total",
			Help: "Worker daemons stopped by eviction or explicit command.",
		}),
		workersCrashed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_workers_crashed_total",
			Help: "Worker daemons that exited abnormally.",
		}),
		reuseHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_allocation_reuse_hits_total",
			Help: "Allocations served by an existing idle worker.",
		}),
		reuseMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foundry_allocation_reuse_misses_total",
			Help: "Allocations that required spawning a new worker.",
		}),
		trackedWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "foundry_workers_tracked",
			Help: "Workers currently tracked by the registry.",
		}),
		actionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "foundry_action_duration_seconds",
			Help:    "Wall time of one action on a worker.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
	if reg != nil {
		reg.MustRegister(
			c.workersStarted,
			c.workersStopped,
			c.workersCrashed,
			c.reuseHits,
			c.reuseMisses,
			c.trackedWorkers,
			c.actionSeconds,
		)
	}
	return c
}

// RecordSpawn counts a successful worker spawn.
func (c *Collector) RecordSpawn() {
	if c == nil {
		return
	}
	c.workersStarted.Inc()
}

// RecordStops counts n workers stopped in one eviction batch.
func (c *Collector) RecordStops(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.workersStopped.Add(float64(n))
}

// RecordCrash counts an abnormal worker exit.
func (c *Collector) RecordCrash() {
	if c == nil {
		return
	}
	c.workersCrashed.Inc()
}

// RecordReuse counts an allocation outcome: hit when an idle worker was
// matched, miss when a spawn was required.
func (c *Collector) RecordReuse(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.reuseHits.Inc()
		return
	}
	c.reuseMisses.Inc()
}

// SetTracked records the current registry size.
func (c *Collector) SetTracked(n int) {
	if c == nil {
		return
	}
	c.trackedWorkers.Set(float64(n))
}

// ObserveAction records the wall time of one completed action.
func (c *Collector) ObserveAction(seconds float64) {
	if c == nil {
		return
	}
	c.actionSeconds.Observe(seconds)
}
