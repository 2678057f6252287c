// Package metrics implements the optional prometheus-backed osiris.Observer.
// It exists as its own package (rather than living in the root package
// alongside the in-process Metrics/MetricsObserver) so that importing
// osiris never drags in prometheus/client_golang unless a caller actually
// asks for it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver reports task and reactor-op events as prometheus
// collectors. It satisfies the osiris.Observer interface structurally
// (same method set) without importing the root package, avoiding an
// import cycle between osiris and internal/metrics.
type PrometheusObserver struct {
	tasksSpawned   prometheus.Counter
	tasksCompleted prometheus.Counter
	tasksPanicked  prometheus.Counter
	tasksAborted   prometheus.Counter

	opsSubmitted prometheus.Counter
	opsCompleted prometheus.Counter
	opsErrored   prometheus.Counter

	opLatency prometheus.Histogram

	runQueueDepth prometheus.Gauge
}

// NewPrometheusObserver builds an Observer and registers its collectors
// with reg. Passing prometheus.NewRegistry() keeps osiris metrics isolated
// from the default global registry.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	o := &PrometheusObserver{
		tasksSpawned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "tasks_spawned_total", Help: "Tasks spawned.",
		}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "tasks_completed_total", Help: "Tasks completed normally.",
		}),
		tasksPanicked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "tasks_panicked_total", Help: "Tasks that panicked.",
		}),
		tasksAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "tasks_aborted_total", Help: "Tasks aborted before completion.",
		}),
		opsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "ops_submitted_total", Help: "Reactor ops submitted to the ring.",
		}),
		opsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "ops_completed_total", Help: "Reactor ops completed.",
		}),
		opsErrored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osiris", Name: "ops_errored_total", Help: "Reactor ops that completed with a negative result.",
		}),
		opLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "osiris", Name: "op_latency_seconds", Help: "Reactor op submit-to-completion latency.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		runQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "osiris", Name: "run_queue_depth", Help: "Most recently sampled run-queue length.",
		}),
	}
	reg.MustRegister(
		o.tasksSpawned, o.tasksCompleted, o.tasksPanicked, o.tasksAborted,
		o.opsSubmitted, o.opsCompleted, o.opsErrored, o.opLatency, o.runQueueDepth,
	)
	return o
}

func (o *PrometheusObserver) ObserveSpawn() { o.tasksSpawned.Inc() }

func (o *PrometheusObserver) ObserveTaskDone(panicked, aborted bool) {
	switch {
	case panicked:
		o.tasksPanicked.Inc()
	case aborted:
		o.tasksAborted.Inc()
	default:
		o.tasksCompleted.Inc()
	}
}

func (o *PrometheusObserver) ObserveSubmit() { o.opsSubmitted.Inc() }

func (o *PrometheusObserver) ObserveOp(latencyNs uint64, success bool) {
	o.opsCompleted.Inc()
	if !success {
		o.opsErrored.Inc()
	}
	o.opLatency.Observe(float64(latencyNs) / 1e9)
}

func (o *PrometheusObserver) ObserveRunQueueDepth(depth uint32) {
	o.runQueueDepth.Set(float64(depth))
}
