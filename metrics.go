package osiris

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets are the op-completion latency histogram boundaries, in
// nanoseconds, shared by Metrics and any Observer that reports percentiles.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks task and reactor-op statistics for one Runtime. Unlike the
// teacher's per-device Metrics, this one counts tasks and completion-queue
// operations rather than block-I/O operations, but keeps the same
// atomic-counter-plus-Snapshot shape.
type Metrics struct {
	TasksSpawned   atomic.Uint64
	TasksCompleted atomic.Uint64
	TasksPanicked  atomic.Uint64
	TasksAborted   atomic.Uint64

	OpsSubmitted atomic.Uint64
	OpsCompleted atomic.Uint64
	OpsErrored   atomic.Uint64

	RunQueueDepthTotal atomic.Uint64
	RunQueueDepthCount atomic.Uint64
	MaxRunQueueDepth   atomic.Uint32

	TotalOpLatencyNs atomic.Uint64
	OpLatencyCount   atomic.Uint64

	OpLatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a Metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordSpawn records a task spawn.
func (m *Metrics) RecordSpawn() { m.TasksSpawned.Add(1) }

// RecordTaskDone records a task leaving Ready-in-flight state, bucketed by
// how it ended.
func (m *Metrics) RecordTaskDone(panicked, aborted bool) {
	switch {
	case panicked:
		m.TasksPanicked.Add(1)
	case aborted:
		m.TasksAborted.Add(1)
	default:
		m.TasksCompleted.Add(1)
	}
}

// RecordOp records a completed reactor op and its latency.
func (m *Metrics) RecordOp(latencyNs uint64, success bool) {
	m.OpsCompleted.Add(1)
	if !success {
		m.OpsErrored.Add(1)
	}
	m.TotalOpLatencyNs.Add(latencyNs)
	m.OpLatencyCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.OpLatencyBuckets[i].Add(1)
		}
	}
}

// RecordSubmit records an op entering the submission queue.
func (m *Metrics) RecordSubmit() { m.OpsSubmitted.Add(1) }

// RecordRunQueueDepth samples the current run-queue length.
func (m *Metrics) RecordRunQueueDepth(depth uint32) {
	m.RunQueueDepthTotal.Add(uint64(depth))
	m.RunQueueDepthCount.Add(1)
	for {
		cur := m.MaxRunQueueDepth.Load()
		if depth <= cur {
			break
		}
		if m.MaxRunQueueDepth.CompareAndSwap(cur, depth) {
			break
		}
	}
}

// Stop marks the runtime as stopped.
func (m *Metrics) Stop() { m.StopTime.Store(time.Now().UnixNano()) }

// MetricsSnapshot is a point-in-time copy of Metrics with derived stats
// filled in.
type MetricsSnapshot struct {
	TasksSpawned   uint64
	TasksCompleted uint64
	TasksPanicked  uint64
	TasksAborted   uint64

	OpsSubmitted uint64
	OpsCompleted uint64
	OpsErrored   uint64

	AvgRunQueueDepth float64
	MaxRunQueueDepth uint32

	AvgOpLatencyNs uint64
	UptimeNs       uint64

	OpLatencyP50Ns  uint64
	OpLatencyP99Ns  uint64
	OpLatencyP999Ns uint64

	OpLatencyHistogram [numLatencyBuckets]uint64

	OpErrorRate float64
}

// Snapshot computes a MetricsSnapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TasksSpawned:   m.TasksSpawned.Load(),
		TasksCompleted: m.TasksCompleted.Load(),
		TasksPanicked:  m.TasksPanicked.Load(),
		TasksAborted:   m.TasksAborted.Load(),
		OpsSubmitted:   m.OpsSubmitted.Load(),
		OpsCompleted:   m.OpsCompleted.Load(),
		OpsErrored:     m.OpsErrored.Load(),
		MaxRunQueueDepth: m.MaxRunQueueDepth.Load(),
	}

	depthTotal := m.RunQueueDepthTotal.Load()
	depthCount := m.RunQueueDepthCount.Load()
	if depthCount > 0 {
		snap.AvgRunQueueDepth = float64(depthTotal) / float64(depthCount)
	}

	latTotal := m.TotalOpLatencyNs.Load()
	latCount := m.OpLatencyCount.Load()
	if latCount > 0 {
		snap.AvgOpLatencyNs = latTotal / latCount
	}

	start := m.StartTime.Load()
	stop := m.StopTime.Load()
	if stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.OpLatencyHistogram[i] = m.OpLatencyBuckets[i].Load()
	}

	if snap.OpsCompleted > 0 {
		snap.OpErrorRate = float64(snap.OpsErrored) / float64(snap.OpsCompleted) * 100.0
	}

	if latCount > 0 {
		snap.OpLatencyP50Ns = m.percentile(0.50)
		snap.OpLatencyP99Ns = m.percentile(0.99)
		snap.OpLatencyP999Ns = m.percentile(0.999)
	}

	return snap
}

func (m *Metrics) percentile(p float64) uint64 {
	total := m.OpLatencyCount.Load()
	if total == 0 {
		return 0
	}
	target := uint64(float64(total) * p)
	var prevBucket, prevCount uint64
	for i, bucket := range LatencyBuckets {
		count := m.OpLatencyBuckets[i].Load()
		if count >= target {
			if count == prevCount {
				return bucket
			}
			frac := float64(target-prevCount) / float64(count-prevCount)
			return prevBucket + uint64(frac*float64(bucket-prevBucket))
		}
		prevBucket = bucket
		prevCount = count
	}
	return LatencyBuckets[numLatencyBuckets-1]
}

// Observer lets a Runtime report task and op events to pluggable metrics
// sinks (see internal/metrics for the prometheus-backed one).
type Observer interface {
	ObserveSpawn()
	ObserveTaskDone(panicked, aborted bool)
	ObserveSubmit()
	ObserveOp(latencyNs uint64, success bool)
	ObserveRunQueueDepth(depth uint32)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSpawn()                        {}
func (NoOpObserver) ObserveTaskDone(bool, bool)           {}
func (NoOpObserver) ObserveSubmit()                       {}
func (NoOpObserver) ObserveOp(uint64, bool)               {}
func (NoOpObserver) ObserveRunQueueDepth(uint32)          {}

// MetricsObserver is an Observer backed by an in-process Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver wraps m as an Observer.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveSpawn()              { o.metrics.RecordSpawn() }
func (o *MetricsObserver) ObserveTaskDone(p, a bool)  { o.metrics.RecordTaskDone(p, a) }
func (o *MetricsObserver) ObserveSubmit()             { o.metrics.RecordSubmit() }
func (o *MetricsObserver) ObserveOp(ns uint64, ok bool) { o.metrics.RecordOp(ns, ok) }
func (o *MetricsObserver) ObserveRunQueueDepth(d uint32) { o.metrics.RecordRunQueueDepth(d) }

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
