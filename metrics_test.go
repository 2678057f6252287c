package osiris

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricsRecordTaskDoneBucketsCorrectly(t *testing.T) {
	m := NewMetrics()
	m.RecordSpawn()
	m.RecordSpawn()
	m.RecordSpawn()

	m.RecordTaskDone(false, false)
	m.RecordTaskDone(true, false)
	m.RecordTaskDone(false, true)

	snap := m.Snapshot()
	require.EqualValues(t, 3, snap.TasksSpawned)
	require.EqualValues(t, 1, snap.TasksCompleted)
	require.EqualValues(t, 1, snap.TasksPanicked)
	require.EqualValues(t, 1, snap.TasksAborted)
}

func TestMetricsRecordOpTracksErrorRate(t *testing.T) {
	m := NewMetrics()
	m.RecordOp(1_000, true)
	m.RecordOp(2_000, false)

	snap := m.Snapshot()
	require.EqualValues(t, 2, snap.OpsCompleted)
	require.EqualValues(t, 1, snap.OpsErrored)
	require.Equal(t, 50.0, snap.OpErrorRate)
	require.EqualValues(t, 1500, snap.AvgOpLatencyNs)
}

func TestMetricsRunQueueDepthTracksMax(t *testing.T) {
	m := NewMetrics()
	m.RecordRunQueueDepth(3)
	m.RecordRunQueueDepth(9)
	m.RecordRunQueueDepth(5)

	snap := m.Snapshot()
	require.EqualValues(t, 9, snap.MaxRunQueueDepth)
	require.InDelta(t, (3.0+9.0+5.0)/3.0, snap.AvgRunQueueDepth, 0.001)
}

func TestMetricsPercentilesMonotonic(t *testing.T) {
	m := NewMetrics()
	for _, ns := range []uint64{500, 5_000, 50_000, 500_000, 5_000_000} {
		m.RecordOp(ns, true)
	}

	snap := m.Snapshot()
	require.LessOrEqual(t, snap.OpLatencyP50Ns, snap.OpLatencyP99Ns)
	require.LessOrEqual(t, snap.OpLatencyP99Ns, snap.OpLatencyP999Ns)
}

func TestMetricsStopFreezesUptime(t *testing.T) {
	m := NewMetrics()
	m.Stop()
	snap1 := m.Snapshot()
	snap2 := m.Snapshot()
	require.Equal(t, snap1.UptimeNs, snap2.UptimeNs)
}

func TestMetricsObserverForwardsToMetrics(t *testing.T) {
	m := NewMetrics()
	obs := NewMetricsObserver(m)

	var o Observer = obs
	o.ObserveSpawn()
	o.ObserveTaskDone(false, false)
	o.ObserveSubmit()
	o.ObserveOp(1000, true)
	o.ObserveRunQueueDepth(2)

	snap := m.Snapshot()
	require.EqualValues(t, 1, snap.TasksSpawned)
	require.EqualValues(t, 1, snap.TasksCompleted)
	require.EqualValues(t, 1, snap.OpsSubmitted)
	require.EqualValues(t, 1, snap.OpsCompleted)
}

func TestNoOpObserverNeverPanics(t *testing.T) {
	var o Observer = NoOpObserver{}
	require.NotPanics(t, func() {
		o.ObserveSpawn()
		o.ObserveTaskDone(true, true)
		o.ObserveSubmit()
		o.ObserveOp(1, false)
		o.ObserveRunQueueDepth(1)
	})
}
