package stats

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestIncIncrementsNamedCounters(t *testing.T) {
	s := New()
	s.Inc(CounterTotalProcessed)
	s.Inc(CounterTotalProcessed)
	s.Inc(CounterMatched)
	s.Inc("unknown_counter") // must be ignored, not panic

	snap := s.Snapshot()
	require.Equal(t, uint64(2), snap.TotalProcessed)
	require.Equal(t, uint64(1), snap.Matched)
}

func TestGaugeSetsLatestValue(t *testing.T) {
	s := New()
	s.Gauge(GaugeQueueSize, 42)
	s.Gauge(GaugeQueueSize, 7)
	s.Gauge(GaugeWorkerCount, 12)

	snap := s.Snapshot()
	require.Equal(t, int64(7), snap.QueueSize)
	require.Equal(t, int64(12), snap.WorkerCount)
}

func TestSnapshotComputesDerivedRates(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Inc(CounterTotalProcessed)
	}
	for i := 0; i < 3; i++ {
		s.Inc(CounterMatched)
	}
	for i := 0; i < 4; i++ {
		s.Inc(CounterDNSResolved)
	}
	s.Inc(CounterDNSFailed)

	snap := s.Snapshot()
	require.InDelta(t, 0.3, snap.MatchRate, 0.001)
	require.InDelta(t, 0.8, snap.ResolveRate, 0.001)
}

func TestCollectorExportsPrometheusMetrics(t *testing.T) {
	s := New()
	s.Inc(CounterMatched)
	s.Inc(CounterMatched)
	c := NewCollector(s)

	count := testutil.CollectAndCount(c)
	require.Equal(t, 8, count)
}
