package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clerkmesh/clerkmesh/core"
)

// Interface compliance (compile-time assertion)
var _ core.Metrics = (*Collector)(nil)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()
	c.Inc("handler.bill_scanner.runs", 1)
	c.Inc("handler.bill_scanner.runs", 2)
	c.Inc("handler.bill_scanner.failures", 1)

	snap := c.Snapshot()
	assert.Equal(t, int64(3), snap.Counters["handler.bill_scanner.runs"])
	assert.Equal(t, int64(1), snap.Counters["handler.bill_scanner.failures"])
}

func TestCollector_Gauges(t *testing.T) {
	c := NewCollector()
	c.SetGauge("memory.records", 5)
	c.SetGauge("memory.records", 12)

	assert.Equal(t, 12.0, c.Snapshot().Gauges["memory.records"])
}

func TestCollector_Timings(t *testing.T) {
	c := NewCollector()
	c.Observe("handler.bill_scanner.duration", 10*time.Millisecond)
	c.Observe("handler.bill_scanner.duration", 30*time.Millisecond)
	c.Observe("handler.bill_scanner.duration", 20*time.Millisecond)

	stats := c.Snapshot().Timings["handler.bill_scanner.duration"]
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 60*time.Millisecond, stats.Total)
	assert.Equal(t, 10*time.Millisecond, stats.Min)
	assert.Equal(t, 30*time.Millisecond, stats.Max)
	assert.Equal(t, 20*time.Millisecond, stats.Avg)
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.Inc("runs", 1)

	snap := c.Snapshot()
	snap.Counters["runs"] = 99

	assert.Equal(t, int64(1), c.Snapshot().Counters["runs"])
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector()

	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Inc("runs", 1)
			c.SetGauge("load", 1.0)
			c.Observe("dur", time.Millisecond)
			c.Snapshot()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Equal(t, int64(50), snap.Counters["runs"])
	assert.Equal(t, 50, snap.Timings["dur"].Count)
}
