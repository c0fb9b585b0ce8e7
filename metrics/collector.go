// Package metrics provides an in-process metrics registry readable back
// through snapshots, used by the observed-execution wrapper and surfaced via
// the engine's system status.
package metrics

import (
	"sync"
	"time"

	"github.com/clerkmesh/clerkmesh/core"
)

// Collector is the in-memory core.Metrics implementation. All methods are
// safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	timings  map[string]*timing
}

type timing struct {
	count    int
	total    time.Duration
	min, max time.Duration
}

// NewCollector constructs an empty collector.
func NewCollector() *Collector {
	return &Collector{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		timings:  make(map[string]*timing),
	}
}

// Inc adds delta to the named counter.
func (c *Collector) Inc(name string, delta int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[name] += delta
}

// SetGauge sets the named gauge to value.
func (c *Collector) SetGauge(name string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[name] = value
}

// Observe records one duration for the named timing.
func (c *Collector) Observe(name string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tm, ok := c.timings[name]
	if !ok {
		tm = &timing{min: d, max: d}
		c.timings[name] = tm
	}
	tm.count++
	tm.total += d
	if d < tm.min {
		tm.min = d
	}
	if d > tm.max {
		tm.max = d
	}
}

// Snapshot returns a point-in-time copy of all recorded metrics.
func (c *Collector) Snapshot() core.MetricsSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := core.MetricsSnapshot{
		Counters: make(map[string]int64, len(c.counters)),
		Gauges:   make(map[string]float64, len(c.gauges)),
		Timings:  make(map[string]core.TimingStats, len(c.timings)),
	}
	for k, v := range c.counters {
		snap.Counters[k] = v
	}
	for k, v := range c.gauges {
		snap.Gauges[k] = v
	}
	for k, tm := range c.timings {
		snap.Timings[k] = core.TimingStats{
			Count: tm.count,
			Total: tm.total,
			Min:   tm.min,
			Max:   tm.max,
			Avg:   tm.total / time.Duration(tm.count),
		}
	}
	return snap
}
