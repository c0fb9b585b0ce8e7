package core

import "time"

// TimingStats aggregates observed durations for one timing key.
type TimingStats struct {
	Count int           `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Avg   time.Duration `json:"avg"`
}

// MetricsSnapshot is a point-in-time copy of all recorded metrics.
type MetricsSnapshot struct {
	Counters map[string]int64       `json:"counters"`
	Gauges   map[string]float64     `json:"gauges"`
	Timings  map[string]TimingStats `json:"timings"`
}

// Metrics records counters, gauges and timings readable back in-process
// through Snapshot (surfaced by the engine's system status).
type Metrics interface {
	Inc(name string, delta int64)
	SetGauge(name string, value float64)
	Observe(name string, d time.Duration)
	Snapshot() MetricsSnapshot
}
