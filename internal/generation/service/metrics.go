package service

import (
	"sync/atomic"
	"time"
)

// Metrics tracks generator and push calls.
type Metrics struct {
	generations       int64
	generationErrors  int64
	generationLatency int64 // total, nanoseconds
	pushes            int64
	pushErrors        int64
}

// MetricsSnapshot is the JSON view served on the metrics route.
type MetricsSnapshot struct {
	Generations          int64   `json:"generations"`
	GenerationErrors     int64   `json:"generation_errors"`
	AvgGenerationLatency float64 `json:"avg_generation_latency_ms"`
	Pushes               int64   `json:"pushes"`
	PushErrors           int64   `json:"push_errors"`
	PushErrorRate        float64 `json:"push_error_rate"`
}

func (m *Metrics) recordGeneration(duration time.Duration, failed bool) {
	atomic.AddInt64(&m.generations, 1)
	atomic.AddInt64(&m.generationLatency, duration.Nanoseconds())
	if failed {
		atomic.AddInt64(&m.generationErrors, 1)
	}
}

func (m *Metrics) recordPush(err error) {
	atomic.AddInt64(&m.pushes, 1)
	if err != nil {
		atomic.AddInt64(&m.pushErrors, 1)
	}
}

// Snapshot returns the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Generations:      atomic.LoadInt64(&m.generations),
		GenerationErrors: atomic.LoadInt64(&m.generationErrors),
		Pushes:           atomic.LoadInt64(&m.pushes),
		PushErrors:       atomic.LoadInt64(&m.pushErrors),
	}
	if s.Generations > 0 {
		avgNs := float64(atomic.LoadInt64(&m.generationLatency)) / float64(s.Generations)
		s.AvgGenerationLatency = avgNs / 1e6
	}
	if s.Pushes > 0 {
		s.PushErrorRate = float64(s.PushErrors) / float64(s.Pushes) * 100
	}
	return s
}
