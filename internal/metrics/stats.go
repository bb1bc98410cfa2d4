package metrics

import "time"

// RunStats is the result of one worker: credited operations plus latencies.
// A RunStats is written by exactly one goroutine while its worker runs and is
// read-only once returned. The zero value is empty and ready for use.
type RunStats struct {
	Ops       uint64
	Latencies *Latency
}

// NewRunStats returns an empty value ready for recording.
func NewRunStats() *RunStats {
	return &RunStats{Latencies: NewLatency()}
}

// Observe records one latency sample without crediting an operation.
func (s *RunStats) Observe(d time.Duration) {
	s.latencies().Record(d)
}

// Credit adds n operations to the counter.
func (s *RunStats) Credit(n int) {
	if n > 0 {
		s.Ops += uint64(n)
	}
}

// Merge folds other into s. Merging nil is a no-op.
func (s *RunStats) Merge(other *RunStats) {
	if other == nil {
		return
	}
	s.Ops += other.Ops
	if other.Latencies.Count() > 0 {
		s.latencies().Merge(other.Latencies)
	}
}

func (s *RunStats) latencies() *Latency {
	if s.Latencies == nil {
		s.Latencies = NewLatency()
	}
	return s.Latencies
}

// MergeAll folds every value into a fresh RunStats.
func MergeAll(all ...*RunStats) *RunStats {
	total := NewRunStats()
	for _, s := range all {
		total.Merge(s)
	}
	return total
}
