package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// Track latencies from 1µs up to 60s with 3 significant figures.
	lowestTrackableMicros  = 1
	highestTrackableMicros = 60_000_000
	significantFigures     = 3
)

// Latency accumulates operation latencies in microseconds. The zero value is
// an empty accumulator.
type Latency struct {
	hist *hdrhistogram.Histogram
}

// NewLatency returns an empty accumulator.
func NewLatency() *Latency {
	return &Latency{
		hist: newHistogram(),
	}
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(lowestTrackableMicros, highestTrackableMicros, significantFigures)
}

func (l *Latency) ensure() {
	if l.hist == nil {
		l.hist = newHistogram()
	}
}

func (l *Latency) empty() bool {
	return l == nil || l.hist == nil || l.hist.TotalCount() == 0
}

// Record adds one sample. Values outside the trackable range are clamped.
func (l *Latency) Record(d time.Duration) {
	l.RecordMicros(d.Microseconds())
}

// RecordMicros adds one sample expressed in microseconds.
func (l *Latency) RecordMicros(us int64) {
	l.ensure()
	if us < l.hist.LowestTrackableValue() {
		us = l.hist.LowestTrackableValue()
	}
	if us > l.hist.HighestTrackableValue() {
		us = l.hist.HighestTrackableValue()
	}
	_ = l.hist.RecordValue(us)
}

// Merge adds every sample of other into l. All accumulators share the same
// range and precision, so no sample is dropped.
func (l *Latency) Merge(other *Latency) {
	if other.empty() {
		return
	}
	l.ensure()
	l.hist.Merge(other.hist)
}

// Count returns the number of recorded samples.
func (l *Latency) Count() int64 {
	if l.empty() {
		return 0
	}
	return l.hist.TotalCount()
}

// Quantile returns the latency in microseconds at q, where q is in [0, 1].
// It returns 0 when nothing was recorded.
func (l *Latency) Quantile(q float64) int64 {
	if l.empty() {
		return 0
	}
	if q < 0 {
		q = 0
	}
	if q > 1 {
		q = 1
	}
	v := l.hist.ValueAtQuantile(q * 100)
	// Small quantiles can round down to an empty leading bucket.
	if min := l.hist.Min(); v < min {
		v = min
	}
	return v
}

// Min returns the smallest recorded sample in microseconds.
func (l *Latency) Min() int64 {
	if l.empty() {
		return 0
	}
	return l.hist.Min()
}

// Max returns the largest recorded sample in microseconds.
func (l *Latency) Max() int64 {
	if l.empty() {
		return 0
	}
	return l.hist.Max()
}

// Mean returns the mean sample in microseconds.
func (l *Latency) Mean() float64 {
	if l.empty() {
		return 0
	}
	return l.hist.Mean()
}

// Equal reports whether both accumulators hold identical bucket counts.
func (l *Latency) Equal(other *Latency) bool {
	if l.Count() != other.Count() {
		return false
	}
	if l.Count() == 0 {
		return true
	}
	a, b := l.hist.Distribution(), other.hist.Distribution()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
