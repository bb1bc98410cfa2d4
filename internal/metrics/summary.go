package metrics

import "time"

// LatencySummary holds the reported latency quantiles in microseconds.
type LatencySummary struct {
	Samples int64   `json:"samples" yaml:"samples"`
	MinUs   int64   `json:"min_us" yaml:"min_us"`
	MeanUs  float64 `json:"mean_us" yaml:"mean_us"`
	P50Us   int64   `json:"p50_us" yaml:"p50_us"`
	P90Us   int64   `json:"p90_us" yaml:"p90_us"`
	P99Us   int64   `json:"p99_us" yaml:"p99_us"`
	P999Us  int64   `json:"p999_us" yaml:"p999_us"`
	MaxUs   int64   `json:"max_us" yaml:"max_us"`
}

// Summary is the reporting view of an aggregated RunStats.
type Summary struct {
	Operations uint64        `json:"operations" yaml:"operations"`
	Duration   time.Duration `json:"-" yaml:"-"`
	DurationMs float64       `json:"duration_ms" yaml:"duration_ms"`
	// Throughput in operations per second; nil when the duration is zero.
	Throughput *float64        `json:"throughput_ops_per_sec" yaml:"throughput_ops_per_sec"`
	Latency    *LatencySummary `json:"latency,omitempty" yaml:"latency,omitempty"`
}

// Summarize computes the report values for stats measured over elapsed.
func Summarize(stats *RunStats, elapsed time.Duration) Summary {
	if stats == nil {
		stats = NewRunStats()
	}
	summary := Summary{
		Operations: stats.Ops,
		Duration:   elapsed,
		DurationMs: float64(elapsed) / float64(time.Millisecond),
	}
	if elapsed > 0 {
		rps := float64(stats.Ops) / elapsed.Seconds()
		summary.Throughput = &rps
	}

	lat := stats.Latencies
	if lat != nil && lat.Count() > 0 {
		summary.Latency = &LatencySummary{
			Samples: lat.Count(),
			MinUs:   lat.Min(),
			MeanUs:  lat.Mean(),
			P50Us:   lat.Quantile(0.50),
			P90Us:   lat.Quantile(0.90),
			P99Us:   lat.Quantile(0.99),
			P999Us:  lat.Quantile(0.999),
			MaxUs:   lat.Max(),
		}
	}
	return summary
}
