// Package metrics holds the mergeable result types produced by load workers.
//
// Every worker owns one [RunStats] for its whole lifetime: an operation
// counter plus a [Latency] accumulator backed by an HDR histogram with three
// significant figures. Nothing here is locked. Workers never share a RunStats,
// and the runner folds the per-worker values together only after every worker
// has been joined:
//
//	total := metrics.NewRunStats()
//	for _, s := range perWorker {
//		total.Merge(s)
//	}
//	summary := metrics.Summarize(total, elapsed)
//
// # Merge
//
// [RunStats.Merge] sums operation counts and merges histograms bucket by
// bucket, so folding in any order or grouping yields the same counts and the
// same quantiles.
//
// # Summary
//
// [Summary] is the reporting view of a RunStats: total operations, wall-clock
// duration, throughput and the p50/p90/p99/p99.9/max latency in microseconds.
// Throughput is reported as unavailable (nil) when the duration is zero, and
// the latency block is omitted when no sample was recorded.
package metrics
