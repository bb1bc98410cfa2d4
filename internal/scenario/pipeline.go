package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

// runPipeline sends SETs in batches of Settings.PipelineBatch, each batch in a
// single round trip. Only the operation count is recorded.
func runPipeline(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		stats := metrics.NewRunStats()
		pace := newPacer(env.Settings.RatePerWorker)
		batch := make([]kvclient.Entry, 0, env.Settings.PipelineBatch)

		for executed := 0; executed < w.Requests; {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			n := min(env.Settings.PipelineBatch, w.Requests-executed)
			batch = batch[:0]
			for j := 0; j < n; j++ {
				batch = append(batch, kvclient.Entry{
					Key:   fmt.Sprintf("bench_pipe:%d:%d", w.ID, executed+j),
					Value: "v",
				})
			}
			if err := conn.SetBatch(ctx, batch); err != nil {
				return nil, fmt.Errorf("pipeline batch at %d: %w", executed, err)
			}
			executed += n
			stats.Credit(n)
		}
		return stats, nil
	})
}

// runBackpressure pushes very large synchronous batches at one key and
// records the round-trip time of each batch.
func runBackpressure(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		stats := metrics.NewRunStats()
		pace := newPacer(env.Settings.RatePerWorker)

		size := min(env.Settings.BackpressureBatch, w.Requests)
		full := make([]kvclient.Entry, size)
		for j := range full {
			full[j] = kvclient.Entry{Key: "bp_key", Value: "val"}
		}

		for executed := 0; executed < w.Requests; {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			n := min(env.Settings.BackpressureBatch, w.Requests-executed)

			start := time.Now()
			if err := conn.SetBatch(ctx, full[:n]); err != nil {
				return nil, fmt.Errorf("backpressure batch at %d: %w", executed, err)
			}
			stats.Observe(time.Since(start))

			executed += n
		}

		stats.Credit(w.Requests)
		return stats, nil
	})
}
