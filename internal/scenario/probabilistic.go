package scenario

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

const (
	digestEvery    = 100
	digestQuantile = 0.5
)

// runProbabilistic exercises a bloom filter on every request and a t-digest
// on every 100th.
func runProbabilistic(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		bloomKey := fmt.Sprintf("bench_bloom:%d", w.ID)
		digestKey := fmt.Sprintf("bench_td:%d", w.ID)
		pace := newPacer(env.Settings.RatePerWorker)
		stats := metrics.NewRunStats()

		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			item := "item_" + strconv.Itoa(i)

			start := time.Now()
			if err := conn.BloomAdd(ctx, bloomKey, item); err != nil {
				return nil, fmt.Errorf("BF.ADD %s: %w", bloomKey, err)
			}
			stats.Observe(time.Since(start))

			start = time.Now()
			if _, err := conn.BloomExists(ctx, bloomKey, item); err != nil {
				return nil, fmt.Errorf("BF.EXISTS %s: %w", bloomKey, err)
			}
			stats.Observe(time.Since(start))

			if i%digestEvery == 0 {
				start = time.Now()
				if err := conn.DigestAdd(ctx, digestKey, float64(i)); err != nil {
					return nil, fmt.Errorf("TD.ADD %s: %w", digestKey, err)
				}
				stats.Observe(time.Since(start))

				start = time.Now()
				if _, err := conn.DigestQuantile(ctx, digestKey, digestQuantile); err != nil {
					return nil, fmt.Errorf("TD.QUANTILE %s: %w", digestKey, err)
				}
				stats.Observe(time.Since(start))
			}
		}

		stats.Credit(2 * w.Requests)
		return stats, nil
	})
}
