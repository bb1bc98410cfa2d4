package scenario

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

func runBasic(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		pace := newPacer(env.Settings.RatePerWorker)
		stats := metrics.NewRunStats()

		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			key := fmt.Sprintf("bench:%d:%d", w.ID, i)

			start := time.Now()
			if err := conn.Set(ctx, key, "val_"+strconv.Itoa(i)); err != nil {
				return nil, fmt.Errorf("SET %s: %w", key, err)
			}
			stats.Observe(time.Since(start))

			start = time.Now()
			if _, err := conn.Get(ctx, key); err != nil {
				return nil, fmt.Errorf("GET %s: %w", key, err)
			}
			stats.Observe(time.Since(start))
		}

		stats.Credit(2 * w.Requests)
		return stats, nil
	})
}
