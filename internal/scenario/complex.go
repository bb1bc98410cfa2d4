package scenario

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

const (
	complexRangeEvery = 100
	complexRangeStop  = 50
)

// runComplex mixes sorted-set writes, an occasional range read and a list
// used as a queue.
func runComplex(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		zsetKey := fmt.Sprintf("bench_zset:%d", w.ID)
		listKey := fmt.Sprintf("bench_list:%d", w.ID)
		pace := newPacer(env.Settings.RatePerWorker)
		stats := metrics.NewRunStats()

		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			idx := strconv.Itoa(i)

			start := time.Now()
			if err := conn.ZAdd(ctx, zsetKey, "user_"+idx, float64(i)); err != nil {
				return nil, fmt.Errorf("ZADD %s: %w", zsetKey, err)
			}
			stats.Observe(time.Since(start))

			if i%complexRangeEvery == 0 {
				start = time.Now()
				if _, err := conn.ZRange(ctx, zsetKey, 0, complexRangeStop); err != nil {
					return nil, fmt.Errorf("ZRANGE %s: %w", zsetKey, err)
				}
				stats.Observe(time.Since(start))
			}

			start = time.Now()
			if err := conn.LPush(ctx, listKey, "msg_"+idx); err != nil {
				return nil, fmt.Errorf("LPUSH %s: %w", listKey, err)
			}
			stats.Observe(time.Since(start))

			// An empty list is fine here.
			start = time.Now()
			if _, err := conn.RPop(ctx, listKey); err != nil && !errors.Is(err, kvclient.ErrNil) {
				return nil, fmt.Errorf("RPOP %s: %w", listKey, err)
			}
			stats.Observe(time.Since(start))
		}

		stats.Credit(3 * w.Requests)
		return stats, nil
	})
}
