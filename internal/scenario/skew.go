package scenario

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

const (
	skewKeys     = 1000
	skewExponent = 1.01
)

// newKeyPicker returns a Zipf-distributed key rank generator in [1, skewKeys],
// seeded by the worker id.
func newKeyPicker(workerID int) func() uint64 {
	rng := rand.New(rand.NewSource(int64(workerID)))
	zipf := rand.NewZipf(rng, skewExponent, 1, skewKeys-1)
	return func() uint64 { return zipf.Uint64() + 1 }
}

func runWorkloadSkew(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		next := newKeyPicker(w.ID)
		pace := newPacer(env.Settings.RatePerWorker)
		stats := metrics.NewRunStats()

		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			key := fmt.Sprintf("skew_key:%d", next())

			start := time.Now()
			if err := conn.Set(ctx, key, "val"); err != nil {
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
