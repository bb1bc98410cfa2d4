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
	smallPayloadSize  = 10 * 1024
	largePayloadSize  = 100 * 1024
	largePayloadEvery = 10

	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// payloads builds the two values a large-payload worker alternates between.
// The same worker id always yields the same bytes.
func payloads(workerID int) (small, large string) {
	rng := rand.New(rand.NewSource(int64(workerID)))
	return randomString(rng, smallPayloadSize), randomString(rng, largePayloadSize)
}

func randomString(rng *rand.Rand, n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphanumeric[rng.Intn(len(alphanumeric))]
	}
	return string(b)
}

func runLargePayload(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	// Generated once so payload construction does not skew the latencies.
	small, large := payloads(w.ID)

	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		pace := newPacer(env.Settings.RatePerWorker)
		stats := metrics.NewRunStats()

		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			key := fmt.Sprintf("bench_large:%d:%d", w.ID, i)
			val := small
			if i%largePayloadEvery == 0 {
				val = large
			}

			start := time.Now()
			if err := conn.Set(ctx, key, val); err != nil {
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
