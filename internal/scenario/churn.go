package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

// runConnectionChurn opens a fresh session per request, pings once and closes
// it again. Each sample covers the whole connect, PING and close cycle.
func runConnectionChurn(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	pace := newPacer(env.Settings.RatePerWorker)
	stats := metrics.NewRunStats()

	for i := 0; i < w.Requests; i++ {
		if err := pace.wait(ctx); err != nil {
			return nil, err
		}
		start := time.Now()
		if err := pingOnce(ctx, env.Connector); err != nil {
			return nil, fmt.Errorf("churn iteration %d: %w", i, err)
		}
		stats.Observe(time.Since(start))
	}

	stats.Credit(w.Requests)
	return stats, nil
}

func pingOnce(ctx context.Context, c kvclient.Connector) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("PING: %w", err)
	}
	return nil
}
