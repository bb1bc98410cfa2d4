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

// publisherID is the only worker that publishes; every other worker
// subscribes.
const publisherID = 0

func runPubSub(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	if w.ID == publisherID {
		return runPublisher(ctx, env, w)
	}
	return runSubscriber(ctx, env, w)
}

func runPublisher(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	// Give subscribers time to connect before the first message.
	if warmup := env.Settings.PubSubWarmup; warmup > 0 {
		timer := time.NewTimer(warmup)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return withConn(ctx, env.Connector, func(conn kvclient.Conn) (*metrics.RunStats, error) {
		pace := newPacer(env.Settings.RatePerWorker)
		channel := env.Settings.PubSubChannel
		for i := 0; i < w.Requests; i++ {
			if err := pace.wait(ctx); err != nil {
				return nil, err
			}
			if _, err := conn.Publish(ctx, channel, "msg_"+strconv.Itoa(i)); err != nil {
				return nil, fmt.Errorf("PUBLISH %s: %w", channel, err)
			}
		}
		stats := metrics.NewRunStats()
		stats.Credit(w.Requests)
		return stats, nil
	})
}

// runSubscriber reads until it has seen w.Requests messages or the channel
// stayed silent for the idle timeout. The idle deadline restarts after every
// message, so the subscriber never blocks longer than one idle period.
func runSubscriber(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	channel := env.Settings.PubSubChannel
	sub, err := env.Connector.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("SUBSCRIBE %s: %w", channel, err)
	}
	defer sub.Close()

	idle := env.Settings.PubSubIdleTimeout
	deadline := time.Now().Add(idle)
	received := 0

poll:
	for received < w.Requests {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		_, err := sub.Receive(ctx, remaining)
		switch {
		case err == nil:
			received++
			deadline = time.Now().Add(idle)
		case errors.Is(err, kvclient.ErrReceiveTimeout), errors.Is(err, kvclient.ErrSubscriptionClosed):
			break poll
		default:
			return nil, fmt.Errorf("receive on %s: %w", channel, err)
		}
	}

	stats := metrics.NewRunStats()
	stats.Credit(received)
	return stats, nil
}
