package kvclient

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

type subscription struct {
	ps      *redis.PubSub
	release func() error
}

func (s *subscription) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", ErrReceiveTimeout
		}
		msg, err := s.ps.ReceiveTimeout(ctx, remaining)
		if err != nil {
			switch {
			case isTimeout(err):
				return "", ErrReceiveTimeout
			case errors.Is(err, redis.ErrClosed), errors.Is(err, io.EOF):
				return "", ErrSubscriptionClosed
			default:
				return "", err
			}
		}
		// Subscription confirmations and pongs do not count as messages.
		if m, ok := msg.(*redis.Message); ok {
			return m.Payload, nil
		}
	}
}

func (s *subscription) Close() error {
	return multierr.Combine(s.ps.Close(), s.release())
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
