package runner_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/torosent/kvcrank/internal/kvclient"
)

func multierrLen(err error) []error { return multierr.Errors(err) }

// memConnector hands out sessions backed by one shared map.
type memConnector struct {
	mu     sync.Mutex
	data   map[string]string
	opened int64
	closed int64
}

func (m *memConnector) Connect(ctx context.Context) (kvclient.Conn, error) {
	atomic.AddInt64(&m.opened, 1)
	return &memConn{m: m}, nil
}

func (m *memConnector) Subscribe(ctx context.Context, channel string) (kvclient.Subscription, error) {
	return nil, kvclient.ErrSubscriptionClosed
}

type memConn struct {
	kvclient.Conn // unimplemented commands panic
	m             *memConnector
}

func (c *memConn) Set(ctx context.Context, key string, value any) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	if c.m.data == nil {
		c.m.data = map[string]string{}
	}
	c.m.data[key], _ = value.(string)
	return nil
}

func (c *memConn) Get(ctx context.Context, key string) (string, error) {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	v, ok := c.m.data[key]
	if !ok {
		return "", kvclient.ErrNil
	}
	return v, nil
}

func (c *memConn) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

func (c *memConn) Close() error {
	atomic.AddInt64(&c.m.closed, 1)
	return nil
}
