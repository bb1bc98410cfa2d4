package kvclient

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNil is returned when the server replies with a nil value.
	ErrNil = errors.New("kvclient: nil reply")
	// ErrReceiveTimeout is returned by Subscription.Receive when no message
	// arrived before the timeout.
	ErrReceiveTimeout = errors.New("kvclient: receive timed out")
	// ErrSubscriptionClosed is returned once the subscription stream ended.
	ErrSubscriptionClosed = errors.New("kvclient: subscription closed")
)

// Entry is one key/value pair of a batched SET.
type Entry struct {
	Key   string
	Value any
}

// Conn is a session with the server owned by a single worker.
type Conn interface {
	Set(ctx context.Context, key string, value any) error
	Get(ctx context.Context, key string) (string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)

	ZAdd(ctx context.Context, key, member string, score float64) error
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LPush(ctx context.Context, key string, value any) error
	RPop(ctx context.Context, key string) (string, error)

	Ping(ctx context.Context) error
	Publish(ctx context.Context, channel, message string) (int64, error)

	// SetBatch sends every SET in one round trip and discards the replies.
	SetBatch(ctx context.Context, entries []Entry) error

	BloomAdd(ctx context.Context, key, item string) error
	BloomExists(ctx context.Context, key, item string) (bool, error)
	DigestAdd(ctx context.Context, key string, value float64) error
	DigestQuantile(ctx context.Context, key string, q float64) (float64, error)

	RunScript(ctx context.Context, script *Script, keys []string, args ...any) error

	Close() error
}

// Subscription is a pub/sub stream owned by a single worker.
type Subscription interface {
	// Receive returns the payload of the next published message, waiting at
	// most timeout.
	Receive(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}

// Connector hands out exclusively owned sessions. Implementations must be
// safe for concurrent use.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}
