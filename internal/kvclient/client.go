package kvclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

// Config holds the parameters used to reach the target server.
type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Tracing instruments every connection with OpenTelemetry spans.
	Tracing bool
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ParseURL reads the address, credentials and database index from a
// redis:// or rediss:// URL. Timeouts and tracing are left for the caller.
func ParseURL(rawURL string) (Config, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return Config{}, err
	}
	host, portStr, err := net.SplitHostPort(opts.Addr)
	if err != nil {
		return Config{}, fmt.Errorf("parse address %q: %w", opts.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return Config{}, fmt.Errorf("parse port %q: %w", portStr, err)
	}
	return Config{
		Host:     host,
		Port:     port,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

// Client is the shared, concurrency-safe handle workers connect through.
type Client struct {
	opts    redis.Options
	tracing bool
	shared  *redis.Client
}

var _ Connector = (*Client)(nil)

// NewClient creates a Client. No connection is opened until Connect.
func NewClient(cfg Config) *Client {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	return &Client{
		opts: redis.Options{
			Addr:         cfg.Addr(),
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			// One dedicated connection per worker; failures are never retried.
			PoolSize:        1,
			MinIdleConns:    0,
			MaxRetries:      -1,
			Protocol:        2,
			DisableIdentity: true,
		},
		tracing: cfg.Tracing,
	}
}

// NewTestClient returns a Client that hands rdb to every caller and never
// closes it.
func NewTestClient(rdb *redis.Client) *Client {
	return &Client{shared: rdb}
}

// Addr returns the target address.
func (c *Client) Addr() string {
	if c.shared != nil {
		return c.shared.Options().Addr
	}
	return c.opts.Addr
}

func (c *Client) open() (*redis.Client, func() error, error) {
	if c.shared != nil {
		return c.shared, func() error { return nil }, nil
	}
	opts := c.opts
	rdb := redis.NewClient(&opts)
	if c.tracing {
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("instrument tracing: %w", err)
		}
	}
	return rdb, rdb.Close, nil
}

// Connect returns a new exclusively owned session. The caller must Close it.
func (c *Client) Connect(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rdb, release, err := c.open()
	if err != nil {
		return nil, err
	}
	return &conn{rdb: rdb, release: release}, nil
}

// Subscribe opens a dedicated pub/sub session subscribed to channel.
func (c *Client) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	rdb, release, err := c.open()
	if err != nil {
		return nil, err
	}
	ps := rdb.Subscribe(ctx)
	if err := ps.Subscribe(ctx, channel); err != nil {
		_ = ps.Close()
		_ = release()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	return &subscription{ps: ps, release: release}, nil
}

type conn struct {
	rdb     *redis.Client
	release func() error
}

func (c *conn) Set(ctx context.Context, key string, value any) error {
	return c.rdb.Set(ctx, key, value, 0).Err()
}

func (c *conn) Get(ctx context.Context, key string) (string, error) {
	return nilAware(c.rdb.Get(ctx, key).Result())
}

func (c *conn) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

func (c *conn) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.rdb.TTL(ctx, key).Result()
}

func (c *conn) ZAdd(ctx context.Context, key, member string, score float64) error {
	return c.rdb.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (c *conn) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.rdb.ZRange(ctx, key, start, stop).Result()
}

func (c *conn) LPush(ctx context.Context, key string, value any) error {
	return c.rdb.LPush(ctx, key, value).Err()
}

func (c *conn) RPop(ctx context.Context, key string) (string, error) {
	return nilAware(c.rdb.RPop(ctx, key).Result())
}

func (c *conn) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *conn) Publish(ctx context.Context, channel, message string) (int64, error) {
	return c.rdb.Publish(ctx, channel, message).Result()
}

func (c *conn) SetBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, e.Key, e.Value, 0)
		}
		return nil
	})
	return err
}

func (c *conn) BloomAdd(ctx context.Context, key, item string) error {
	return c.rdb.Do(ctx, "BF.ADD", key, item).Err()
}

func (c *conn) BloomExists(ctx context.Context, key, item string) (bool, error) {
	return c.rdb.Do(ctx, "BF.EXISTS", key, item).Bool()
}

func (c *conn) DigestAdd(ctx context.Context, key string, value float64) error {
	return c.rdb.Do(ctx, "TD.ADD", key, value).Err()
}

func (c *conn) DigestQuantile(ctx context.Context, key string, q float64) (float64, error) {
	reply, err := c.rdb.Do(ctx, "TD.QUANTILE", key, q).Result()
	if err != nil {
		return 0, err
	}
	return replyFloat(reply)
}

func (c *conn) RunScript(ctx context.Context, script *Script, keys []string, args ...any) error {
	err := script.script.Run(ctx, c.rdb, keys, args...).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (c *conn) Close() error {
	return c.release()
}

func nilAware(val string, err error) (string, error) {
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	return val, err
}

// replyFloat accepts the reply shapes servers use for TD.QUANTILE: a bare
// double, a bulk string, or an array holding one of those.
func replyFloat(reply any) (float64, error) {
	switch v := reply.(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(v, 64)
	case []any:
		if len(v) == 0 {
			return 0, ErrNil
		}
		return replyFloat(v[0])
	case nil:
		return 0, ErrNil
	default:
		return 0, fmt.Errorf("unexpected reply type %T", reply)
	}
}
