package scenario

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
)

var errInjected = errors.New("injected failure")

// fakeServer is an in-memory stand-in for the key-value server. Every Conn
// and Subscription it hands out records into the same log.
type fakeServer struct {
	mu sync.Mutex

	data     map[string]string
	lists    map[string][]string
	batches  []int
	commands map[string]int
	messages chan string

	connects int
	closes   int
	subs     int
	subClose int

	// failOn makes the named command fail once it has been issued failAfter times.
	failOn       string
	failAfter    int
	connectErr   error
	subscribeErr error
	// dropPushes discards LPUSH values so every RPOP sees an empty list.
	dropPushes bool
	// endStream closes every subscription once it has delivered
	// endStreamAfter messages.
	endStream      bool
	endStreamAfter int
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		data:     map[string]string{},
		lists:    map[string][]string{},
		commands: map[string]int{},
		messages: make(chan string, 1024),
	}
}

func (s *fakeServer) Connect(ctx context.Context) (kvclient.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	s.connects++
	return &fakeConn{srv: s}, nil
}

func (s *fakeServer) Subscribe(ctx context.Context, channel string) (kvclient.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subscribeErr != nil {
		return nil, s.subscribeErr
	}
	s.subs++
	return &fakeSub{srv: s}, nil
}

func (s *fakeServer) count(cmd string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commands[cmd]
}

func (s *fakeServer) hit(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[cmd]++
	if s.failOn == cmd && s.commands[cmd] > s.failAfter {
		return errInjected
	}
	return nil
}

type fakeConn struct {
	srv    *fakeServer
	closed bool
}

func (c *fakeConn) Set(ctx context.Context, key string, value any) error {
	if err := c.srv.hit("SET"); err != nil {
		return err
	}
	c.srv.mu.Lock()
	c.srv.data[key] = toString(value)
	c.srv.mu.Unlock()
	return nil
}

func (c *fakeConn) Get(ctx context.Context, key string) (string, error) {
	if err := c.srv.hit("GET"); err != nil {
		return "", err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	v, ok := c.srv.data[key]
	if !ok {
		return "", kvclient.ErrNil
	}
	return v, nil
}

func (c *fakeConn) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.srv.hit("EXPIRE")
}

func (c *fakeConn) TTL(ctx context.Context, key string) (time.Duration, error) {
	return time.Second, c.srv.hit("TTL")
}

func (c *fakeConn) ZAdd(ctx context.Context, key, member string, score float64) error {
	return c.srv.hit("ZADD")
}

func (c *fakeConn) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return nil, c.srv.hit("ZRANGE")
}

func (c *fakeConn) LPush(ctx context.Context, key string, value any) error {
	if err := c.srv.hit("LPUSH"); err != nil {
		return err
	}
	c.srv.mu.Lock()
	if !c.srv.dropPushes {
		c.srv.lists[key] = append([]string{toString(value)}, c.srv.lists[key]...)
	}
	c.srv.mu.Unlock()
	return nil
}

func (c *fakeConn) RPop(ctx context.Context, key string) (string, error) {
	if err := c.srv.hit("RPOP"); err != nil {
		return "", err
	}
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	l := c.srv.lists[key]
	if len(l) == 0 {
		return "", kvclient.ErrNil
	}
	v := l[len(l)-1]
	c.srv.lists[key] = l[:len(l)-1]
	return v, nil
}

func (c *fakeConn) Ping(ctx context.Context) error { return c.srv.hit("PING") }

func (c *fakeConn) Publish(ctx context.Context, channel, message string) (int64, error) {
	if err := c.srv.hit("PUBLISH"); err != nil {
		return 0, err
	}
	c.srv.messages <- message
	return 1, nil
}

func (c *fakeConn) SetBatch(ctx context.Context, entries []kvclient.Entry) error {
	if err := c.srv.hit("BATCH"); err != nil {
		return err
	}
	c.srv.mu.Lock()
	c.srv.batches = append(c.srv.batches, len(entries))
	for _, e := range entries {
		c.srv.data[e.Key] = toString(e.Value)
	}
	c.srv.mu.Unlock()
	return nil
}

func (c *fakeConn) BloomAdd(ctx context.Context, key, item string) error {
	return c.srv.hit("BF.ADD")
}

func (c *fakeConn) BloomExists(ctx context.Context, key, item string) (bool, error) {
	return true, c.srv.hit("BF.EXISTS")
}

func (c *fakeConn) DigestAdd(ctx context.Context, key string, value float64) error {
	return c.srv.hit("TD.ADD")
}

func (c *fakeConn) DigestQuantile(ctx context.Context, key string, q float64) (float64, error) {
	return 0, c.srv.hit("TD.QUANTILE")
}

func (c *fakeConn) RunScript(ctx context.Context, script *kvclient.Script, keys []string, args ...any) error {
	return c.srv.hit("EVALSHA")
}

func (c *fakeConn) Close() error {
	c.srv.mu.Lock()
	defer c.srv.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.srv.closes++
	}
	return nil
}

type fakeSub struct {
	srv       *fakeServer
	delivered int
}

func (s *fakeSub) Receive(ctx context.Context, timeout time.Duration) (string, error) {
	if s.srv.endStream && s.delivered >= s.srv.endStreamAfter {
		return "", kvclient.ErrSubscriptionClosed
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-s.srv.messages:
		s.delivered++
		return msg, nil
	case <-timer.C:
		return "", kvclient.ErrReceiveTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *fakeSub) Close() error {
	s.srv.mu.Lock()
	s.srv.subClose++
	s.srv.mu.Unlock()
	return nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return "?"
	}
}
