package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
)

const (
	DefaultPipelineBatch     = 100
	DefaultBackpressureBatch = 5000
	DefaultPubSubChannel     = "bench_pubsub"
	DefaultPubSubWarmup      = time.Second
	DefaultPubSubIdleTimeout = 3 * time.Second
)

// Worker is the immutable assignment of one worker.
type Worker struct {
	ID       int
	Requests int
	Kind     Kind
}

// Settings tune the scenarios. Zero values fall back to the defaults.
type Settings struct {
	PipelineBatch     int
	BackpressureBatch int
	PubSubChannel     string
	PubSubWarmup      time.Duration // publisher delay before the first PUBLISH
	PubSubIdleTimeout time.Duration // subscriber gives up after this much silence
	RatePerWorker     int           // iterations per second per worker, 0 means unlimited
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	s := Settings{}
	s.normalize()
	return s
}

func (s *Settings) normalize() {
	if s.PipelineBatch <= 0 {
		s.PipelineBatch = DefaultPipelineBatch
	}
	if s.BackpressureBatch <= 0 {
		s.BackpressureBatch = DefaultBackpressureBatch
	}
	if s.PubSubChannel == "" {
		s.PubSubChannel = DefaultPubSubChannel
	}
	// A negative warm-up disables the publisher delay.
	if s.PubSubWarmup == 0 {
		s.PubSubWarmup = DefaultPubSubWarmup
	}
	if s.PubSubIdleTimeout <= 0 {
		s.PubSubIdleTimeout = DefaultPubSubIdleTimeout
	}
	if s.RatePerWorker < 0 {
		s.RatePerWorker = 0
	}
}

// Env is what every strategy shares: the connector and the run settings.
type Env struct {
	Connector kvclient.Connector
	Settings  Settings
}

// Strategy runs one worker to completion.
type Strategy func(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error)

var strategies = map[Kind]Strategy{
	KindBasic:           runBasic,
	KindComplex:         runComplex,
	KindLargePayload:    runLargePayload,
	KindPipeline:        runPipeline,
	KindBackpressure:    runBackpressure,
	KindConnectionChurn: runConnectionChurn,
	KindPubSub:          runPubSub,
	KindProbabilistic:   runProbabilistic,
	KindLuaStress:       runLuaStress,
	KindWorkloadSkew:    runWorkloadSkew,
}

// Run executes the strategy selected by w.Kind.
func Run(ctx context.Context, env Env, w Worker) (*metrics.RunStats, error) {
	strategy, ok := strategies[w.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q", w.Kind)
	}
	if env.Connector == nil {
		return nil, fmt.Errorf("scenario %s: no connector", w.Kind)
	}
	if w.Requests < 0 {
		w.Requests = 0
	}
	env.Settings.normalize()
	return strategy(ctx, env, w)
}

// withConn acquires a session for the lifetime of fn and always releases it.
func withConn(ctx context.Context, c kvclient.Connector, fn func(kvclient.Conn) (*metrics.RunStats, error)) (*metrics.RunStats, error) {
	conn, err := c.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}
