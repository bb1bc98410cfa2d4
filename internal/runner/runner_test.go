package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/metrics"
	"github.com/torosent/kvcrank/internal/preflight"
	"github.com/torosent/kvcrank/internal/runner"
	"github.com/torosent/kvcrank/internal/scenario"
)

// creditingWorker credits twice the request count and records one sample per
// request, like a basic worker would.
func creditingWorker(calls *int64) runner.WorkerFunc {
	return func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error) {
		atomic.AddInt64(calls, 1)
		stats := metrics.NewRunStats()
		for i := 0; i < w.Requests; i++ {
			stats.Observe(time.Duration(w.ID+1) * time.Millisecond)
		}
		stats.Credit(2 * w.Requests)
		return stats, nil
	}
}

type recordingLogger struct {
	mu   sync.Mutex
	errs []error
}

func (l *recordingLogger) LogFailure(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, err)
}

func failingGate(err error) preflight.Gate {
	return preflight.GateFunc(func(context.Context, kvclient.Connector) (bool, error) {
		return false, err
	})
}

func TestRunMergesEveryWorker(t *testing.T) {
	var calls int64
	res := runner.New(runner.Options{
		Clients:  8,
		Requests: 25,
		Kind:     scenario.KindBasic,
		Worker:   creditingWorker(&calls),
	}).Run(context.Background())

	require.False(t, res.Aborted)
	assert.EqualValues(t, 8, calls)
	assert.Equal(t, 8, res.Spawned)
	assert.Equal(t, 8, res.Succeeded())
	assert.EqualValues(t, 8*2*25, res.Stats.Ops)
	assert.EqualValues(t, 8*25, res.Stats.Latencies.Count())
	assert.Empty(t, res.Failures)
	assert.NoError(t, res.Err())
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRunAssignsDistinctWorkerIDs(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]int{}
	res := runner.New(runner.Options{
		Clients:  16,
		Requests: 3,
		Kind:     scenario.KindPipeline,
		Worker: func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error) {
			mu.Lock()
			seen[w.ID]++
			mu.Unlock()
			assert.Equal(t, scenario.KindPipeline, w.Kind)
			assert.Equal(t, 3, w.Requests)
			return metrics.NewRunStats(), nil
		},
	}).Run(context.Background())

	assert.Equal(t, 16, res.Spawned)
	require.Len(t, seen, 16)
	for id := 0; id < 16; id++ {
		assert.Equal(t, 1, seen[id], "worker %d", id)
	}
}

func TestGateFailureSpawnsNothing(t *testing.T) {
	var calls int64
	gateErr := errors.New("key still present after expiry")
	res := runner.New(runner.Options{
		Clients:  4,
		Requests: 10,
		Kind:     scenario.KindBasic,
		Gate:     failingGate(gateErr),
		Worker:   creditingWorker(&calls),
	}).Run(context.Background())

	assert.True(t, res.Aborted)
	assert.True(t, res.AllFailed())
	assert.ErrorIs(t, res.GateErr, gateErr)
	assert.Zero(t, calls)
	assert.Zero(t, res.Spawned)
	assert.Zero(t, res.Stats.Ops)
	assert.Zero(t, res.Stats.Latencies.Count())
	assert.Zero(t, res.Duration)
}

func TestRefusedGateMarksRunSpanFailed(t *testing.T) {
	tests := []struct {
		name    string
		gateErr error
		want    error
	}{
		{"refused without reason", nil, preflight.ErrFailed},
		{"refused with reason", errors.New("expiry not honored"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

			res := runner.New(runner.Options{
				Clients: 2,
				Gate: preflight.GateFunc(func(context.Context, kvclient.Connector) (bool, error) {
					return false, tt.gateErr
				}),
				Tracer: tp.Tracer("test"),
			}).Run(context.Background())

			require.True(t, res.Aborted)
			assert.Equal(t, tt.gateErr, res.GateErr)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status.Code)
			wantMsg := tt.want
			if wantMsg == nil {
				wantMsg = tt.gateErr
			}
			assert.Equal(t, wantMsg.Error(), spans[0].Status.Description)
		})
	}
}

func TestGateRunsExactlyOnce(t *testing.T) {
	var checks int64
	gate := preflight.GateFunc(func(context.Context, kvclient.Connector) (bool, error) {
		atomic.AddInt64(&checks, 1)
		return true, nil
	})
	var calls int64
	runner.New(runner.Options{
		Clients: 5, Requests: 1, Kind: scenario.KindBasic,
		Gate: gate, Worker: creditingWorker(&calls),
	}).Run(context.Background())
	assert.EqualValues(t, 1, checks)
	assert.EqualValues(t, 5, calls)
}

func TestFailedWorkerIsExcluded(t *testing.T) {
	boom := errors.New("connection reset by peer")
	logger := &recordingLogger{}
	var calls int64
	ok := creditingWorker(&calls)

	res := runner.New(runner.Options{
		Clients:  4,
		Requests: 10,
		Kind:     scenario.KindBasic,
		Logger:   logger,
		Worker: func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error) {
			if w.ID == 2 {
				return nil, boom
			}
			return ok(ctx, env, w)
		},
	}).Run(context.Background())

	assert.False(t, res.Aborted)
	assert.False(t, res.AllFailed())
	assert.Equal(t, 3, res.Succeeded())
	assert.EqualValues(t, 3*2*10, res.Stats.Ops)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].WorkerID)
	assert.ErrorIs(t, res.Err(), boom)
	require.Len(t, logger.errs, 1)
	assert.Contains(t, logger.errs[0].Error(), "worker 2")
}

func TestPanickingWorkerIsAJoinFailure(t *testing.T) {
	var calls int64
	ok := creditingWorker(&calls)
	res := runner.New(runner.Options{
		Clients:  3,
		Requests: 4,
		Kind:     scenario.KindBasic,
		Worker: func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error) {
			if w.ID == 0 {
				panic("nil map write")
			}
			return ok(ctx, env, w)
		},
	}).Run(context.Background())

	require.Len(t, res.Failures, 1)
	assert.Equal(t, 0, res.Failures[0].WorkerID)
	assert.Contains(t, res.Failures[0].Error(), "panic: nil map write")
	assert.EqualValues(t, 2*2*4, res.Stats.Ops)
}

func TestAllWorkersFailing(t *testing.T) {
	res := runner.New(runner.Options{
		Clients:  3,
		Requests: 1,
		Kind:     scenario.KindBasic,
		Worker: func(context.Context, scenario.Env, scenario.Worker) (*metrics.RunStats, error) {
			return nil, errors.New("refused")
		},
	}).Run(context.Background())

	assert.True(t, res.AllFailed())
	assert.Len(t, multierrLen(res.Err()), 3)
	assert.Zero(t, res.Stats.Ops)
}

func TestOnWorkerDoneCalledForEveryWorker(t *testing.T) {
	var done, failed int64
	res := runner.New(runner.Options{
		Clients:  6,
		Requests: 1,
		Kind:     scenario.KindBasic,
		OnWorkerDone: func(id int, err error) {
			atomic.AddInt64(&done, 1)
			if err != nil {
				atomic.AddInt64(&failed, 1)
			}
		},
		Worker: func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error) {
			if w.ID%2 == 1 {
				return nil, errors.New("odd")
			}
			return metrics.NewRunStats(), nil
		},
	}).Run(context.Background())

	assert.EqualValues(t, 6, done)
	assert.EqualValues(t, 3, failed)
	assert.Len(t, res.Failures, 3)
}

func TestWorkersRunConcurrently(t *testing.T) {
	const clients = 10
	var running, peak int64
	res := runner.New(runner.Options{
		Clients:  clients,
		Requests: 1,
		Kind:     scenario.KindBasic,
		Worker: func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error) {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(30 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return metrics.NewRunStats(), nil
		},
	}).Run(context.Background())

	assert.Equal(t, clients, res.Succeeded())
	assert.Greater(t, peak, int64(1))
	assert.Less(t, res.Duration, time.Duration(clients)*30*time.Millisecond)
}

func TestZeroClients(t *testing.T) {
	res := runner.New(runner.Options{Kind: scenario.KindBasic}).Run(context.Background())
	assert.False(t, res.Aborted)
	assert.False(t, res.AllFailed())
	assert.Zero(t, res.Spawned)
	assert.Zero(t, res.Stats.Ops)
}

// TestRunWithScenarioStrategies drives the real strategy table through an
// in-memory connector.
func TestRunWithScenarioStrategies(t *testing.T) {
	conn := &memConnector{}
	res := runner.New(runner.Options{
		Clients:  4,
		Requests: 50,
		Kind:     scenario.KindBasic,
		Env:      scenario.Env{Connector: conn},
	}).Run(context.Background())

	require.Empty(t, res.Failures)
	assert.EqualValues(t, 4*2*50, res.Stats.Ops)
	assert.EqualValues(t, 4*2*50, res.Stats.Latencies.Count())
	assert.EqualValues(t, 4, atomic.LoadInt64(&conn.opened))
	assert.EqualValues(t, 4, atomic.LoadInt64(&conn.closed))
}
