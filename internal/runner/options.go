package runner

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/kvcrank/internal/metrics"
	"github.com/torosent/kvcrank/internal/preflight"
	"github.com/torosent/kvcrank/internal/scenario"
)

// FailureLogger logs failed workers.
type FailureLogger interface {
	LogFailure(err error)
}

// WorkerFunc runs a single worker to completion.
type WorkerFunc func(ctx context.Context, env scenario.Env, w scenario.Worker) (*metrics.RunStats, error)

// Options configure the Runner.
type Options struct {
	Clients  int           // number of concurrent workers
	Requests int           // iterations per worker
	Kind     scenario.Kind // traffic shape shared by every worker
	Env      scenario.Env  // connector and scenario settings

	Gate         preflight.Gate          // run once before any worker; nil always passes
	Logger       FailureLogger           // optional
	Tracer       trace.Tracer            // optional, no-op when nil
	OnWorkerDone func(id int, err error) // optional, called from worker goroutines
	Worker       WorkerFunc              // optional injection for tests; defaults to scenario.Run
}

func (o *Options) normalize() {
	if o.Clients < 0 {
		o.Clients = 0
	}
	if o.Requests < 0 {
		o.Requests = 0
	}
	if o.Gate == nil {
		o.Gate = preflight.Pass
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("kvcrank")
	}
	if o.Worker == nil {
		o.Worker = scenario.Run
	}
}
