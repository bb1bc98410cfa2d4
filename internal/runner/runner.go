package runner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/torosent/kvcrank/internal/metrics"
	"github.com/torosent/kvcrank/internal/preflight"
	"github.com/torosent/kvcrank/internal/scenario"
	"github.com/torosent/kvcrank/internal/tracing"
)

// WorkerFailure is a worker that returned an error or panicked.
type WorkerFailure struct {
	WorkerID int
	Err      error
}

func (f WorkerFailure) Error() string {
	return fmt.Sprintf("worker %d: %v", f.WorkerID, f.Err)
}

func (f WorkerFailure) Unwrap() error { return f.Err }

// Result captures execution summary.
type Result struct {
	Stats    *metrics.RunStats // merged stats of successful workers, never nil
	Duration time.Duration     // fan-out to last join, zero when aborted
	Spawned  int
	Failures []WorkerFailure // ordered by worker id

	Aborted bool  // the precondition gate refused the run
	GateErr error // why the gate refused, if it said
}

// Succeeded is the number of workers whose stats were merged.
func (r Result) Succeeded() int { return r.Spawned - len(r.Failures) }

// AllFailed reports whether the run produced no usable worker at all.
func (r Result) AllFailed() bool {
	return r.Aborted || (r.Spawned > 0 && r.Succeeded() == 0)
}

// Err combines every worker failure into one error, nil when none failed.
func (r Result) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, f)
	}
	return err
}

// Runner fans a scenario out over concurrent workers.
type Runner struct {
	opt Options
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{opt: opt}
}

// Run checks the gate, runs every worker to completion and merges the
// results. Failed workers are reported in Result.Failures and never abort the
// others.
func (r *Runner) Run(ctx context.Context) Result {
	kind := r.opt.Kind.String()
	ctx, span := tracing.StartRunSpan(ctx, r.opt.Tracer, kind, r.opt.Clients, r.opt.Requests)

	ok, gateErr := r.opt.Gate.Check(ctx, r.opt.Env.Connector)
	if !ok {
		spanErr := gateErr
		if spanErr == nil {
			spanErr = preflight.ErrFailed
		}
		tracing.EndSpan(span, spanErr, attribute.Bool("kvcrank.aborted", true))
		return Result{Stats: metrics.NewRunStats(), Aborted: true, GateErr: gateErr}
	}

	slots := make([]*metrics.RunStats, r.opt.Clients)
	errs := make([]error, r.opt.Clients)

	start := time.Now()
	var g errgroup.Group
	for id := 0; id < r.opt.Clients; id++ {
		g.Go(func() error {
			slots[id], errs[id] = r.runWorker(ctx, id)
			if r.opt.OnWorkerDone != nil {
				r.opt.OnWorkerDone(id, errs[id])
			}
			// Never propagated: a failed worker must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	res := Result{Stats: metrics.NewRunStats(), Duration: elapsed, Spawned: r.opt.Clients}
	for id := range slots {
		if errs[id] != nil {
			failure := WorkerFailure{WorkerID: id, Err: errs[id]}
			res.Failures = append(res.Failures, failure)
			if r.opt.Logger != nil {
				r.opt.Logger.LogFailure(failure)
			}
			continue
		}
		res.Stats.Merge(slots[id])
	}

	tracing.EndSpan(span, res.Err(),
		attribute.Int64("kvcrank.operations", int64(res.Stats.Ops)),
		attribute.Int("kvcrank.failed_workers", len(res.Failures)),
	)
	return res
}

func (r *Runner) runWorker(ctx context.Context, id int) (stats *metrics.RunStats, err error) {
	w := scenario.Worker{ID: id, Requests: r.opt.Requests, Kind: r.opt.Kind}
	ctx, span := tracing.StartWorkerSpan(ctx, r.opt.Tracer, w.Kind.String(), id)
	defer func() {
		if p := recover(); p != nil {
			stats, err = nil, fmt.Errorf("panic: %v", p)
		}
		tracing.EndSpan(span, err)
	}()

	stats, err = r.opt.Worker(ctx, r.opt.Env, w)
	if err == nil && stats == nil {
		stats = metrics.NewRunStats()
	}
	return stats, err
}
