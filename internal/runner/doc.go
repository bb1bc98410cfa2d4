// Package runner provides the core load test execution engine for kvcrank.
//
// A [Runner] checks a precondition gate once, then starts one goroutine per
// client. Every worker runs the same scenario against its own connection and
// returns a [metrics.RunStats]. After all workers have been joined the
// successful results are merged into a single value; failed workers are
// reported individually in [Result.Failures].
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Clients:  50,
//		Requests: 1000,
//		Kind:     scenario.KindBasic,
//		Env:      scenario.Env{Connector: client},
//		Gate:     preflight.NewFeatureCheck(),
//	})
//	res := r.Run(ctx)
//	if res.Aborted {
//		// the server failed the gate, nothing ran
//	}
//
// There is no retry anywhere in the runner: a failed worker is not restarted,
// and its partial stats are discarded.
package runner
