// Package scenario implements the traffic shapes a load worker can run.
//
// Each [Kind] maps to exactly one [Strategy] in a fixed table. A strategy
// receives the shared connector, the run [Settings] and its [Worker]
// assignment, acquires whatever sessions it needs, issues Requests
// iterations and returns the worker's [metrics.RunStats]:
//
//	stats, err := scenario.Run(ctx, scenario.Env{Connector: client}, scenario.Worker{
//		ID:       3,
//		Requests: 1000,
//		Kind:     scenario.KindBasic,
//	})
//
// Strategies never share state with other workers. Any command failure ends
// the strategy immediately with an error and no statistics; nothing is
// retried. Every acquired session is closed on every return path.
//
// # Credits and samples
//
//   - basic, large-payload, workload-skew: 2 ops per request, one latency
//     sample per command.
//   - complex: 3 ops per request, one sample per command.
//   - pipeline: 1 op per request, batched, no latency samples.
//   - backpressure: 1 op per request, one sample per batch round trip.
//   - connection-churn: 1 op per request, one sample per connect+PING+close.
//   - pubsub: the publisher credits every published message, subscribers
//     credit what they actually received.
//   - probabilistic: 2 ops per request, one sample per command.
//   - lua-stress: 1 op per request, one sample per script invocation.
package scenario
