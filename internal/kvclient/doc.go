// Package kvclient adapts github.com/redis/go-redis/v9 to the narrow set of
// commands the load scenarios issue.
//
// A [Client] is the shared handle every worker starts from. It is safe for
// concurrent use and holds only immutable connection options. Each call to
// [Client.Connect] returns a [Conn] backed by its own single-connection pool,
// so a worker owns its session exclusively until it calls Close. Command
// retries are disabled: a failed command is reported to the caller as is.
//
//	client := kvclient.NewClient(kvclient.Config{Host: "127.0.0.1", Port: 6379})
//	conn, err := client.Connect(ctx)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	if err := conn.Set(ctx, "bench:0:0", "val_0"); err != nil {
//		return err
//	}
//
// Pub/sub consumers use [Client.Subscribe]. [Subscription.Receive] waits at
// most the given timeout for the next published message and returns
// [ErrReceiveTimeout] when it expires, which lets callers implement explicit
// idle deadlines.
//
// [NewTestClient] wraps an existing *redis.Client (for example one created by
// redismock) and hands the same client to every Connect call.
package kvclient
