// Package preflight verifies that the target server behaves like a key-value
// store with expiry before any load is generated.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/torosent/kvcrank/internal/kvclient"
)

const (
	probeKey   = "test_key"
	probeValue = "benchmark_val"
	probeTTL   = time.Second

	// DefaultExpiryWait must exceed probeTTL so the key has expired by the
	// time it is read back.
	DefaultExpiryWait = 1500 * time.Millisecond
)

// ErrFailed reports that the server answered but did not behave as expected.
var ErrFailed = errors.New("preflight check failed")

// Gate decides whether a run may proceed. Check returns false when the run
// must not start; the error, if any, says why.
type Gate interface {
	Check(ctx context.Context, c kvclient.Connector) (bool, error)
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, c kvclient.Connector) (bool, error)

func (f GateFunc) Check(ctx context.Context, c kvclient.Connector) (bool, error) { return f(ctx, c) }

// Pass is a gate that always lets the run proceed.
var Pass Gate = GateFunc(func(context.Context, kvclient.Connector) (bool, error) { return true, nil })

// FeatureCheck writes a probe key, reads it back, puts a one second expiry on
// it and confirms the key is gone after ExpiryWait.
type FeatureCheck struct {
	ExpiryWait time.Duration
}

// NewFeatureCheck returns a FeatureCheck with the default expiry wait.
func NewFeatureCheck() *FeatureCheck {
	return &FeatureCheck{ExpiryWait: DefaultExpiryWait}
}

// Check reports whether the server passed. A server that answered wrongly
// yields an error wrapping ErrFailed; an unreachable one yields the transport
// error.
func (f *FeatureCheck) Check(ctx context.Context, c kvclient.Connector) (bool, error) {
	if err := f.probe(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}

func (f *FeatureCheck) probe(ctx context.Context, c kvclient.Connector) error {
	conn, err := c.Connect(ctx)
	if err != nil {
		return fmt.Errorf("preflight connect: %w", err)
	}
	defer conn.Close()

	if err := conn.Set(ctx, probeKey, probeValue); err != nil {
		return fmt.Errorf("preflight SET: %w", err)
	}
	got, err := conn.Get(ctx, probeKey)
	switch {
	case errors.Is(err, kvclient.ErrNil):
		return fmt.Errorf("%w: %s missing right after SET", ErrFailed, probeKey)
	case err != nil:
		return fmt.Errorf("preflight GET: %w", err)
	case got != probeValue:
		return fmt.Errorf("%w: GET %s returned %q, want %q", ErrFailed, probeKey, got, probeValue)
	}

	if err := conn.Expire(ctx, probeKey, probeTTL); err != nil {
		return fmt.Errorf("preflight EXPIRE: %w", err)
	}
	// Informational only. Some servers report -1 until the first tick.
	if _, err := conn.TTL(ctx, probeKey); err != nil {
		return fmt.Errorf("preflight TTL: %w", err)
	}

	wait := f.ExpiryWait
	if wait <= 0 {
		wait = DefaultExpiryWait
	}
	timer := time.NewTimer(wait)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}

	got, err = conn.Get(ctx, probeKey)
	switch {
	case errors.Is(err, kvclient.ErrNil):
		return nil
	case err != nil:
		return fmt.Errorf("preflight GET after expiry: %w", err)
	default:
		return fmt.Errorf("%w: %s still present after expiry (value %q)", ErrFailed, probeKey, got)
	}
}
