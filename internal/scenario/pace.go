package scenario

import (
	"context"

	"golang.org/x/time/rate"
)

// pacer throttles iterations of a single worker. A nil pacer never waits.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(rps int) *pacer {
	if rps <= 0 {
		return nil
	}
	// Burst equal to rps to smooth pacing.
	return &pacer{limiter: rate.NewLimiter(rate.Limit(rps), rps)}
}

func (p *pacer) wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}
