package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// pacer throttles how quickly the demo issues operations against the
// engine, adapted from the teacher's pkg/sol.RateLimiter -- same
// golang.org/x/time/rate wrapper, just pacing in-process engine calls
// instead of outbound RPC requests.
type pacer struct {
	limiter *rate.Limiter
}

func newPacer(opsPerSecond float64, burst int) *pacer {
	return &pacer{limiter: rate.NewLimiter(rate.Limit(opsPerSecond), burst)}
}

func (p *pacer) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

func (p *pacer) waitWithTimeout(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return p.wait(ctx)
}
