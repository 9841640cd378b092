package openai

import (
	"context"

	"golang.org/x/time/rate"
)

// limiter throttles calls to one host. A nil limiter never waits.
type limiter struct {
	rl *rate.Limiter
}

// newLimiter returns nil when rps is zero.
func newLimiter(rps float64, burst int) *limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &limiter{rl: rate.NewLimiter(rate.Limit(rps), burst)}
}

// wait blocks until a call is allowed or ctx is done.
func (l *limiter) wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
