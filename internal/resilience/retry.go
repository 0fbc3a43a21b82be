// Package resilience absorbs transient failures from the external tokenizer
// and verification services before the pipeline's per-batch isolation has to
// kick in.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retry behavior. The zero value retries twice with a
// 400ms base delay, doubling each attempt with ±25% jitter, capped at 10s.
type Policy struct {
	Attempts int           // total tries including the first; <=0 means 3
	Base     time.Duration // first delay; <=0 means 400ms
	Cap      time.Duration // delay ceiling; <=0 means 10s
	Service  string        // logged with each retry
}

func (p Policy) normalized() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.Base <= 0 {
		p.Base = 400 * time.Millisecond
	}
	if p.Cap <= 0 {
		p.Cap = 10 * time.Second
	}
	return p
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.Base) * math.Pow(2, float64(attempt))
	if d > float64(p.Cap) {
		d = float64(p.Cap)
	}
	// ±25% jitter keeps concurrent batches from thundering in step.
	d += d * 0.25 * (rand.Float64()*2 - 1)
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Call invokes fn until it succeeds, the error is non-transient, the policy
// is exhausted, or ctx is canceled.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	var lastErr error
	for attempt := range p.Attempts {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == p.Attempts-1 {
			return zero, lastErr
		}

		zap.L().Warn("retrying after transient failure",
			zap.String("service", p.Service),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}
