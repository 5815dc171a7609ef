package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/kailas-cloud/findex/internal/domain"
)

// Policy configures exponential backoff retries.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // backoff ceiling
	Multiplier  float64       // backoff growth factor
	Jitter      float64       // fraction of the delay randomized, 0..1
}

// DefaultPolicy returns sensible retry defaults for remote dependencies.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = def.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = def.Multiplier
	}
	return p
}

// Retry runs fn with bounded exponential backoff. Only errors classified
// retryable by domain.Retryable consume an attempt; anything else aborts
// immediately. Context cancellation always aborts.
func Retry[T any](ctx context.Context, policy Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	p := policy.normalized()

	delay := p.BaseDelay
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !domain.Retryable(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, lastErr
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, lastErr
		case <-time.After(jittered(delay, p.Jitter)):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return zero, lastErr
}

// jittered spreads d by up to ±frac/2 to avoid retry stampedes.
func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	spread := float64(d) * frac
	return time.Duration(float64(d) - spread/2 + rand.Float64()*spread) //nolint:gosec // jitter, not crypto
}
