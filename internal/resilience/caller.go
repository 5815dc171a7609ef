package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/findex/internal/domain"
	"github.com/kailas-cloud/findex/internal/metrics"
)

// CallerConfig tunes a resilient caller for one dependency.
type CallerConfig struct {
	// Timeout bounds a single attempt, not the whole retry sequence.
	Timeout time.Duration
	// AcquireTimeout bounds waiting for a pool slot.
	AcquireTimeout time.Duration
	// MaxConcurrent caps in-flight calls to the dependency. 0 disables the pool.
	MaxConcurrent int64
	// RatePerSec caps the outbound call rate. 0 disables rate limiting.
	RatePerSec float64
	Retry      Policy
	Breaker    BreakerConfig
}

// Caller executes outbound calls to one named dependency with timeout,
// bounded retry, circuit breaking and a bounded concurrency pool. Every
// attempt is recorded into the rolling call log and prometheus.
type Caller struct {
	name    string
	cfg     CallerConfig
	breaker *Breaker
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	calls   *metrics.CallLog
	logger  *zap.Logger
}

// NewCaller creates a resilient caller for a named dependency.
func NewCaller(name string, cfg CallerConfig, calls *metrics.CallLog, logger *zap.Logger) *Caller {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = cfg.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Caller{
		name:    name,
		cfg:     cfg,
		breaker: NewBreaker(name, cfg.Breaker),
		calls:   calls,
		logger:  logger.With(zap.String("dependency", name)),
	}
	if cfg.MaxConcurrent > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	if cfg.RatePerSec > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), int(cfg.RatePerSec)+1)
	}
	return c
}

// Breaker exposes the dependency's circuit breaker.
func (c *Caller) Breaker() *Breaker { return c.breaker }

// Open reports whether the circuit currently rejects calls. Used by the
// orchestrator to skip a dead strategy without paying its timeout.
func (c *Caller) Open() bool {
	return c.breaker.State() == StateOpen
}

// Do executes fn against the dependency. The circuit is consulted before
// any network attempt; a pool slot is acquired with its own timeout; each
// attempt runs under the per-call deadline and attempt errors are
// classified before retry.
func Do[T any](ctx context.Context, c *Caller, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := c.breaker.Allow(); err != nil {
		metrics.DependencyCallsTotal.WithLabelValues(c.name, "rejected").Inc()
		return zero, err
	}

	if c.sem != nil {
		acquireCtx, cancel := context.WithTimeout(ctx, c.cfg.AcquireTimeout)
		err := c.sem.Acquire(acquireCtx, 1)
		cancel()
		if err != nil {
			c.breaker.RecordFailure()
			return zero, fmt.Errorf("%s: pool exhausted: %w", c.name, domain.ErrTimeout)
		}
		defer c.sem.Release(1)
	}

	result, err := Retry(ctx, c.cfg.Retry, func(ctx context.Context) (T, error) {
		return attemptCall(ctx, c, fn)
	})
	if err != nil {
		c.breaker.RecordFailure()
		return zero, domain.NewDependencyError(c.name, err)
	}

	c.breaker.RecordSuccess()
	return result, nil
}

// attemptCall runs one bounded attempt and records its outcome.
func attemptCall[T any](ctx context.Context, c *Caller, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limit wait: %w", domain.ErrTimeout)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := fn(callCtx)
	duration := time.Since(start)

	err = classify(callCtx, err)
	c.record(duration, err)
	if err != nil {
		return zero, err
	}
	return result, nil
}

// classify maps raw transport errors onto the domain taxonomy. Deadline
// expiry becomes a typed timeout so it is retried but logged distinctly
// from network failures.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	case errors.Is(err, domain.ErrTimeout),
		errors.Is(err, domain.ErrNetwork),
		errors.Is(err, domain.ErrAuthentication),
		errors.Is(err, domain.ErrMalformedRequest),
		errors.Is(err, domain.ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
}

func (c *Caller) record(duration time.Duration, err error) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
		if errors.Is(err, domain.ErrTimeout) {
			status = "timeout"
		}
	}

	metrics.DependencyCallsTotal.WithLabelValues(c.name, status).Inc()
	metrics.DependencyCallDuration.WithLabelValues(c.name).Observe(duration.Seconds())
	if c.calls != nil {
		c.calls.Append(metrics.CallRecord{
			Dependency: c.name,
			Duration:   duration,
			Success:    err == nil,
			Error:      errMsg,
			At:         time.Now(),
		})
	}

	if err != nil {
		c.logger.Warn("dependency call failed",
			zap.Duration("duration", duration),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
