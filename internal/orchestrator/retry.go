package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/llm"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/metrics"
)

// RetryConfig bounds provider retries. A call is attempted at most
// MaxRetries+1 times.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig returns production retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   8 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (0-based):
// BaseDelay * 2^attempt, capped at MaxDelay.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if c.BaseDelay <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		return c.MaxDelay
	}
	d := c.BaseDelay << attempt
	if c.MaxDelay > 0 && (d > c.MaxDelay || d <= 0) {
		return c.MaxDelay
	}
	return d
}

// retry runs call until it succeeds, fails with a non-retryable error or
// runs out of attempts. It returns the number of attempts made.
func (o *Orchestrator) retry(ctx context.Context, op string, call func(context.Context) error) (int, error) {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := o.cfg.Retry.Backoff(attempt - 1)
			metrics.ProviderRetriesTotal.Inc()
			o.log.Warn().
				Err(lastErr).
				Str("op", op).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("retrying provider call")
			if err := sleep(ctx, delay); err != nil {
				if errors.Is(err, context.Canceled) {
					return attempt, err
				}
				return attempt, domain.Wrap(domain.KindProviderTransient, op, lastErr)
			}
		}

		err := call(ctx)
		if err == nil {
			metrics.ProviderCallsTotal.WithLabelValues("ok").Inc()
			return attempt + 1, nil
		}
		lastErr = err

		if errors.Is(ctx.Err(), context.Canceled) {
			metrics.ProviderCallsTotal.WithLabelValues("canceled").Inc()
			return attempt + 1, ctx.Err()
		}
		if !llm.IsRetryable(err) {
			metrics.ProviderCallsTotal.WithLabelValues("fatal").Inc()
			return attempt + 1, classify(op, err)
		}
		metrics.ProviderCallsTotal.WithLabelValues("transient").Inc()
		if ctx.Err() != nil {
			return attempt + 1, classify(op, err)
		}
	}
	return o.cfg.Retry.MaxRetries + 1, classify(op, lastErr)
}

// classify maps a provider error onto the pipeline taxonomy. Caller
// cancellation passes through unclassified.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case llm.IsRetryable(err):
		return domain.Wrap(domain.KindProviderTransient, op, err)
	default:
		return domain.Wrap(domain.KindProviderFatal, op, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
