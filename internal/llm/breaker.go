package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
)

// BreakerConfig tunes the circuit breaker.
type BreakerConfig struct {
	MaxFailures uint32        // consecutive transient failures that open the circuit
	OpenTimeout time.Duration // how long the circuit stays open
}

// BreakerClient wraps a Client with a circuit breaker. Only transient
// failures count against the provider; a bad request or a safety block
// says nothing about provider health.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker
	log  *logging.Logger
}

var _ Client = (*BreakerClient)(nil)

// NewBreakerClient wraps next.
func NewBreakerClient(next Client, cfg BreakerConfig, log *logging.Logger) *BreakerClient {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	b := &BreakerClient{next: next, log: log.Sub("llm.breaker")}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Name(),
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.log.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
	return b
}

func (b *BreakerClient) Name() string { return b.next.Name() }

// State returns the breaker state ("closed", "half-open", "open").
func (b *BreakerClient) State() string { return b.cb.State().String() }

func (b *BreakerClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Complete(ctx, req)
	})
	if err != nil {
		return nil, b.translate(err)
	}
	return out.(*CompletionResponse), nil
}

// Stream guards only the start of the stream.
func (b *BreakerClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	out, err := b.cb.Execute(func() (any, error) {
		return b.next.Stream(ctx, req)
	})
	if err != nil {
		return nil, b.translate(err)
	}
	return out.(<-chan StreamEvent), nil
}

func (b *BreakerClient) ValidateConnection(ctx context.Context) error {
	return b.next.ValidateConnection(ctx)
}

func (b *BreakerClient) translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &ProviderError{Provider: b.Name(), Reason: ReasonCircuitOpen, Message: err.Error(), Err: err}
	}
	return err
}
