package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Reasons attached to a ProviderError when no status code applies.
const (
	ReasonSafety      = "safety"
	ReasonCircuitOpen = "circuit_open"
	ReasonNetwork     = "network"
	ReasonMalformed   = "malformed"
)

// ProviderError is returned when a provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int    // HTTP status code (401, 429, 500, etc.)
	Reason   string // set when Code is 0
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the same request may succeed if sent again.
func (e *ProviderError) Retryable() bool {
	switch e.Code {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	case 0:
	default:
		return false
	}
	switch e.Reason {
	case ReasonCircuitOpen, ReasonNetwork:
		return true
	case ReasonSafety, ReasonMalformed:
		return false
	}
	return transientMessage(e.Message)
}

// IsRetryable classifies any error from a Client. Cancellation by the
// caller is never retryable.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return transientMessage(err.Error())
}

func transientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "unavailable")
}
