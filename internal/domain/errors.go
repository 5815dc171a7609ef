package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrTimeout signals that a call exceeded its deadline.
	ErrTimeout = errors.New("timed out")
	// ErrCircuitOpen signals that a dependency's circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("circuit open")
	// ErrNetwork signals a transport-level failure (connection refused, 5xx, DNS).
	ErrNetwork = errors.New("network error")
	// ErrAuthentication signals rejected credentials. Never retried.
	ErrAuthentication = errors.New("authentication failed")
	// ErrMalformedRequest signals a request the dependency refused to parse. Never retried.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrAllStrategiesExhausted signals that every retrieval strategy failed.
	// Internal: it triggers the fallback chain and never reaches a caller.
	ErrAllStrategiesExhausted = errors.New("all strategies exhausted")
	// ErrInfrastructure signals an unexpected failure while assembling a response.
	ErrInfrastructure = errors.New("infrastructure error")
)

// Retryable reports whether err is worth a bounded retry.
// Timeouts and network failures are transient; auth and malformed-request
// errors will fail identically on every attempt, and an open circuit must
// not be hammered.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNetwork):
		return true
	default:
		return false
	}
}

// DependencyError wraps a failure with the name of the dependency that produced it.
type DependencyError struct {
	Dependency string
	Err        error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Dependency, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

// NewDependencyError wraps err with the dependency name.
func NewDependencyError(dependency string, err error) error {
	return &DependencyError{Dependency: dependency, Err: err}
}
