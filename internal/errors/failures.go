package errors

import (
	"fmt"
	"time"
)

// ValidationError reports an input record that failed local validation.
// It is resolved into a failure outcome by the relay, never retried.
type ValidationError struct {
	Field      string
	Value      string
	Constraint string
}

func (e *ValidationError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Constraint)
	}
	return fmt.Sprintf("validation failed for %s", e.Field)
}

// WorkerError reports a failure inside the execution worker or the compute
// module: module-load failure, processing failure, or a request timeout.
type WorkerError struct {
	Operation string
	Code      string
	Retryable bool
	Context   map[string]any
}

func (e *WorkerError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("worker %s failed: %s", e.Operation, e.Code)
	}
	return fmt.Sprintf("worker %s failed", e.Operation)
}

// Timeout reports whether the failure was a request timeout.
func (e *WorkerError) Timeout() bool { return e.Code == "timeout" }

// TransportError reports a failure reaching the compute host.
type TransportError struct {
	Status  int
	URL     string
	Timeout bool
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("transport timeout contacting %s", e.URL)
	case e.Status != 0:
		return fmt.Sprintf("transport failure contacting %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("transport failure contacting %s", e.URL)
}

// SessionError reports a token/session failure.
type SessionError struct {
	TokenKind   string
	ExpiresAt   time.Time
	Refreshable bool
}

func (e *SessionError) Error() string {
	if e.Refreshable {
		return fmt.Sprintf("%s token expired and needs refresh", e.TokenKind)
	}
	return fmt.Sprintf("%s token rejected", e.TokenKind)
}

// NewTimeout builds the worker timeout failure for an operation that received
// no response within its deadline.
func NewTimeout(operation string, after time.Duration) *WorkerError {
	return &WorkerError{
		Operation: operation,
		Code:      "timeout",
		Retryable: true,
		Context:   map[string]any{"after": after.String()},
	}
}

// NewDisposed builds the failure delivered to every request still pending
// when the worker is torn down.
func NewDisposed(operation string) *WorkerError {
	return &WorkerError{
		Operation: operation,
		Code:      "disposed",
		Retryable: false,
	}
}
