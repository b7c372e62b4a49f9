// Package errors defines typed errors with kinds for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable
// error kinds and human-friendly messages, plus the discriminated failure
// values (validation, worker, transport, session) that the classifier maps to
// user-facing categories.
//
// The package supports wrapping underlying errors while maintaining error kind
// information, making it easier to handle different types of failures
// appropriately. Failure values are constructed once at failure time and never
// mutated afterwards.
package errors

import "fmt"

// Kind is a machine-readable error category.
type Kind string

const (
	// ModuleLoadFailed indicates the compute module could not be fetched or instantiated.
	ModuleLoadFailed Kind = "module_load_failed"
	// WorkerUnavailable indicates the execution worker is not running or was disposed.
	WorkerUnavailable Kind = "worker_unavailable"
	// StreamFailed indicates the transport stream to the compute host broke.
	StreamFailed Kind = "stream_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }
