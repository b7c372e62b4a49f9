// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package classify maps arbitrary failures to a closed category taxonomy with
// retryability and fixed user-facing text. Classification is deterministic:
// an already-classified value passes through unchanged, discriminated failure
// kinds map by their own fields, and keyword matching over the message is the
// last resort. Classified values are built once and never mutated.
package classify

import (
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"seedfast/credrelay/internal/errors"
)

// Category is one of the closed set of failure categories.
type Category string

const (
	WASMInitialization Category = "wasm-initialization"
	WASMProcessing     Category = "wasm-processing"
	WASMTimeout        Category = "wasm-timeout"
	Network            Category = "network"
	Validation         Category = "validation"
	Authentication     Category = "authentication"
	TokenRefresh       Category = "token-refresh"
	Component          Category = "component"
	Unknown            Category = "unknown"
)

// userMessages holds the single fixed user-facing string per category.
// Raw technical detail never reaches the user outside diagnostic mode.
var userMessages = map[Category]string{
	WASMInitialization: "The secure compute module could not be started. Please try again shortly.",
	WASMProcessing:     "The operation could not be completed. Please try again.",
	WASMTimeout:        "The operation took too long to complete. Please try again.",
	Network:            "Connection problem. Please check your network and try again.",
	Validation:         "Please check your input and try again.",
	Authentication:     "Your credentials were rejected. Please verify them and try again.",
	TokenRefresh:       "Your session needs to be renewed. Please re-run the operation.",
	Component:          "An internal error occurred. Please restart the session.",
	Unknown:            "Something went wrong. Please try again.",
}

// UserMessage returns the fixed user-facing text for a category.
func UserMessage(cat Category) string {
	if msg, ok := userMessages[cat]; ok {
		return msg
	}
	return userMessages[Unknown]
}

// Classified is an immutable failure value carrying category, retryability,
// the fixed user message, and the technical detail kept separate from it.
type Classified struct {
	Message          string
	Category         Category
	Retryable        bool
	UserMessage      string
	TechnicalDetails string
	Context          map[string]any
}

func (c *Classified) Error() string { return c.Message }

// New builds a classified failure directly from a category and message,
// with retryability derived from the category allow-list.
func New(cat Category, message string) *Classified {
	return &Classified{
		Message:          message,
		Category:         cat,
		Retryable:        categoryRetryable(cat),
		UserMessage:      UserMessage(cat),
		TechnicalDetails: message,
	}
}

// categoryRetryable is the retryable-by-category allow-list. Network and
// token-refresh carry extra conditions applied where their discriminated
// fields are available.
func categoryRetryable(cat Category) bool {
	switch cat {
	case WASMTimeout, WASMProcessing, Network, TokenRefresh:
		return true
	}
	return false
}

// Classify maps any failure to exactly one category.
func Classify(err error) *Classified {
	if err == nil {
		return nil
	}

	var pre *Classified
	if stderrors.As(err, &pre) {
		return pre
	}

	if c := classifyDiscriminated(err); c != nil {
		return c
	}

	return classifyByKeywords(err)
}

// IsRetryable reports whether a later attempt of the same operation may
// succeed. The relay uses it as the retry predicate.
func IsRetryable(err error) bool {
	c := Classify(err)
	return c != nil && c.Retryable
}

// classifyDiscriminated maps the typed failure kinds by their own fields.
func classifyDiscriminated(err error) *Classified {
	var vErr *errors.ValidationError
	if stderrors.As(err, &vErr) {
		return &Classified{
			Message:          vErr.Error(),
			Category:         Validation,
			Retryable:        false,
			UserMessage:      UserMessage(Validation),
			TechnicalDetails: vErr.Error(),
			Context:          map[string]any{"field": vErr.Field},
		}
	}

	var wErr *errors.WorkerError
	if stderrors.As(err, &wErr) {
		cat := WASMProcessing
		switch {
		case wErr.Operation == "initialize":
			cat = WASMInitialization
		case wErr.Timeout():
			cat = WASMTimeout
		case wErr.Code == "disposed":
			cat = Component
		}
		return &Classified{
			Message:          wErr.Error(),
			Category:         cat,
			Retryable:        wErr.Retryable && categoryRetryable(cat),
			UserMessage:      UserMessage(cat),
			TechnicalDetails: fmt.Sprintf("operation=%s code=%s retryable=%t", wErr.Operation, wErr.Code, wErr.Retryable),
			Context:          wErr.Context,
		}
	}

	var tErr *errors.TransportError
	if stderrors.As(err, &tErr) {
		retryable := tErr.Timeout ||
			tErr.Status == 408 || tErr.Status == 429 || tErr.Status >= 500
		return &Classified{
			Message:          tErr.Error(),
			Category:         Network,
			Retryable:        retryable,
			UserMessage:      UserMessage(Network),
			TechnicalDetails: fmt.Sprintf("status=%d url=%s timeout=%t", tErr.Status, tErr.URL, tErr.Timeout),
			Context:          map[string]any{"status": tErr.Status, "url": tErr.URL},
		}
	}

	var sErr *errors.SessionError
	if stderrors.As(err, &sErr) {
		cat := Authentication
		if sErr.Refreshable {
			cat = TokenRefresh
		}
		return &Classified{
			Message:          sErr.Error(),
			Category:         cat,
			Retryable:        sErr.Refreshable,
			UserMessage:      UserMessage(cat),
			TechnicalDetails: fmt.Sprintf("tokenKind=%s refreshable=%t", sErr.TokenKind, sErr.Refreshable),
			Context:          map[string]any{"tokenKind": sErr.TokenKind},
		}
	}

	return nil
}

// classifyByKeywords categorizes an arbitrary error by message patterns,
// checking connection-level error types first.
func classifyByKeywords(err error) *Classified {
	msg := err.Error()
	lower := strings.ToLower(msg)
	technical := fmt.Sprintf("%T: %v", err, err)

	build := func(cat Category, retryable bool) *Classified {
		return &Classified{
			Message:          msg,
			Category:         cat,
			Retryable:        retryable,
			UserMessage:      UserMessage(cat),
			TechnicalDetails: technical,
		}
	}

	if isConnectionError(err, lower) {
		// Connection-level faults have no HTTP status to consult; they are
		// transient by nature and safe to retry.
		return build(Network, true)
	}
	if isTimeoutError(err, lower) {
		return build(WASMTimeout, true)
	}
	if strings.Contains(lower, "unauthenticated") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "forbidden") {
		return build(Authentication, false)
	}
	if strings.Contains(lower, "validation") || strings.Contains(lower, "required field") {
		return build(Validation, false)
	}
	if strings.Contains(lower, "instantiat") || strings.Contains(lower, "module load") {
		return build(WASMInitialization, false)
	}
	if strings.Contains(lower, "wasm") {
		return build(WASMProcessing, true)
	}

	return build(Unknown, false)
}

// isTimeoutError checks if the error is a timeout error.
func isTimeoutError(err error, lower string) bool {
	if strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// isConnectionError checks for DNS, connection-refused, and reset failures.
func isConnectionError(err error, lower string) bool {
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if stderrors.As(err, &opErr) {
		if stderrors.Is(opErr.Err, syscall.ECONNREFUSED) || stderrors.Is(opErr.Err, syscall.ECONNRESET) {
			return true
		}
	}
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "rst_stream") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "unavailable")
}
