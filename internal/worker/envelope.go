// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package worker defines the message envelopes and the transport-agnostic
// interface for the execution worker that hosts the credential compute module.
// It provides type definitions for request and response envelopes exchanged
// between the relay and the worker through the available host implementations.
//
// The types in this package are designed to be transport-agnostic and provide
// a stable wire shape for both the in-process host and the gRPC stream host.
package worker

// MessageType enumerates the envelope types crossing the worker boundary.
type MessageType string

// Request envelope types (caller to worker).
const (
	// TypeInitialize asks the worker to fetch and instantiate the compute module.
	TypeInitialize MessageType = "initialize"
	// TypeProcess submits a credential exchange operation.
	TypeProcess MessageType = "process"
	// TypeCertifyToken submits a token certification operation.
	TypeCertifyToken MessageType = "certify-token"
	// TypeHealthCheck probes the compute module.
	TypeHealthCheck MessageType = "health-check"
	// TypeClearCache asks the worker to drop any module-side scratch state.
	TypeClearCache MessageType = "clear-cache"
)

// Response envelope types (worker to caller).
const (
	// TypeInitialized confirms module instantiation. Emitted exactly once per
	// successful initialize; carries no request id.
	TypeInitialized MessageType = "initialized"
	// TypeResult is the terminal response for a process request.
	TypeResult MessageType = "result"
	// TypeCertifyResult is the terminal response for a certify-token request.
	TypeCertifyResult MessageType = "certify-result"
	// TypeHealthResult is the terminal response for a health-check request.
	TypeHealthResult MessageType = "health-result"
	// TypeCacheCleared is the terminal response for a clear-cache request.
	TypeCacheCleared MessageType = "cache-cleared"
	// TypeRealtimeUpdate is an uncorrelated progress notification. It may be
	// interleaved with any other traffic and carries no request id.
	TypeRealtimeUpdate MessageType = "realtime-update"
	// TypeError reports a failure. With a request id it is the terminal
	// response for that request; without one it is a background fault.
	TypeError MessageType = "error"
)

// Request is the envelope posted to the worker.
// RequestID is zero (and omitted on the wire) for initialize.
type Request struct {
	Type      MessageType    `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	RequestID uint64         `json:"requestId,omitempty"`
}

// Response is the envelope emitted by the worker.
// RequestID is echoed verbatim from the triggering request for correlated
// types and zero for initialized and realtime-update.
type Response struct {
	Type      MessageType    `json:"type"`
	Result    map[string]any `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	RequestID uint64         `json:"requestId,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
}

// Correlated reports whether the response resolves a specific pending request.
func (r Response) Correlated() bool { return r.RequestID != 0 }

// ResultType returns the terminal success response type for an operation.
// Unknown operations map to TypeError.
func ResultType(op MessageType) MessageType {
	switch op {
	case TypeProcess:
		return TypeResult
	case TypeCertifyToken:
		return TypeCertifyResult
	case TypeHealthCheck:
		return TypeHealthResult
	case TypeClearCache:
		return TypeCacheCleared
	}
	return TypeError
}
