// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package wasm defines the boundary to the isolated compute module that
// performs the actual credential exchange and case lookup work. The module is
// opaque to the rest of the CLI: everything crosses this boundary as
// serialized records, and the only inbound path is the progress callback.
package wasm

import "context"

// Module is the compute unit hosted by an execution worker.
type Module interface {
	// Execute runs one operation ("process" or "certify-token") over a
	// serialized input record and returns a serialized result, or an error
	// when the computation failed.
	Execute(ctx context.Context, op string, input []byte) ([]byte, error)
	// Health returns a serialized health record. It is synchronous and must
	// not block on in-flight operations.
	Health() []byte
	// OnProgress registers the callback receiving serialized progress
	// payloads. Registration happens once, before any Execute call.
	OnProgress(fn func(payload []byte))
}

// Loader fetches and instantiates the compute module binary. Instantiation is
// potentially slow (network fetch, compilation) and runs once per worker.
type Loader interface {
	Load(ctx context.Context) (Module, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Module, error)

func (f LoaderFunc) Load(ctx context.Context) (Module, error) { return f(ctx) }
