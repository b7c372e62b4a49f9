// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import "context"

// Worker represents one execution context hosting the compute module.
// Implementations run with true parallelism relative to the caller and
// communicate exclusively through request/response envelopes; the relay
// never shares memory with a worker.
type Worker interface {
	// Start brings the execution context up. It does not instantiate the
	// compute module; that happens when an initialize envelope arrives.
	Start(ctx context.Context) error
	// Send posts a request envelope to the worker.
	Send(ctx context.Context, req Request) error
	// Responses returns the stream of response envelopes, correlated and
	// uncorrelated alike. The channel is closed when the worker terminates.
	Responses() <-chan Response
	// Close tears the execution context down. Outstanding computations are
	// abandoned; the responses channel closes once the worker has stopped.
	Close(ctx context.Context) error
}
