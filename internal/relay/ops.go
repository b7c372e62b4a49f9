// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"context"

	"seedfast/credrelay/internal/cache"
	"seedfast/credrelay/internal/classify"
	"seedfast/credrelay/internal/normalize"
	"seedfast/credrelay/internal/worker"
)

// Process submits a credential exchange. Invalid input settles the outcome
// locally; no envelope reaches the worker. Identical non-secret inputs
// outside the production tier are served from the result cache within its
// TTL.
func (b *Broker) Process(ctx context.Context, input ProcessInput) ProcessOutcome {
	if err := input.validate(); err != nil {
		return ProcessOutcome{Error: classify.Classify(err)}
	}
	if !b.ready() {
		return ProcessOutcome{Error: classify.New(classify.Component, "relay not initialized")}
	}

	payload := input.payload()
	key := cache.Key(payload)
	if raw, ok := b.results.Get(key); ok {
		return ProcessOutcome{Success: true, Cached: true, Result: b.normalizer.Process(raw)}
	}

	raw, err := b.retries.Do(ctx, string(worker.TypeProcess), func(ctx context.Context) (map[string]any, error) {
		return b.roundTrip(ctx, worker.TypeProcess, payload)
	}, classify.IsRetryable)
	if err != nil {
		return ProcessOutcome{Error: classify.Classify(err)}
	}

	if cache.Cacheable(true, input.Environment) {
		b.results.Put(key, raw)
	}
	return ProcessOutcome{Success: true, Result: b.normalizer.Process(raw)}
}

// Certify submits a token certification. Certification input is credential
// material throughout, so results never touch the cache.
func (b *Broker) Certify(ctx context.Context, input CertifyInput) CertifyOutcome {
	if err := input.validate(); err != nil {
		return CertifyOutcome{Error: classify.Classify(err)}
	}
	if !b.ready() {
		return CertifyOutcome{Error: classify.New(classify.Component, "relay not initialized")}
	}

	raw, err := b.retries.Do(ctx, string(worker.TypeCertifyToken), func(ctx context.Context) (map[string]any, error) {
		return b.roundTrip(ctx, worker.TypeCertifyToken, input.payload())
	}, classify.IsRetryable)
	if err != nil {
		return CertifyOutcome{Error: classify.Classify(err)}
	}
	return CertifyOutcome{Success: true, Result: b.normalizer.Certify(raw)}
}

// Health probes the compute module.
func (b *Broker) Health(ctx context.Context) (normalize.HealthResult, error) {
	if !b.ready() {
		return normalize.HealthResult{}, classify.New(classify.Component, "relay not initialized")
	}

	raw, err := b.retries.Do(ctx, string(worker.TypeHealthCheck), func(ctx context.Context) (map[string]any, error) {
		return b.roundTrip(ctx, worker.TypeHealthCheck, nil)
	}, classify.IsRetryable)
	if err != nil {
		return normalize.HealthResult{}, classify.Classify(err)
	}
	return b.normalizer.Health(raw), nil
}

// ClearCache drops the local result cache and normalizer memo, then asks the
// worker to clear any module-side scratch state. The local layer is
// authoritative; the round trip keeps remote hosts honest.
func (b *Broker) ClearCache(ctx context.Context) error {
	if !b.ready() {
		return classify.New(classify.Component, "relay not initialized")
	}

	b.results.Clear()
	b.normalizer.ClearMemo()

	_, err := b.retries.Do(ctx, string(worker.TypeClearCache), func(ctx context.Context) (map[string]any, error) {
		return b.roundTrip(ctx, worker.TypeClearCache, nil)
	}, classify.IsRetryable)
	if err != nil {
		return classify.Classify(err)
	}
	return nil
}
