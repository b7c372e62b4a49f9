// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package inproc hosts the compute module inside the current process. The
// host runs its own goroutines and talks to the relay exclusively through
// request/response envelopes, the same contract the gRPC stream host honors.
package inproc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	apperrors "seedfast/credrelay/internal/errors"
	"seedfast/credrelay/internal/wasm"
	"seedfast/credrelay/internal/worker"
)

// Host is an in-process execution worker backed by a wasm.Loader.
type Host struct {
	loader wasm.Loader

	requests chan worker.Request
	out      chan worker.Response

	mu      sync.Mutex
	module  wasm.Module
	started bool
	closed  bool

	runCtx   context.Context
	cancel   context.CancelFunc
	dispatch sync.WaitGroup
	inflight sync.WaitGroup
}

// NewHost creates a host that instantiates its compute module through loader
// when the first initialize envelope arrives.
func NewHost(loader wasm.Loader) *Host {
	return &Host{
		loader:   loader,
		requests: make(chan worker.Request, 64),
		out:      make(chan worker.Response, 64),
	}
}

// Start brings the dispatch loop up. The compute module is not loaded yet.
func (h *Host) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return apperrors.New(apperrors.WorkerUnavailable, "worker is closed")
	}
	if h.started {
		return nil
	}
	h.runCtx, h.cancel = context.WithCancel(context.Background())
	h.started = true
	h.dispatch.Add(1)
	go h.run()
	return nil
}

// Send posts a request envelope to the worker.
func (h *Host) Send(ctx context.Context, req worker.Request) error {
	h.mu.Lock()
	if !h.started || h.closed {
		h.mu.Unlock()
		return apperrors.New(apperrors.WorkerUnavailable, "worker is not running")
	}
	h.mu.Unlock()

	select {
	case h.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.runCtx.Done():
		return apperrors.New(apperrors.WorkerUnavailable, "worker is shutting down")
	}
}

// Responses returns the envelope stream. Closed when the host stops.
func (h *Host) Responses() <-chan worker.Response {
	return h.out
}

// Close stops the dispatch loop, waits for in-flight computations to observe
// cancellation, and closes the response stream. Queued requests that never
// reached the module are dropped; their callers are settled by the relay.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	if !h.started || h.closed {
		h.closed = true
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	h.cancel()
	h.dispatch.Wait()
	h.inflight.Wait()
	close(h.out)
	return nil
}

func (h *Host) run() {
	defer h.dispatch.Done()
	for {
		select {
		case req := <-h.requests:
			h.handle(req)
		case <-h.runCtx.Done():
			return
		}
	}
}

func (h *Host) handle(req worker.Request) {
	switch req.Type {
	case worker.TypeInitialize:
		h.handleInitialize()
	case worker.TypeProcess, worker.TypeCertifyToken:
		h.handleExecute(req)
	case worker.TypeHealthCheck:
		h.handleHealth(req)
	case worker.TypeClearCache:
		// The relay owns the result cache; the module keeps no scratch
		// state worth clearing here. Acknowledge.
		h.emit(worker.Response{Type: worker.TypeCacheCleared, RequestID: req.RequestID})
	default:
		h.emit(worker.Response{
			Type:      worker.TypeError,
			Error:     fmt.Sprintf("unsupported operation %q", req.Type),
			RequestID: req.RequestID,
		})
	}
}

// handleInitialize loads the compute module. A second initialize after
// success re-acknowledges without reloading. Loading runs on the dispatch
// goroutine; requests queued behind it are handled once the module is up.
func (h *Host) handleInitialize() {
	h.mu.Lock()
	loaded := h.module != nil
	h.mu.Unlock()
	if loaded {
		h.emit(worker.Response{Type: worker.TypeInitialized})
		return
	}

	mod, err := h.loader.Load(h.runCtx)
	if err != nil {
		lerr := apperrors.Wrap(apperrors.ModuleLoadFailed, "load compute module", err)
		h.emit(worker.Response{Type: worker.TypeError, Error: lerr.Error()})
		return
	}
	mod.OnProgress(h.emitProgress)

	h.mu.Lock()
	h.module = mod
	h.mu.Unlock()
	h.emit(worker.Response{Type: worker.TypeInitialized})
}

func (h *Host) handleExecute(req worker.Request) {
	mod := h.currentModule()
	if mod == nil {
		h.emit(worker.Response{
			Type:      worker.TypeError,
			Error:     "compute module not initialized",
			RequestID: req.RequestID,
		})
		return
	}

	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()

		input, err := json.Marshal(req.Data)
		if err != nil {
			h.emit(worker.Response{
				Type:      worker.TypeError,
				Error:     fmt.Sprintf("encode input: %v", err),
				RequestID: req.RequestID,
			})
			return
		}

		output, err := mod.Execute(h.runCtx, string(req.Type), input)
		if err != nil {
			h.emit(worker.Response{
				Type:      worker.TypeError,
				Error:     err.Error(),
				RequestID: req.RequestID,
				Context:   map[string]any{"operation": string(req.Type)},
			})
			return
		}

		result := map[string]any{}
		if len(output) > 0 {
			if err := json.Unmarshal(output, &result); err != nil {
				h.emit(worker.Response{
					Type:      worker.TypeError,
					Error:     fmt.Sprintf("compute module returned malformed output: %v", err),
					RequestID: req.RequestID,
				})
				return
			}
		}
		h.emit(worker.Response{Type: worker.ResultType(req.Type), Result: result, RequestID: req.RequestID})
	}()
}

func (h *Host) handleHealth(req worker.Request) {
	mod := h.currentModule()
	if mod == nil {
		h.emit(worker.Response{
			Type:      worker.TypeError,
			Error:     "compute module not initialized",
			RequestID: req.RequestID,
		})
		return
	}

	report := map[string]any{}
	if data := mod.Health(); len(data) > 0 {
		if err := json.Unmarshal(data, &report); err != nil {
			h.emit(worker.Response{
				Type:      worker.TypeError,
				Error:     fmt.Sprintf("compute module returned malformed health record: %v", err),
				RequestID: req.RequestID,
			})
			return
		}
	}
	h.emit(worker.Response{Type: worker.TypeHealthResult, Result: report, RequestID: req.RequestID})
}

// emitProgress runs on the module's goroutine. The inflight registration is
// serialized with Close through the mutex, so a late callback never hits a
// closed response channel.
func (h *Host) emitProgress(payload []byte) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.inflight.Add(1)
	h.mu.Unlock()
	defer h.inflight.Done()

	update := map[string]any{}
	if err := json.Unmarshal(payload, &update); err != nil {
		update = map[string]any{"message": string(payload)}
	}
	h.emit(worker.Response{Type: worker.TypeRealtimeUpdate, Result: update})
}

func (h *Host) currentModule() wasm.Module {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.module
}

// emit delivers a response unless the host is shutting down.
func (h *Host) emit(resp worker.Response) {
	select {
	case h.out <- resp:
	case <-h.runCtx.Done():
	}
}
