// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package relay implements the request broker in front of the execution
// worker. It owns the pending-request table, allocates strictly increasing
// request ids, applies per-operation timeouts, and wires the result cache,
// output normalizer, error classifier, and retry manager together. The
// broker is the only component the CLI calls.
//
// Correlation rests solely on request ids: responses may arrive in any
// order, a response with no pending id is dropped, and an uncorrelated
// error is surfaced through the realtime feed instead of settling a call.
package relay

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"seedfast/credrelay/internal/cache"
	apperrors "seedfast/credrelay/internal/errors"
	"seedfast/credrelay/internal/logging"
	"seedfast/credrelay/internal/normalize"
	"seedfast/credrelay/internal/progress"
	"seedfast/credrelay/internal/retry"
	"seedfast/credrelay/internal/worker"
)

// Per-operation response deadlines.
const (
	initTimeout       = 30 * time.Second
	processTimeout    = 45 * time.Second
	certifyTimeout    = 30 * time.Second
	healthTimeout     = 10 * time.Second
	clearCacheTimeout = 5 * time.Second
)

// Broker coordinates calls against one execution worker. Create it with New,
// bring it up with Init, and tear it down with Dispose; a disposed broker
// settles everything still pending and refuses further work.
type Broker struct {
	w          worker.Worker
	normalizer *normalize.Normalizer
	results    *cache.Cache
	retries    *retry.Manager
	feed       *progress.Feed

	seq    atomic.Uint64
	faults atomic.Uint64

	timeouts map[worker.MessageType]time.Duration
	initWait time.Duration
	recvDone chan struct{}

	mu          sync.Mutex
	pending     map[uint64]chan worker.Response
	initCh      chan worker.Response
	initialized bool
	disposed    bool
	loopStarted bool
}

// New creates a broker over w with default cache, retry, and feed settings.
func New(w worker.Worker) *Broker {
	return &Broker{
		w:          w,
		normalizer: normalize.New(),
		results:    cache.New(0, 0),
		retries:    retry.New(0, 0, 0),
		feed:       progress.NewFeed(0),
		timeouts: map[worker.MessageType]time.Duration{
			worker.TypeProcess:      processTimeout,
			worker.TypeCertifyToken: certifyTimeout,
			worker.TypeHealthCheck:  healthTimeout,
			worker.TypeClearCache:   clearCacheTimeout,
		},
		initWait: initTimeout,
		recvDone: make(chan struct{}),
		pending:  make(map[uint64]chan worker.Response),
	}
}

// Updates returns the realtime feed fed by uncorrelated worker traffic.
func (b *Broker) Updates() *progress.Feed { return b.feed }

// PendingCount returns the number of requests awaiting a response.
func (b *Broker) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Init starts the worker, sends the initialize envelope, and waits for the
// module to come up. Calling Init on an initialized broker is a no-op.
func (b *Broker) Init(ctx context.Context) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return apperrors.New(apperrors.WorkerUnavailable, "relay disposed")
	}
	if b.initialized {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	if err := b.w.Start(ctx); err != nil {
		return apperrors.Wrap(apperrors.WorkerUnavailable, "start execution worker", err)
	}

	b.mu.Lock()
	if !b.loopStarted {
		b.loopStarted = true
		go b.receiveLoop()
	}
	initCh := make(chan worker.Response, 1)
	b.initCh = initCh
	b.mu.Unlock()

	if err := b.w.Send(ctx, worker.Request{Type: worker.TypeInitialize}); err != nil {
		b.clearInitWaiter()
		return err
	}

	timer := time.NewTimer(b.initWait)
	defer timer.Stop()
	select {
	case resp := <-initCh:
		if resp.Type == worker.TypeError {
			return &apperrors.WorkerError{Operation: "initialize", Code: resp.Error, Retryable: false}
		}
		b.mu.Lock()
		b.initialized = true
		b.mu.Unlock()
		return nil
	case <-timer.C:
		b.clearInitWaiter()
		return apperrors.NewTimeout("initialize", b.initWait)
	case <-ctx.Done():
		b.clearInitWaiter()
		return ctx.Err()
	case <-b.recvDone:
		return apperrors.NewDisposed("initialize")
	}
}

// Dispose tears the worker down. Every still-pending request settles with a
// non-retryable disposed failure; no request id outlives the worker.
func (b *Broker) Dispose(ctx context.Context) error {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return nil
	}
	b.disposed = true
	started := b.loopStarted
	b.mu.Unlock()

	err := b.w.Close(ctx)
	if started {
		<-b.recvDone
	}
	b.retries.ResetAll()
	return err
}

// receiveLoop dispatches worker responses until the worker terminates.
func (b *Broker) receiveLoop() {
	defer close(b.recvDone)
	for resp := range b.w.Responses() {
		if resp.Correlated() {
			if ch, ok := b.takePending(resp.RequestID); ok {
				ch <- resp
			} else {
				// Late response for an abandoned id (timeout or cancel).
				logging.Debugf("relay: dropping unmatched %s response for request %d", resp.Type, resp.RequestID)
			}
			continue
		}

		switch resp.Type {
		case worker.TypeInitialized:
			b.settleInit(resp)
		case worker.TypeRealtimeUpdate:
			b.feed.Append(b.normalizer.Update(resp.Result))
		case worker.TypeError:
			if b.settleInit(resp) {
				continue
			}
			if b.isDisposed() {
				continue
			}
			// Background fault: report it without settling any call.
			b.feed.Append(progress.Update{
				ID:        "fault-" + strconv.FormatUint(b.faults.Add(1), 10),
				Timestamp: time.Now(),
				Message:   resp.Error,
				Level:     progress.LevelError,
			})
		default:
			logging.Debugf("relay: ignoring uncorrelated %s response", resp.Type)
		}
	}
}

// roundTrip posts one envelope and blocks until its response, the operation
// deadline, caller cancellation, or worker termination. The pending entry is
// removed exactly once on every path.
func (b *Broker) roundTrip(ctx context.Context, op worker.MessageType, data map[string]any) (map[string]any, error) {
	if b.isDisposed() {
		return nil, apperrors.NewDisposed(string(op))
	}

	id := b.seq.Add(1)
	entry := b.addPending(id)

	if err := b.w.Send(ctx, worker.Request{Type: op, Data: data, RequestID: id}); err != nil {
		b.takePending(id)
		return nil, err
	}

	timeout := b.timeouts[op]
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-entry:
		return b.settle(op, resp)
	case <-timer.C:
		if _, taken := b.takePending(id); taken {
			return nil, apperrors.NewTimeout(string(op), timeout)
		}
		// The response won the race; it is already buffered.
		return b.settle(op, <-entry)
	case <-ctx.Done():
		// Cancel abandons the local wait only; the computation keeps
		// running and its late response is dropped.
		b.takePending(id)
		return nil, ctx.Err()
	case <-b.recvDone:
		if _, taken := b.takePending(id); !taken {
			select {
			case resp := <-entry:
				return b.settle(op, resp)
			default:
			}
		}
		return nil, apperrors.NewDisposed(string(op))
	}
}

// settle maps a terminal response envelope to a result or a typed failure.
func (b *Broker) settle(op worker.MessageType, resp worker.Response) (map[string]any, error) {
	if resp.Type == worker.TypeError {
		return nil, &apperrors.WorkerError{
			Operation: string(op),
			Code:      resp.Error,
			Retryable: true,
			Context:   resp.Context,
		}
	}
	if resp.Type != worker.ResultType(op) {
		return nil, &apperrors.WorkerError{
			Operation: string(op),
			Code:      "unexpected response type " + string(resp.Type),
			Retryable: false,
		}
	}
	return resp.Result, nil
}

func (b *Broker) addPending(id uint64) chan worker.Response {
	ch := make(chan worker.Response, 1)
	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	return ch
}

// takePending removes and returns the pending entry for id. Removal happens
// under the lock, so each id settles exactly once.
func (b *Broker) takePending(id uint64) (chan worker.Response, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.pending[id]
	if ok {
		delete(b.pending, id)
	}
	return ch, ok
}

// settleInit delivers an uncorrelated response to a waiting Init call.
func (b *Broker) settleInit(resp worker.Response) bool {
	b.mu.Lock()
	ch := b.initCh
	b.initCh = nil
	b.mu.Unlock()
	if ch == nil {
		return false
	}
	ch <- resp
	return true
}

func (b *Broker) clearInitWaiter() {
	b.mu.Lock()
	b.initCh = nil
	b.mu.Unlock()
}

func (b *Broker) isDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// ready reports whether operations may be submitted.
func (b *Broker) ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized && !b.disposed
}
