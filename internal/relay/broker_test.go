// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"seedfast/credrelay/internal/classify"
	"seedfast/credrelay/internal/progress"
	"seedfast/credrelay/internal/retry"
	"seedfast/credrelay/internal/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeWorker is a scriptable in-memory worker. respond maps each request to
// the envelopes the worker emits for it; returning nothing swallows the
// request.
type fakeWorker struct {
	mu      sync.Mutex
	sent    []worker.Request
	out     chan worker.Response
	closed  bool
	respond func(req worker.Request) []worker.Response
}

func newFakeWorker() *fakeWorker {
	w := &fakeWorker{out: make(chan worker.Response, 64)}
	w.respond = func(req worker.Request) []worker.Response {
		return autoRespond(req, map[string]any{"accessToken": "tok-1", "environment": "development"})
	}
	return w
}

// autoRespond answers every request with its happy-path envelope.
func autoRespond(req worker.Request, result map[string]any) []worker.Response {
	switch req.Type {
	case worker.TypeInitialize:
		return []worker.Response{{Type: worker.TypeInitialized}}
	case worker.TypeProcess:
		return []worker.Response{{Type: worker.TypeResult, Result: result, RequestID: req.RequestID}}
	case worker.TypeCertifyToken:
		return []worker.Response{{Type: worker.TypeCertifyResult, Result: map[string]any{"valid": true}, RequestID: req.RequestID}}
	case worker.TypeHealthCheck:
		return []worker.Response{{Type: worker.TypeHealthResult, Result: map[string]any{"status": "ok"}, RequestID: req.RequestID}}
	case worker.TypeClearCache:
		return []worker.Response{{Type: worker.TypeCacheCleared, RequestID: req.RequestID}}
	}
	return nil
}

func (w *fakeWorker) Start(context.Context) error { return nil }

func (w *fakeWorker) Send(_ context.Context, req worker.Request) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("worker closed")
	}
	w.sent = append(w.sent, req)
	respond := w.respond
	w.mu.Unlock()

	for _, resp := range respond(req) {
		w.emit(resp)
	}
	return nil
}

func (w *fakeWorker) Responses() <-chan worker.Response { return w.out }

func (w *fakeWorker) Close(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.out)
	}
	return nil
}

func (w *fakeWorker) emit(resp worker.Response) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.out <- resp
	}
}

func (w *fakeWorker) countOfType(tp worker.MessageType) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, r := range w.sent {
		if r.Type == tp {
			n++
		}
	}
	return n
}

func (w *fakeWorker) sentOfType(tp worker.MessageType) []worker.Request {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []worker.Request
	for _, r := range w.sent {
		if r.Type == tp {
			out = append(out, r)
		}
	}
	return out
}

// newTestBroker builds a broker over w with millisecond-scale deadlines and
// backoff, initialized and scheduled for disposal.
func newTestBroker(t *testing.T, w *fakeWorker) *Broker {
	t.Helper()
	b := New(w)
	b.initWait = time.Second
	b.timeouts = map[worker.MessageType]time.Duration{
		worker.TypeProcess:      100 * time.Millisecond,
		worker.TypeCertifyToken: 100 * time.Millisecond,
		worker.TypeHealthCheck:  100 * time.Millisecond,
		worker.TypeClearCache:   100 * time.Millisecond,
	}
	b.retries = retry.New(time.Millisecond, 4*time.Millisecond, 3)
	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = b.Dispose(context.Background()) })
	return b
}

func validInput() ProcessInput {
	return ProcessInput{
		ClientID:     "id-1",
		ClientSecret: "s3cr3t",
		Environment:  "development",
		CaseNumber:   "C-100",
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestProcessValidationSettlesLocally(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	out := b.Process(context.Background(), ProcessInput{
		ClientID:     "",
		ClientSecret: "x",
		Environment:  "development",
	})
	if out.Success {
		t.Fatal("outcome succeeded for invalid input")
	}
	if out.Error == nil {
		t.Fatal("outcome carries no error")
	}
	if !strings.Contains(out.Error.Message, "clientId") {
		t.Errorf("Error.Message = %q, want mention of clientId", out.Error.Message)
	}
	if out.Error.Category != classify.Validation || out.Error.Retryable {
		t.Errorf("classified as %s retryable=%t, want non-retryable validation", out.Error.Category, out.Error.Retryable)
	}
	if n := w.countOfType(worker.TypeProcess); n != 0 {
		t.Errorf("%d process envelopes posted, want 0", n)
	}
}

func TestProcessSuccess(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	out := b.Process(context.Background(), validInput())
	if !out.Success {
		t.Fatalf("outcome failed: %v", out.Error)
	}
	if out.Result.AccessToken != "tok-1" {
		t.Errorf("AccessToken = %q, want tok-1", out.Result.AccessToken)
	}
	sent := w.sentOfType(worker.TypeProcess)
	if len(sent) != 1 {
		t.Fatalf("%d process envelopes posted, want 1", len(sent))
	}
	if sent[0].Data["clientId"] != "id-1" || sent[0].RequestID == 0 {
		t.Errorf("envelope = %+v, want clientId id-1 and a nonzero id", sent[0])
	}
}

func TestProcessSecondCallServedFromCache(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	first := b.Process(context.Background(), validInput())
	if !first.Success || first.Cached {
		t.Fatalf("first outcome = %+v, want fresh success", first)
	}
	second := b.Process(context.Background(), validInput())
	if !second.Success || !second.Cached {
		t.Fatalf("second outcome = %+v, want cached success", second)
	}
	if second.Result.Environment != "development" {
		t.Errorf("cached Environment = %q, want development", second.Result.Environment)
	}
	// The stored value is secret-stripped; the token does not come back.
	if second.Result.AccessToken != "" {
		t.Errorf("cached AccessToken = %q, want stripped", second.Result.AccessToken)
	}
	if n := w.countOfType(worker.TypeProcess); n != 1 {
		t.Errorf("%d process envelopes posted, want 1", n)
	}
}

func TestProductionTierNeverCached(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	input := validInput()
	input.Environment = "production"

	b.Process(context.Background(), input)
	b.Process(context.Background(), input)
	if n := w.countOfType(worker.TypeProcess); n != 2 {
		t.Errorf("%d process envelopes posted, want 2", n)
	}
	if b.results.Len() != 0 {
		t.Errorf("cache holds %d entries after production calls, want 0", b.results.Len())
	}
}

func TestProcessTimeoutIsRetryableAndClearsPending(t *testing.T) {
	w := newFakeWorker()
	w.respond = func(req worker.Request) []worker.Response {
		if req.Type == worker.TypeInitialize {
			return []worker.Response{{Type: worker.TypeInitialized}}
		}
		return nil // swallow everything else
	}
	b := newTestBroker(t, w)
	b.timeouts[worker.TypeProcess] = 30 * time.Millisecond

	out := b.Process(context.Background(), validInput())
	if out.Success {
		t.Fatal("outcome succeeded with a silent worker")
	}
	if out.Error.Category != classify.WASMTimeout {
		t.Errorf("category = %s, want %s", out.Error.Category, classify.WASMTimeout)
	}
	if !out.Error.Retryable {
		t.Error("timeout classified non-retryable")
	}
	// Retryable failure: one initial attempt plus maxRetries re-invocations.
	if n := w.countOfType(worker.TypeProcess); n != 4 {
		t.Errorf("%d process envelopes posted, want 4", n)
	}
	if b.PendingCount() != 0 {
		t.Errorf("pending table holds %d entries, want 0", b.PendingCount())
	}
}

func TestWorkerErrorRetriedThenSucceeds(t *testing.T) {
	w := newFakeWorker()
	var calls int
	w.respond = func(req worker.Request) []worker.Response {
		switch req.Type {
		case worker.TypeInitialize:
			return []worker.Response{{Type: worker.TypeInitialized}}
		case worker.TypeProcess:
			calls++
			if calls == 1 {
				return []worker.Response{{Type: worker.TypeError, Error: "Temporary failure", RequestID: req.RequestID}}
			}
			return []worker.Response{{Type: worker.TypeResult, Result: map[string]any{"accessToken": "tok-2"}, RequestID: req.RequestID}}
		}
		return nil
	}
	b := newTestBroker(t, w)

	out := b.Process(context.Background(), validInput())
	if !out.Success {
		t.Fatalf("outcome failed: %v", out.Error)
	}
	if out.Result.AccessToken != "tok-2" {
		t.Errorf("AccessToken = %q, want tok-2", out.Result.AccessToken)
	}
	if n := w.countOfType(worker.TypeProcess); n != 2 {
		t.Errorf("%d process envelopes posted, want exactly 2", n)
	}
	if got := b.retries.AttemptCount(string(worker.TypeProcess)); got != 0 {
		t.Errorf("attempt count after success = %d, want 0", got)
	}
}

func TestDisposeRejectsPendingAsNonRetryable(t *testing.T) {
	w := newFakeWorker()
	w.respond = func(req worker.Request) []worker.Response {
		if req.Type == worker.TypeInitialize {
			return []worker.Response{{Type: worker.TypeInitialized}}
		}
		return nil
	}
	b := newTestBroker(t, w)
	b.timeouts[worker.TypeProcess] = 5 * time.Second

	outCh := make(chan ProcessOutcome, 1)
	go func() { outCh <- b.Process(context.Background(), validInput()) }()
	waitFor(t, func() bool { return b.PendingCount() == 1 }, "request never became pending")

	if err := b.Dispose(context.Background()); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}

	select {
	case out := <-outCh:
		if out.Success {
			t.Fatal("outcome succeeded after dispose")
		}
		if out.Error.Retryable {
			t.Error("disposed failure classified retryable")
		}
		if out.Error.Category != classify.Component {
			t.Errorf("category = %s, want %s", out.Error.Category, classify.Component)
		}
		if !strings.Contains(out.Error.Message, "disposed") {
			t.Errorf("Error.Message = %q, want mention of disposed", out.Error.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call hung across dispose")
	}
	if b.PendingCount() != 0 {
		t.Errorf("pending table holds %d entries, want 0", b.PendingCount())
	}
}

func TestOutOfOrderResponsesCorrelateById(t *testing.T) {
	w := newFakeWorker()
	var (
		mu   sync.Mutex
		held []worker.Response
	)
	w.respond = func(req worker.Request) []worker.Response {
		switch req.Type {
		case worker.TypeInitialize:
			return []worker.Response{{Type: worker.TypeInitialized}}
		case worker.TypeProcess:
			mu.Lock()
			defer mu.Unlock()
			client, _ := req.Data["clientId"].(string)
			held = append(held, worker.Response{
				Type:      worker.TypeResult,
				Result:    map[string]any{"accessToken": "tok-" + client},
				RequestID: req.RequestID,
			})
			if len(held) == 2 {
				// Deliver in reverse arrival order.
				return []worker.Response{held[1], held[0]}
			}
		}
		return nil
	}
	b := newTestBroker(t, w)
	b.timeouts[worker.TypeProcess] = 2 * time.Second

	inputA := validInput()
	inputA.ClientID = "A"
	inputB := validInput()
	inputB.ClientID = "B"

	var wg sync.WaitGroup
	var outA, outB ProcessOutcome
	wg.Add(2)
	go func() { defer wg.Done(); outA = b.Process(context.Background(), inputA) }()
	go func() { defer wg.Done(); outB = b.Process(context.Background(), inputB) }()
	wg.Wait()

	if !outA.Success || outA.Result.AccessToken != "tok-A" {
		t.Errorf("outcome A = %+v, want tok-A", outA)
	}
	if !outB.Success || outB.Result.AccessToken != "tok-B" {
		t.Errorf("outcome B = %+v, want tok-B", outB)
	}
}

func TestUncorrelatedErrorReachesFeed(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	w.emit(worker.Response{Type: worker.TypeError, Error: "module watchdog tripped"})
	waitFor(t, func() bool { return b.Updates().Len() == 1 }, "background fault never reached the feed")

	updates := b.Updates().Snapshot()
	if updates[0].Level != progress.LevelError {
		t.Errorf("level = %q, want %q", updates[0].Level, progress.LevelError)
	}
	if !strings.Contains(updates[0].Message, "watchdog") {
		t.Errorf("message = %q, want the fault text", updates[0].Message)
	}
	if b.PendingCount() != 0 {
		t.Error("background fault touched the pending table")
	}
}

func TestRealtimeUpdatesFlowThroughFeed(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	w.emit(worker.Response{Type: worker.TypeRealtimeUpdate, Result: map[string]any{
		"id": "u-1", "step": "exchange", "message": "contacting issuer",
	}})
	w.emit(worker.Response{Type: worker.TypeRealtimeUpdate, Result: map[string]any{
		"id": "u-1", "step": "exchange", "message": "issuer responded",
	}})
	waitFor(t, func() bool {
		s := b.Updates().Snapshot()
		return len(s) == 1 && s[0].Message == "issuer responded"
	}, "duplicate-id update was not collapsed to the latest content")
}

func TestCertifyValidationAndCacheBypass(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	bad := b.Certify(context.Background(), CertifyInput{Token: " "})
	if bad.Success || bad.Error == nil || !strings.Contains(bad.Error.Message, "token") {
		t.Fatalf("outcome = %+v, want validation failure naming token", bad)
	}
	if n := w.countOfType(worker.TypeCertifyToken); n != 0 {
		t.Fatalf("%d certify envelopes posted for invalid input, want 0", n)
	}

	in := CertifyInput{Token: "tok-1", Environment: "development"}
	first := b.Certify(context.Background(), in)
	second := b.Certify(context.Background(), in)
	if !first.Success || !first.Result.Valid || !second.Success {
		t.Fatalf("outcomes = %+v / %+v, want valid successes", first, second)
	}
	// Certification input is credential material; no caching.
	if n := w.countOfType(worker.TypeCertifyToken); n != 2 {
		t.Errorf("%d certify envelopes posted, want 2", n)
	}
}

func TestHealthRoundTrip(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	report, err := b.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if !report.Healthy() {
		t.Errorf("report = %+v, want healthy", report)
	}
}

func TestClearCacheDropsLocalResults(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	b.Process(context.Background(), validInput())
	if b.results.Len() != 1 {
		t.Fatalf("cache holds %d entries, want 1", b.results.Len())
	}

	if err := b.ClearCache(context.Background()); err != nil {
		t.Fatalf("ClearCache() error = %v", err)
	}
	if b.results.Len() != 0 {
		t.Errorf("cache holds %d entries after clear, want 0", b.results.Len())
	}
	if n := w.countOfType(worker.TypeClearCache); n != 1 {
		t.Errorf("%d clear-cache envelopes posted, want 1", n)
	}

	b.Process(context.Background(), validInput())
	if n := w.countOfType(worker.TypeProcess); n != 2 {
		t.Errorf("%d process envelopes posted, want 2 after the cache was cleared", n)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	w := newFakeWorker()
	b := newTestBroker(t, w)

	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if n := w.countOfType(worker.TypeInitialize); n != 1 {
		t.Errorf("%d initialize envelopes posted, want 1", n)
	}
}

func TestInitFailureIsNotRetryable(t *testing.T) {
	w := newFakeWorker()
	w.respond = func(req worker.Request) []worker.Response {
		if req.Type == worker.TypeInitialize {
			return []worker.Response{{Type: worker.TypeError, Error: "module fetch failed: 503"}}
		}
		return nil
	}
	b := New(w)
	b.initWait = time.Second
	t.Cleanup(func() { _ = b.Dispose(context.Background()) })

	err := b.Init(context.Background())
	if err == nil {
		t.Fatal("Init() succeeded with a failing loader")
	}
	c := classify.Classify(err)
	if c.Category != classify.WASMInitialization {
		t.Errorf("category = %s, want %s", c.Category, classify.WASMInitialization)
	}
	if c.Retryable {
		t.Error("initialization failure classified retryable")
	}
}

func TestOperationsBeforeInitFail(t *testing.T) {
	w := newFakeWorker()
	b := New(w)
	t.Cleanup(func() { _ = b.Dispose(context.Background()) })

	out := b.Process(context.Background(), validInput())
	if out.Success || out.Error == nil || out.Error.Category != classify.Component {
		t.Fatalf("outcome = %+v, want component failure before Init", out)
	}
	if n := w.countOfType(worker.TypeProcess); n != 0 {
		t.Errorf("%d process envelopes posted, want 0", n)
	}
}

func TestLateResponseAfterTimeoutIsDropped(t *testing.T) {
	w := newFakeWorker()
	var (
		mu  sync.Mutex
		ids []uint64
	)
	w.respond = func(req worker.Request) []worker.Response {
		switch req.Type {
		case worker.TypeInitialize:
			return []worker.Response{{Type: worker.TypeInitialized}}
		case worker.TypeProcess:
			mu.Lock()
			ids = append(ids, req.RequestID)
			mu.Unlock()
		}
		return nil
	}
	b := newTestBroker(t, w)
	b.timeouts[worker.TypeProcess] = 20 * time.Millisecond
	b.retries = retry.New(time.Millisecond, 2*time.Millisecond, 1)

	out := b.Process(context.Background(), validInput())
	if out.Success || out.Error.Category != classify.WASMTimeout {
		t.Fatalf("outcome = %+v, want timeout failure", out)
	}

	// Deliver the responses the worker "computed" after the caller gave up.
	mu.Lock()
	late := append([]uint64(nil), ids...)
	mu.Unlock()
	for _, id := range late {
		w.emit(worker.Response{Type: worker.TypeResult, Result: map[string]any{"accessToken": "tok-late"}, RequestID: id})
	}

	time.Sleep(20 * time.Millisecond)
	if b.PendingCount() != 0 {
		t.Errorf("pending table holds %d entries, want 0", b.PendingCount())
	}
	if b.results.Len() != 0 {
		t.Errorf("late responses populated the cache: %d entries", b.results.Len())
	}
}
