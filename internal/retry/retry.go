// Package retry implements the exponential-backoff retry manager that wraps
// compute operations. Backoff state is kept per logical operation key and the
// wait between attempts shrinks by the time the failing attempt itself took,
// so repeated attempts stay rate-limited relative to real time. All timing
// flows through an injectable clock.
package retry

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultBaseDelay is the backoff before the first re-invocation.
	DefaultBaseDelay = time.Second
	// DefaultMaxDelay caps the exponential backoff.
	DefaultMaxDelay = 30 * time.Second
	// DefaultMaxRetries bounds re-invocations; an always-failing retryable
	// operation therefore runs DefaultMaxRetries+1 times in total.
	DefaultMaxRetries = 3
)

// Clock abstracts time so backoff is testable without real delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// state is the per-key backoff record. Created lazily on first failure,
// deleted on success or final exhaustion.
type state struct {
	attempts      int
	lastAttemptAt time.Time
}

// Manager tracks backoff state per operation key.
type Manager struct {
	mu         sync.Mutex
	states     map[string]*state
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
	clock      Clock
}

// New creates a manager with the real clock. Non-positive arguments fall
// back to the defaults.
func New(baseDelay, maxDelay time.Duration, maxRetries int) *Manager {
	return NewWithClock(baseDelay, maxDelay, maxRetries, realClock{})
}

// NewWithClock creates a manager with an explicit clock.
func NewWithClock(baseDelay, maxDelay time.Duration, maxRetries int, clock Clock) *Manager {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Manager{
		states:     make(map[string]*state),
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		maxRetries: maxRetries,
		clock:      clock,
	}
}

// Do executes op, re-invoking it on retryable failures until it succeeds or
// the attempt budget for key is spent. The loop is explicit; state for key is
// cleared on success and on final propagation. Concurrent calls sharing a key
// share its counter, last writer wins.
func (m *Manager) Do(ctx context.Context, key string, op func(context.Context) (map[string]any, error), isRetryable func(error) bool) (map[string]any, error) {
	for {
		start := m.clock.Now()
		result, err := op(ctx)
		if err == nil {
			m.Reset(key)
			return result, nil
		}

		attempts := m.noteFailure(key, start)
		if !isRetryable(err) || attempts >= m.maxRetries {
			m.Reset(key)
			return nil, err
		}

		delay := m.backoff(attempts)
		if elapsed := m.clock.Now().Sub(m.lastAttempt(key)); elapsed > 0 {
			delay -= elapsed
		}
		if delay > 0 {
			if sleepErr := m.clock.Sleep(ctx, delay); sleepErr != nil {
				// Backoff aborted by the caller; the operation failure is
				// still the meaningful error.
				m.Reset(key)
				return nil, err
			}
		}
		m.bump(key)
	}
}

// AttemptCount returns the current attempt count for key, zero when no
// state exists.
func (m *Manager) AttemptCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key]; ok {
		return st.attempts
	}
	return 0
}

// Reset clears backoff state for key.
func (m *Manager) Reset(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
}

// ResetAll clears backoff state for every key.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = make(map[string]*state)
}

// backoff returns min(baseDelay * 2^attempts, maxDelay).
func (m *Manager) backoff(attempts int) time.Duration {
	delay := m.baseDelay << attempts
	if delay <= 0 || delay > m.maxDelay {
		return m.maxDelay
	}
	return delay
}

// noteFailure records the start time of the failed attempt and returns the
// attempt count before this failure.
func (m *Manager) noteFailure(key string, start time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	if !ok {
		st = &state{}
		m.states[key] = st
	}
	st.lastAttemptAt = start
	return st.attempts
}

// bump increments the attempt counter ahead of the next re-invocation.
func (m *Manager) bump(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key]; ok {
		st.attempts++
	}
}

// lastAttempt returns the recorded start of the most recent attempt at key.
func (m *Manager) lastAttempt(key string) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[key]; ok {
		return st.lastAttemptAt
	}
	return time.Time{}
}
