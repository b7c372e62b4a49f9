package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now      time.Time
	sleeps   []time.Duration
	sleepErr error
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	if c.sleepErr != nil {
		return c.sleepErr
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func alwaysRetryable(error) bool { return true }

func TestDoSucceedsAfterRetryableFailures(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 30*time.Second, 3, clock)

	calls := 0
	result, err := m.Do(context.Background(), "process", func(context.Context) (map[string]any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("wasm timeout")
		}
		return map[string]any{"ok": true}, nil
	}, alwaysRetryable)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("op called %d times, want 3", calls)
	}
	if result["ok"] != true {
		t.Fatalf("result = %v, want ok=true", result)
	}
	if got := m.AttemptCount("process"); got != 0 {
		t.Fatalf("AttemptCount after success = %d, want 0", got)
	}
}

func TestDoExhaustsRetryBudget(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 30*time.Second, 3, clock)

	failure := errors.New("wasm timeout")
	calls := 0
	_, err := m.Do(context.Background(), "process", func(context.Context) (map[string]any, error) {
		calls++
		return nil, failure
	}, alwaysRetryable)
	if !errors.Is(err, failure) {
		t.Fatalf("Do() error = %v, want %v", err, failure)
	}
	if calls != 4 {
		t.Fatalf("op called %d times, want maxRetries+1 = 4", calls)
	}
	if len(clock.sleeps) != 3 {
		t.Fatalf("slept %d times, want 3", len(clock.sleeps))
	}
	if got := m.AttemptCount("process"); got != 0 {
		t.Fatalf("AttemptCount after exhaustion = %d, want 0", got)
	}
}

func TestDoNonRetryableFailsOnce(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 30*time.Second, 3, clock)

	failure := errors.New("clientId is required")
	calls := 0
	_, err := m.Do(context.Background(), "process", func(context.Context) (map[string]any, error) {
		calls++
		return nil, failure
	}, func(error) bool { return false })
	if !errors.Is(err, failure) {
		t.Fatalf("Do() error = %v, want %v", err, failure)
	}
	if calls != 1 {
		t.Fatalf("op called %d times, want 1", calls)
	}
	if len(clock.sleeps) != 0 {
		t.Fatalf("slept %d times, want 0", len(clock.sleeps))
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 4*time.Second, 4, clock)

	_, err := m.Do(context.Background(), "health-check", func(context.Context) (map[string]any, error) {
		return nil, errors.New("unavailable")
	}, alwaysRetryable)
	if err == nil {
		t.Fatal("Do() error = nil, want failure")
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("slept %d times, want %d", len(clock.sleeps), len(want))
	}
	for i, d := range want {
		if clock.sleeps[i] != d {
			t.Errorf("sleep[%d] = %v, want %v", i, clock.sleeps[i], d)
		}
	}
}

func TestBackoffReducedByAttemptDuration(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 30*time.Second, 1, clock)

	calls := 0
	_, err := m.Do(context.Background(), "process", func(context.Context) (map[string]any, error) {
		calls++
		// The attempt itself burns 600ms of wall time.
		clock.now = clock.now.Add(600 * time.Millisecond)
		return nil, errors.New("wasm timeout")
	}, alwaysRetryable)
	if err == nil {
		t.Fatal("Do() error = nil, want failure")
	}
	if calls != 2 {
		t.Fatalf("op called %d times, want 2", calls)
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("slept %d times, want 1", len(clock.sleeps))
	}
	if got, want := clock.sleeps[0], 400*time.Millisecond; got != want {
		t.Fatalf("sleep = %v, want base delay minus elapsed = %v", got, want)
	}
}

func TestAttemptCountVisibleWhileRetrying(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 30*time.Second, 2, clock)

	var seen []int
	_, _ = m.Do(context.Background(), "certify-token", func(context.Context) (map[string]any, error) {
		seen = append(seen, m.AttemptCount("certify-token"))
		return nil, errors.New("unavailable")
	}, alwaysRetryable)

	want := []int{0, 1, 2}
	if len(seen) != len(want) {
		t.Fatalf("observed %d attempts, want %d", len(seen), len(want))
	}
	for i, n := range want {
		if seen[i] != n {
			t.Errorf("attempt %d saw count %d, want %d", i, seen[i], n)
		}
	}
}

func TestAbortedBackoffPropagatesOperationError(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0), sleepErr: context.Canceled}
	m := NewWithClock(time.Second, 30*time.Second, 3, clock)

	failure := errors.New("wasm timeout")
	calls := 0
	_, err := m.Do(context.Background(), "process", func(context.Context) (map[string]any, error) {
		calls++
		return nil, failure
	}, alwaysRetryable)
	if !errors.Is(err, failure) {
		t.Fatalf("Do() error = %v, want the operation failure %v", err, failure)
	}
	if calls != 1 {
		t.Fatalf("op called %d times, want 1", calls)
	}
	if got := m.AttemptCount("process"); got != 0 {
		t.Fatalf("AttemptCount after abort = %d, want 0", got)
	}
}

func TestResetAllClearsEveryKey(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	m := NewWithClock(time.Second, 30*time.Second, 3, clock)

	m.noteFailure("process", clock.now)
	m.bump("process")
	m.noteFailure("certify-token", clock.now)
	m.bump("certify-token")
	if m.AttemptCount("process") != 1 || m.AttemptCount("certify-token") != 1 {
		t.Fatal("expected seeded attempt counts")
	}

	m.ResetAll()
	if m.AttemptCount("process") != 0 || m.AttemptCount("certify-token") != 0 {
		t.Fatal("ResetAll left state behind")
	}
}
