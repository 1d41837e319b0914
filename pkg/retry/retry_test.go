package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jzx17/gojobs/internal/testutils"
	"github.com/jzx17/gojobs/pkg/types"
)

// instantClock fires every timer immediately and records the requested delays
type instantClock struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (c *instantClock) Now() time.Time                  { return time.Time{} }
func (c *instantClock) Since(t time.Time) time.Duration { return 0 }

func (c *instantClock) NewTimer(d time.Duration) types.Timer {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return &firedTimer{c: ch}
}

func (c *instantClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.delays...)
}

type firedTimer struct{ c chan time.Time }

func (t *firedTimer) C() <-chan time.Time { return t.c }
func (t *firedTimer) Stop() bool          { return false }

var errTransient = errors.New("connection reset")

func TestFixedBackoff(t *testing.T) {
	b := NewFixedBackoff(50 * time.Millisecond)
	for attempt := 1; attempt <= 3; attempt++ {
		if d := b.NextDelay(attempt); d != 50*time.Millisecond {
			t.Errorf("attempt %d: expected 50ms, got %v", attempt, d)
		}
	}
}

func TestExponentialBackoff(t *testing.T) {
	b := NewExponentialBackoff(100*time.Millisecond, WithMaxDelay(time.Second))

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{60, time.Second},
	}
	for _, tt := range tests {
		if got := b.NextDelay(tt.attempt); got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}

	b = NewExponentialBackoff(10*time.Millisecond, WithMultiplier(3))
	if got := b.NextDelay(3); got != 90*time.Millisecond {
		t.Errorf("expected 90ms with multiplier 3, got %v", got)
	}
}

func TestJitter(t *testing.T) {
	const delay = 100 * time.Millisecond

	full := FullJitter(rand.New(rand.NewPCG(1, 2)))
	equal := EqualJitter(rand.New(rand.NewPCG(1, 2)))
	for i := 0; i < 100; i++ {
		if d := full(delay); d < 0 || d >= delay {
			t.Fatalf("full jitter out of range: %v", d)
		}
		if d := equal(delay); d < delay/2 || d >= delay {
			t.Fatalf("equal jitter out of range: %v", d)
		}
	}

	// same seed, same sequence
	a := NewFixedBackoff(delay, WithJitter(FullJitter(rand.New(rand.NewPCG(7, 7)))))
	b := NewFixedBackoff(delay, WithJitter(FullJitter(rand.New(rand.NewPCG(7, 7)))))
	for attempt := 1; attempt <= 5; attempt++ {
		if da, db := a.NextDelay(attempt), b.NextDelay(attempt); da != db {
			t.Errorf("attempt %d: seeded jitter diverged: %v vs %v", attempt, da, db)
		}
	}
}

func TestPolicy(t *testing.T) {
	p := NewPolicy(3, NewFixedBackoff(time.Second))

	if p.MaxAttempts() != 3 {
		t.Errorf("expected 3 attempts, got %d", p.MaxAttempts())
	}
	if !p.ShouldRetry(types.Retryable(errTransient), 1) {
		t.Error("expected retryable error to be retried")
	}
	if p.ShouldRetry(types.Retryable(errTransient), 3) {
		t.Error("expected no retry once attempts are exhausted")
	}
	if p.ShouldRetry(errTransient, 1) {
		t.Error("expected unmarked error not to be retried")
	}

	if d := p.NextDelay(errTransient, 1); d != time.Second {
		t.Errorf("expected backoff delay, got %v", d)
	}
	hinted := &types.RetryableError{Err: errTransient, RetryAfter: 5 * time.Second}
	if d := p.NextDelay(hinted, 1); d != 5*time.Second {
		t.Errorf("expected RetryAfter to win, got %v", d)
	}

	if NewPolicy(0, nil).MaxAttempts() != 1 {
		t.Error("expected at least one attempt")
	}

	custom := NewPolicy(2, nil, WithRetryCondition(func(err error) bool {
		return errors.Is(err, errTransient)
	}))
	if !custom.ShouldRetry(errTransient, 1) {
		t.Error("expected custom condition to be used")
	}
}

func TestExecute_RetrySuccess(t *testing.T) {
	clock := &instantClock{}
	e := NewExecutor(NewPolicy(3, NewExponentialBackoff(10*time.Millisecond)), WithClock(clock))

	var attempts int32
	result, err := Execute(context.Background(), e, "feed", func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return "", types.Retryable(errTransient)
		}
		return "read", nil
	})

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result != "read" {
		t.Errorf("Expected 'read', got %v", result)
	}

	delays := clock.recorded()
	if len(delays) != 2 || delays[0] != 10*time.Millisecond || delays[1] != 20*time.Millisecond {
		t.Errorf("unexpected delays %v", delays)
	}

	stats := e.Stats()
	if stats.TotalAttempts != 3 || stats.TotalRetries != 1 || stats.TotalSuccesses != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.TotalRetryDelay != 30*time.Millisecond {
		t.Errorf("expected 30ms total delay, got %v", stats.TotalRetryDelay)
	}
}

func TestExecute_GivesUp(t *testing.T) {
	e := NewExecutor(NewPolicy(3, nil), WithClock(&instantClock{}))

	var attempts int32
	_, err := Execute(context.Background(), e, "feed", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&attempts, 1)
		return 0, types.Retryable(errTransient)
	})

	if !errors.Is(err, errTransient) {
		t.Fatalf("expected wrapped transient error, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Error("expected retryable marker to survive wrapping")
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if e.Stats().TotalFailures != 1 {
		t.Errorf("expected 1 failure, got %d", e.Stats().TotalFailures)
	}
}

func TestExecute_NonRetryable(t *testing.T) {
	e := NewExecutor(NewPolicy(5, nil))

	var attempts int32
	_, err := Execute(context.Background(), e, "feed", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&attempts, 1)
		return 0, types.ErrSkip
	})
	if !errors.Is(err, types.ErrSkip) {
		t.Fatalf("expected ErrSkip, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected a single attempt, got %d", attempts)
	}
}

func TestExecute_ContextCanceledDuringWait(t *testing.T) {
	e := NewExecutor(NewPolicy(5, NewFixedBackoff(time.Hour)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Execute(ctx, e, "feed", func(ctx context.Context) (int, error) {
		return 0, types.Retryable(errTransient)
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("wait did not honor the context")
	}
}

func TestWrap(t *testing.T) {
	collector := testutils.NewCollector()
	e := NewExecutor(NewPolicy(2, nil), WithClock(&instantClock{}), WithReporter(collector))

	calls := map[string]int{}
	var mu sync.Mutex
	handler := types.HandlerFunc[int](func(ctx context.Context, item types.WorkItem[int]) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls[item.ID]++
		if calls[item.ID] == 1 {
			return "", types.Retryable(errTransient)
		}
		return "fetched", nil
	})

	wrapped := Wrap[int](handler, e)
	detail, err := wrapped.Process(context.Background(), types.WorkItem[int]{ID: "a", Name: "go-blog"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if detail != "fetched" {
		t.Errorf("Expected 'fetched', got %q", detail)
	}
	if calls["a"] != 2 {
		t.Errorf("expected 2 calls, got %d", calls["a"])
	}
	if !collector.Contains("retrying go-blog") {
		t.Errorf("expected a retry report, got %v", collector.Reports())
	}
}
