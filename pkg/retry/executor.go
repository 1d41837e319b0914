package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jzx17/gojobs/pkg/types"
)

// Executor runs functions under a retry policy and keeps statistics
type Executor struct {
	policy   *Policy
	clock    types.Clock
	reporter types.Reporter

	mu    sync.Mutex
	stats RetryStats
}

// RetryStats contains retry statistics
type RetryStats struct {
	TotalAttempts   int64         // total attempt count
	TotalRetries    int64         // calls that needed more than one attempt
	TotalSuccesses  int64         // total success count
	TotalFailures   int64         // total failure count
	TotalRetryDelay time.Duration // total time spent waiting between attempts
}

// NewExecutor creates a retry executor
func NewExecutor(policy *Policy, opts ...ExecutorOption) *Executor {
	if policy == nil {
		policy = NewPolicy(1, nil)
	}
	e := &Executor{
		policy: policy,
		clock:  types.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute calls fn until it succeeds, the policy gives up, or ctx ends.
// The returned error wraps the last attempt's error.
func Execute[R any](ctx context.Context, e *Executor, name string, fn func(ctx context.Context) (R, error)) (R, error) {
	var zero R

	for attempt := 1; ; attempt++ {
		e.update(func(s *RetryStats) { s.TotalAttempts++ })

		result, err := fn(ctx)
		if err == nil {
			e.finish(attempt, true)
			return result, nil
		}

		if !e.policy.ShouldRetry(err, attempt) {
			e.finish(attempt, false)
			if attempt > 1 {
				return zero, fmt.Errorf("%s: giving up after %d attempts: %w", name, attempt, err)
			}
			return zero, err
		}

		delay := e.policy.NextDelay(err, attempt)
		e.update(func(s *RetryStats) { s.TotalRetryDelay += delay })
		if e.reporter != nil {
			e.reporter.Report(fmt.Sprintf("retrying %s in %v (attempt %d/%d): %v",
				name, delay, attempt+1, e.policy.MaxAttempts(), err), false)
		}

		if err := e.wait(ctx, delay); err != nil {
			e.finish(attempt, false)
			return zero, err
		}
	}
}

func (e *Executor) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := e.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

// Wrap returns a handler that retries handler under e. The worker pool
// still sees one call per item and records one outcome.
func Wrap[T any](handler types.Handler[T], e *Executor) types.Handler[T] {
	return types.HandlerFunc[T](func(ctx context.Context, item types.WorkItem[T]) (string, error) {
		return Execute(ctx, e, item.Name, func(ctx context.Context) (string, error) {
			return handler.Process(ctx, item)
		})
	})
}

// Stats gets retry statistics
func (e *Executor) Stats() RetryStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func (e *Executor) update(fn func(*RetryStats)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.stats)
}

func (e *Executor) finish(attempts int, ok bool) {
	e.update(func(s *RetryStats) {
		if ok {
			s.TotalSuccesses++
		} else {
			s.TotalFailures++
		}
		if attempts > 1 {
			s.TotalRetries++
		}
	})
}

// ExecutorOption is a configuration option for retry executor
type ExecutorOption func(*Executor)

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) ExecutorOption {
	return func(e *Executor) {
		e.clock = types.OrRealClock(clock)
	}
}

// WithReporter narrates every retry
func WithReporter(reporter types.Reporter) ExecutorOption {
	return func(e *Executor) {
		e.reporter = reporter
	}
}
