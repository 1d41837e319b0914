package retry

import (
	"time"

	"github.com/jzx17/gojobs/pkg/types"
)

// RetryCondition decides whether an error is worth another attempt
type RetryCondition func(error) bool

// Policy bounds the number of attempts and spaces them out
type Policy struct {
	maxAttempts int
	backoff     BackoffStrategy
	condition   RetryCondition
}

// NewPolicy creates a policy allowing maxAttempts calls in total. A nil
// backoff retries immediately.
func NewPolicy(maxAttempts int, backoff BackoffStrategy, opts ...PolicyOption) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	p := &Policy{
		maxAttempts: maxAttempts,
		backoff:     backoff,
		condition:   DefaultRetryCondition,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShouldRetry reports whether another attempt follows a failed attempt
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if attempt >= p.maxAttempts {
		return false
	}
	return p.condition(err)
}

// NextDelay returns the wait before the next attempt. A RetryAfter carried
// by err takes precedence over the backoff.
func (p *Policy) NextDelay(err error, attempt int) time.Duration {
	if d := types.GetRetryDelay(err); d > 0 {
		return d
	}
	if p.backoff == nil {
		return 0
	}
	return p.backoff.NextDelay(attempt)
}

// MaxAttempts returns the maximum number of calls
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// PolicyOption is a configuration option for retry policies
type PolicyOption func(*Policy)

// WithRetryCondition sets the retry condition
func WithRetryCondition(condition RetryCondition) PolicyOption {
	return func(p *Policy) {
		if condition != nil {
			p.condition = condition
		}
	}
}

// DefaultRetryCondition retries errors marked with types.Retryable
func DefaultRetryCondition(err error) bool {
	return err != nil && types.IsRetryable(err)
}
