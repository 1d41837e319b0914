package retry

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// BackoffStrategy defines the backoff strategy interface
type BackoffStrategy interface {
	// NextDelay calculates the delay before retry number attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// FixedBackoff waits the same delay before every retry
type FixedBackoff struct {
	delay  time.Duration
	jitter JitterFunc
}

// NewFixedBackoff creates a fixed backoff strategy
func NewFixedBackoff(delay time.Duration, opts ...BackoffOption) *FixedBackoff {
	o := applyBackoffOptions(opts)
	return &FixedBackoff{delay: delay, jitter: o.jitter}
}

// NextDelay calculates the delay for the next retry
func (b *FixedBackoff) NextDelay(attempt int) time.Duration {
	return applyJitter(b.jitter, b.delay)
}

// ExponentialBackoff multiplies the delay after every retry, up to a cap
type ExponentialBackoff struct {
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewExponentialBackoff creates an exponential backoff strategy. The
// multiplier defaults to 2 and the cap to 30 seconds.
func NewExponentialBackoff(initialDelay time.Duration, opts ...BackoffOption) *ExponentialBackoff {
	o := applyBackoffOptions(opts)
	b := &ExponentialBackoff{
		initialDelay: initialDelay,
		multiplier:   2.0,
		maxDelay:     30 * time.Second,
		jitter:       o.jitter,
	}
	if o.multiplier > 0 {
		b.multiplier = o.multiplier
	}
	if o.maxDelay > 0 {
		b.maxDelay = o.maxDelay
	}
	return b
}

// NextDelay calculates the delay for the next retry
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	scaled := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	delay := b.maxDelay
	if scaled < float64(b.maxDelay) {
		delay = time.Duration(scaled)
	}
	return applyJitter(b.jitter, delay)
}

// JitterFunc perturbs a computed delay
type JitterFunc func(time.Duration) time.Duration

func applyJitter(jitter JitterFunc, delay time.Duration) time.Duration {
	if jitter == nil || delay <= 0 {
		return delay
	}
	return jitter(delay)
}

// lockedRand serializes access to a *rand.Rand shared by concurrent workers
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Int64N(n)
}

// FullJitter returns a jitter picking uniformly in [0, delay). The random
// source is explicit so runs can be reproduced from a seed.
func FullJitter(r *rand.Rand) JitterFunc {
	lr := &lockedRand{r: r}
	return func(delay time.Duration) time.Duration {
		return time.Duration(lr.int64N(int64(delay)))
	}
}

// EqualJitter returns a jitter picking uniformly in [delay/2, delay)
func EqualJitter(r *rand.Rand) JitterFunc {
	lr := &lockedRand{r: r}
	return func(delay time.Duration) time.Duration {
		half := delay / 2
		if half == 0 {
			return delay
		}
		return half + time.Duration(lr.int64N(int64(delay-half)))
	}
}

// BackoffOption configures a backoff strategy
type BackoffOption func(*backoffOptions)

type backoffOptions struct {
	multiplier float64
	maxDelay   time.Duration
	jitter     JitterFunc
}

func applyBackoffOptions(opts []BackoffOption) backoffOptions {
	var o backoffOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMultiplier sets the growth factor (exponential backoff only)
func WithMultiplier(multiplier float64) BackoffOption {
	return func(o *backoffOptions) { o.multiplier = multiplier }
}

// WithMaxDelay caps the delay (exponential backoff only)
func WithMaxDelay(maxDelay time.Duration) BackoffOption {
	return func(o *backoffOptions) { o.maxDelay = maxDelay }
}

// WithJitter sets the jitter function
func WithJitter(jitter JitterFunc) BackoffOption {
	return func(o *backoffOptions) { o.jitter = jitter }
}
