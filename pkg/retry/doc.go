// Package retry retries transient handler failures.
//
// Only errors marked with types.Retryable are retried by default. The wait
// between attempts comes from a BackoffStrategy unless the error carries its
// own RetryAfter.
//
// Basic usage example:
//
//	rng := rand.New(rand.NewPCG(seed, 0))
//	policy := retry.NewPolicy(3, retry.NewExponentialBackoff(100*time.Millisecond,
//		retry.WithMaxDelay(2*time.Second),
//		retry.WithJitter(retry.EqualJitter(rng))))
//
//	handler := retry.Wrap(fetchFeed, retry.NewExecutor(policy))
//
// Custom retry conditions:
//
//	policy := retry.NewPolicy(5, retry.NewFixedBackoff(time.Second),
//		retry.WithRetryCondition(func(err error) bool {
//			return errors.Is(err, syscall.ECONNRESET)
//		}))
//
// Executors are safe for concurrent use by every worker of a pool.
package retry
