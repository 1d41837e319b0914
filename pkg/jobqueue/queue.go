// Package jobqueue provides the joinable job queue that feeds a worker pool
// and the result sink that collects what the workers produce.
package jobqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/jzx17/gojobs/pkg/types"
)

// JobQueue is a FIFO of work items with a completion barrier. Every item
// returned by Get must be acknowledged with exactly one MarkDone; Join
// returns once all accepted items have been acknowledged.
type JobQueue[T any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	allDone  *sync.Cond

	items    []T
	capacity int
	counter  CompletionCounter
	closed   bool
}

// NewJobQueue creates a queue. A capacity of 0 means unbounded.
func NewJobQueue[T any](capacity int) (*JobQueue[T], error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: queue capacity must not be negative, got %d", types.ErrInvalidConfig, capacity)
	}

	q := &JobQueue[T]{capacity: capacity}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	q.allDone = sync.NewCond(&q.mu)
	return q, nil
}

// Put accepts an item. It blocks only when the queue is bounded and full.
func (q *JobQueue[T]) Put(ctx context.Context, item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.full() && !q.closed {
		defer q.wakeOnDone(ctx)()
	}
	for q.full() && !q.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.notFull.Wait()
	}
	if q.closed {
		return types.ErrQueueClosed
	}

	q.counter.Accept()
	q.items = append(q.items, item)
	q.notEmpty.Signal()
	return nil
}

// Get removes the oldest item, blocking until one is available. It returns
// ErrQueueClosed once the queue is closed.
func (q *JobQueue[T]) Get(ctx context.Context) (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 && !q.closed {
		defer q.wakeOnDone(ctx)()
	}
	for len(q.items) == 0 && !q.closed {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		q.notEmpty.Wait()
	}
	if q.closed {
		return zero, types.ErrQueueClosed
	}

	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	q.notFull.Signal()
	return item, nil
}

// MarkDone acknowledges one item previously returned by Get
func (q *JobQueue[T]) MarkDone() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.counter.MarkDone(); err != nil {
		return err
	}
	if q.counter.Settled() {
		q.allDone.Broadcast()
	}
	return nil
}

// Join blocks until every accepted item has been marked done, including
// items accepted while Join is waiting. It returns ctx.Err() if ctx ends
// first and ErrQueueClosed if the queue closes with work outstanding.
func (q *JobQueue[T]) Join(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.counter.Settled() && !q.closed {
		defer q.wakeOnDone(ctx)()
	}
	for !q.counter.Settled() {
		if q.closed {
			return types.ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		q.allDone.Wait()
	}
	return nil
}

// Close rejects further puts, discards queued items and wakes every
// waiter. It returns the number of discarded items.
func (q *JobQueue[T]) Close() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0
	}
	q.closed = true
	discarded := len(q.items)
	q.items = nil

	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
	q.allDone.Broadcast()
	return discarded
}

// Counts returns the accepted and done totals
func (q *JobQueue[T]) Counts() (accepted, done int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counter.Accepted(), q.counter.Done()
}

// Len returns the number of items waiting to be fetched
func (q *JobQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsClosed reports whether Close has been called
func (q *JobQueue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *JobQueue[T]) full() bool {
	return q.capacity > 0 && len(q.items) >= q.capacity
}

// wakeOnDone broadcasts on every condition when ctx ends
func (q *JobQueue[T]) wakeOnDone(ctx context.Context) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notEmpty.Broadcast()
		q.notFull.Broadcast()
		q.allDone.Broadcast()
		q.mu.Unlock()
	})
	return func() { stop() }
}
