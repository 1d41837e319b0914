// Package buffer provides a fixed-capacity blocking FIFO and the symmetric
// producer/consumer roles that drive it.
package buffer

import (
	"context"
	"fmt"
	"sync"

	"github.com/jzx17/gojobs/pkg/types"
)

// BoundedBuffer is a fixed-capacity FIFO shared by producers and consumers.
// Push blocks while the buffer is full and Pop blocks while it is empty.
// The mutex never leaves the type; all waiting happens inside Push and Pop.
type BoundedBuffer[T any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	// ring storage, guarded by mu
	items []T
	head  int
	size  int

	closed bool
}

// New creates a buffer holding at most capacity items
func New[T any](capacity int) (*BoundedBuffer[T], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: buffer capacity must be positive, got %d", types.ErrInvalidConfig, capacity)
	}

	b := &BoundedBuffer[T]{
		items: make([]T, capacity),
	}
	b.notFull = sync.NewCond(&b.mu)
	b.notEmpty = sync.NewCond(&b.mu)
	return b, nil
}

// Push appends v, waiting for a free slot. It returns ctx.Err() if the
// context ends first and ErrBufferClosed once the buffer is closed.
func (b *BoundedBuffer[T]) Push(ctx context.Context, v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == len(b.items) && !b.closed {
		defer b.wakeOnDone(ctx)()
	}
	for b.size == len(b.items) && !b.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.notFull.Wait()
	}
	if b.closed {
		return types.ErrBufferClosed
	}

	b.insert(v)
	return nil
}

// Pop removes the oldest value, waiting for one to arrive. After Close it
// keeps returning buffered values and then ErrBufferClosed.
func (b *BoundedBuffer[T]) Pop(ctx context.Context) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 && !b.closed {
		defer b.wakeOnDone(ctx)()
	}
	for b.size == 0 && !b.closed {
		if err := ctx.Err(); err != nil {
			var zero T
			return zero, err
		}
		b.notEmpty.Wait()
	}
	if b.size == 0 {
		var zero T
		return zero, types.ErrBufferClosed
	}

	return b.remove(), nil
}

// TryPush appends v only if a slot is free
func (b *BoundedBuffer[T]) TryPush(v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.size == len(b.items) {
		return false
	}
	b.insert(v)
	return true
}

// TryPop removes the oldest value only if one is present
func (b *BoundedBuffer[T]) TryPop() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == 0 {
		var zero T
		return zero, false
	}
	return b.remove(), true
}

// Len returns the number of buffered values
func (b *BoundedBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer capacity
func (b *BoundedBuffer[T]) Cap() int {
	return len(b.items)
}

// Close rejects further pushes and wakes every waiter. Values already
// buffered can still be popped.
func (b *BoundedBuffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.notFull.Broadcast()
	b.notEmpty.Broadcast()
}

// insert requires mu held and a free slot
func (b *BoundedBuffer[T]) insert(v T) {
	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = v
	b.size++
	b.notEmpty.Signal()
}

// remove requires mu held and a non-empty buffer
func (b *BoundedBuffer[T]) remove() T {
	var zero T
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.size--
	b.notFull.Signal()
	return v
}

// wakeOnDone broadcasts to both conditions when ctx ends so that a waiter
// can observe the cancellation. The callback takes mu, so it cannot fire
// between a waiter's ctx check and its Wait.
func (b *BoundedBuffer[T]) wakeOnDone(ctx context.Context) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	stop := context.AfterFunc(ctx, func() {
		b.mu.Lock()
		b.notFull.Broadcast()
		b.notEmpty.Broadcast()
		b.mu.Unlock()
	})
	return func() { stop() }
}
