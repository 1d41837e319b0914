package buffer

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jzx17/gojobs/pkg/types"
)

// Producer repeatedly generates a value and pushes it into a buffer
type Producer[T any] struct {
	ID       int
	Buffer   *BoundedBuffer[T]
	Rand     *rand.Rand
	Next     func(r *rand.Rand) T
	Interval time.Duration
	Reporter types.Reporter
	Clock    types.Clock
}

// Run produces until ctx ends or the buffer closes
func (p *Producer[T]) Run(ctx context.Context) error {
	clock := types.OrRealClock(p.Clock)
	for {
		v := p.Next(p.Rand)
		if !p.Buffer.TryPush(v) {
			report(p.Reporter, fmt.Sprintf("producer %d: buffer full, waiting", p.ID))
			if err := p.Buffer.Push(ctx, v); err != nil {
				return err
			}
		}
		report(p.Reporter, fmt.Sprintf("producer %d: produced %v", p.ID, v))

		if err := pause(ctx, clock, p.Interval); err != nil {
			return err
		}
	}
}

// Consumer repeatedly pops a value from a buffer and hands it to Handle
type Consumer[T any] struct {
	ID       int
	Buffer   *BoundedBuffer[T]
	Handle   func(v T)
	Interval time.Duration
	Reporter types.Reporter
	Clock    types.Clock
}

// Run consumes until ctx ends or the closed buffer has been emptied
func (c *Consumer[T]) Run(ctx context.Context) error {
	clock := types.OrRealClock(c.Clock)
	for {
		v, ok := c.Buffer.TryPop()
		if !ok {
			report(c.Reporter, fmt.Sprintf("consumer %d: buffer empty, waiting", c.ID))
			var err error
			if v, err = c.Buffer.Pop(ctx); err != nil {
				return err
			}
		}
		report(c.Reporter, fmt.Sprintf("consumer %d: consumed %v", c.ID, v))
		if c.Handle != nil {
			c.Handle(v)
		}

		if err := pause(ctx, clock, c.Interval); err != nil {
			return err
		}
	}
}

// RolesConfig describes a set of producers and consumers sharing a buffer
type RolesConfig[T any] struct {
	Producers int
	Consumers int

	// Seed derives one deterministic random stream per producer
	Seed uint64
	Next func(r *rand.Rand) T

	// Handle receives every consumed value; it may be called concurrently
	Handle func(v T)

	ProducerInterval time.Duration
	ConsumerInterval time.Duration
	Reporter         types.Reporter
	Clock            types.Clock
}

// RunRoles runs the configured producers and consumers against buf until
// ctx ends. Cancellation and buffer closure count as a normal stop.
func RunRoles[T any](ctx context.Context, buf *BoundedBuffer[T], cfg RolesConfig[T]) error {
	if cfg.Producers <= 0 || cfg.Consumers <= 0 {
		return fmt.Errorf("%w: need at least one producer and one consumer, got %d/%d",
			types.ErrInvalidConfig, cfg.Producers, cfg.Consumers)
	}
	if cfg.Next == nil {
		return fmt.Errorf("%w: producer value function is required", types.ErrInvalidConfig)
	}

	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < cfg.Consumers; i++ {
		c := &Consumer[T]{
			ID:       i,
			Buffer:   buf,
			Handle:   cfg.Handle,
			Interval: cfg.ConsumerInterval,
			Reporter: cfg.Reporter,
			Clock:    cfg.Clock,
		}
		g.Go(func() error { return stopped(c.Run(gctx)) })
	}
	for i := 0; i < cfg.Producers; i++ {
		p := &Producer[T]{
			ID:       i,
			Buffer:   buf,
			Rand:     rand.New(rand.NewPCG(cfg.Seed, uint64(i))),
			Next:     cfg.Next,
			Interval: cfg.ProducerInterval,
			Reporter: cfg.Reporter,
			Clock:    cfg.Clock,
		}
		g.Go(func() error { return stopped(p.Run(gctx)) })
	}

	return g.Wait()
}

// stopped maps the expected termination errors to nil
func stopped(err error) error {
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, types.ErrBufferClosed) {
		return nil
	}
	return err
}

func pause(ctx context.Context, clock types.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func report(r types.Reporter, msg string) {
	if r != nil {
		r.Report(msg, false)
	}
}
