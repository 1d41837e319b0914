package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	jqerrors "github.com/jzx17/gojobs/internal/errors"
	"github.com/jzx17/gojobs/pkg/jobqueue"
	"github.com/jzx17/gojobs/pkg/metrics"
	"github.com/jzx17/gojobs/pkg/report"
	"github.com/jzx17/gojobs/pkg/types"
)

// PoolConfig defines configuration for a worker pool
type PoolConfig struct {
	// PoolSize is the number of workers
	PoolSize int

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Reporter receives progress and error narration (optional)
	Reporter types.Reporter

	// Classifier maps handler errors to outcome kinds (optional)
	Classifier *jqerrors.Classifier

	// Metrics records worker activity (optional)
	Metrics metrics.Recorder
}

// DefaultPoolConfig returns default configuration
func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		PoolSize: 10,
		Clock:    types.NewRealClock(),
	}
}

// Pool is a fixed set of detached workers sharing one job queue and one
// result sink
type Pool[T any] struct {
	config  *PoolConfig
	workers []*Worker[T]
	queue   *jobqueue.JobQueue[types.WorkItem[T]]

	// 0: created, 1: running
	state int32
}

// NewPool creates a pool whose workers read from queue, write to sink and
// process items with handler
func NewPool[T any](config *PoolConfig, queue *jobqueue.JobQueue[types.WorkItem[T]],
	sink *jobqueue.ResultSink[types.Outcome], handler types.Handler[T]) (*Pool[T], error) {
	if config == nil {
		config = DefaultPoolConfig()
	}

	// parameter validation
	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("%w: pool size must be positive, got %d", types.ErrInvalidConfig, config.PoolSize)
	}
	if queue == nil || sink == nil {
		return nil, fmt.Errorf("%w: queue and sink are required", types.ErrInvalidConfig)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", types.ErrInvalidConfig)
	}

	cfg := *config
	cfg.Clock = types.OrRealClock(cfg.Clock)
	cfg.Reporter = report.OrDiscard(cfg.Reporter)
	cfg.Metrics = metrics.OrNoop(cfg.Metrics)
	if cfg.Classifier == nil {
		cfg.Classifier = jqerrors.NewClassifier()
	}

	pool := &Pool[T]{
		config:  &cfg,
		workers: make([]*Worker[T], cfg.PoolSize),
		queue:   queue,
	}
	for i := range pool.workers {
		pool.workers[i] = newWorker(i, &cfg, queue, sink, handler)
	}

	return pool, nil
}

// Start launches every worker in its own goroutine and returns without
// waiting for them. Workers exit when the queue closes or ctx ends.
func (p *Pool[T]) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.state, 0, 1) {
		return fmt.Errorf("worker pool is already running")
	}

	for _, w := range p.workers {
		go w.Run(ctx)
	}
	return nil
}

// Size returns the worker pool size
func (p *Pool[T]) Size() int {
	return p.config.PoolSize
}

// IsRunning checks if the pool has been started
func (p *Pool[T]) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == 1
}

// Stats gets aggregate pool statistics
func (p *Pool[T]) Stats() PoolStats {
	stats := PoolStats{
		PoolSize:    p.config.PoolSize,
		QueueLength: p.queue.Len(),
	}
	for _, w := range p.workers {
		ws := w.Stats()
		switch ws.State {
		case WorkerStateWorking:
			stats.ActiveWorkers++
		case WorkerStateStopped:
			stats.StoppedWorkers++
		}
		stats.TotalSucceeded += ws.TotalSucceeded
		stats.TotalSkipped += ws.TotalSkipped
		stats.TotalFailed += ws.TotalFailed
	}
	return stats
}

// GetWorkerStats gets statistics of all workers
func (p *Pool[T]) GetWorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}

// PoolStats defines aggregate pool statistics
type PoolStats struct {
	PoolSize       int
	ActiveWorkers  int
	StoppedWorkers int
	QueueLength    int

	TotalSucceeded int64
	TotalSkipped   int64
	TotalFailed    int64
}
