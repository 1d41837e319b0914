package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	jqerrors "github.com/jzx17/gojobs/internal/errors"
	"github.com/jzx17/gojobs/pkg/jobqueue"
	"github.com/jzx17/gojobs/pkg/metrics"
	"github.com/jzx17/gojobs/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker drains one shared job queue
type Worker[T any] struct {
	id    int
	state int32 // atomic state

	queue   *jobqueue.JobQueue[types.WorkItem[T]]
	sink    *jobqueue.ResultSink[types.Outcome]
	handler types.Handler[T]

	reporter   types.Reporter
	classifier *jqerrors.Classifier
	metrics    metrics.Recorder
	clock      types.Clock

	// statistics
	totalSucceeded int64
	totalSkipped   int64
	totalFailed    int64
	lastItemTime   int64 // Unix nanosecond timestamp
}

// newWorker creates a worker; the pool fills in defaults before calling it
func newWorker[T any](id int, cfg *PoolConfig, queue *jobqueue.JobQueue[types.WorkItem[T]],
	sink *jobqueue.ResultSink[types.Outcome], handler types.Handler[T]) *Worker[T] {
	return &Worker[T]{
		id:         id,
		state:      int32(WorkerStateIdle),
		queue:      queue,
		sink:       sink,
		handler:    handler,
		reporter:   cfg.Reporter,
		classifier: cfg.Classifier,
		metrics:    cfg.Metrics,
		clock:      cfg.Clock,
	}
}

// ID returns the Worker ID
func (w *Worker[T]) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker[T]) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// Run processes items until the queue closes or ctx ends
func (w *Worker[T]) Run(ctx context.Context) {
	defer atomic.StoreInt32(&w.state, int32(WorkerStateStopped))

	for {
		item, err := w.queue.Get(ctx)
		if err != nil {
			return
		}
		w.processItem(ctx, item)
	}
}

// processItem handles one dequeued item. MarkDone is deferred first so
// that it runs last, after the outcome has been pushed.
func (w *Worker[T]) processItem(ctx context.Context, item types.WorkItem[T]) {
	defer func() {
		if err := w.queue.MarkDone(); err != nil {
			w.reporter.Report(fmt.Sprintf("worker %d: %v", w.id, err), true)
		}
	}()

	atomic.StoreInt32(&w.state, int32(WorkerStateWorking))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateIdle))

	startTime := w.clock.Now()
	atomic.StoreInt64(&w.lastItemTime, startTime.UnixNano())

	w.metrics.WorkerBusy(1)
	detail, err := w.execute(ctx, item)
	w.metrics.WorkerBusy(-1)

	outcome := types.Outcome{
		ItemID:   item.ID,
		ItemName: item.Name,
		Kind:     w.classifier.Classify(err),
		Detail:   detail,
		Err:      err,
		WorkerID: w.id,
		Duration: w.clock.Since(startTime),
	}

	switch outcome.Kind {
	case types.Succeeded:
		atomic.AddInt64(&w.totalSucceeded, 1)
		if outcome.Detail == "" {
			outcome.Detail = "processed"
		}
		w.reporter.Report(fmt.Sprintf("%s %s", outcome.Detail, item.Name), false)
	case types.Skipped:
		atomic.AddInt64(&w.totalSkipped, 1)
		w.reporter.Report(fmt.Sprintf("skipped %s: %v", item.Name, err), false)
	default:
		atomic.AddInt64(&w.totalFailed, 1)
		outcome.Err = w.wrapFailure(item, err)
		w.reporter.Report(outcome.Err.Error(), true)
	}

	w.metrics.ItemCompleted(outcome.Kind, outcome.Duration)
	w.sink.Put(outcome)
}

// execute runs the handler, converting a panic into a HandlerError that
// carries the stack trace
func (w *Worker[T]) execute(ctx context.Context, item types.WorkItem[T]) (detail string, err error) {
	defer func() {
		if r := recover(); r != nil {
			var buf [4096]byte
			n := runtime.Stack(buf[:], false)

			var cause error
			switch v := r.(type) {
			case error:
				cause = fmt.Errorf("panic: %w", v)
			default:
				cause = fmt.Errorf("panic: %v", v)
			}

			detail = ""
			err = types.NewHandlerError(item.ID, cause).
				WithContext("stack_trace", string(buf[:n])).
				WithContext("worker_id", w.id).
				WithContext("item_name", item.Name)
		}
	}()

	return w.handler.Process(ctx, item)
}

// wrapFailure attaches the item and worker to a failure unless execute
// already did so for a panic
func (w *Worker[T]) wrapFailure(item types.WorkItem[T], err error) error {
	var he *types.HandlerError
	if errors.As(err, &he) && he.ItemID == item.ID {
		return err
	}
	return types.NewHandlerError(item.ID, err).
		WithContext("worker_id", w.id).
		WithContext("item_name", item.Name)
}

// Stats gets Worker statistics
func (w *Worker[T]) Stats() WorkerStats {
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalSucceeded: atomic.LoadInt64(&w.totalSucceeded),
		TotalSkipped:   atomic.LoadInt64(&w.totalSkipped),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
		LastItemTime:   time.Unix(0, atomic.LoadInt64(&w.lastItemTime)),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalSucceeded int64
	TotalSkipped   int64
	TotalFailed    int64
	LastItemTime   time.Time
}

// Total returns the number of items the worker has finished
func (ws WorkerStats) Total() int64 {
	return ws.TotalSucceeded + ws.TotalSkipped + ws.TotalFailed
}

// GetErrorRate gets the share of failed items
func (ws WorkerStats) GetErrorRate() float64 {
	total := ws.Total()
	if total == 0 {
		return 0
	}
	return float64(ws.TotalFailed) / float64(total)
}
