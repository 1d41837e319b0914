// Package coordinator runs one batch of work items through a worker pool and
// summarizes the outcomes.
//
// A run moves through Seeding, Dispatched, Joined or Canceled, and finally
// Summarized. Cancellation reaches the coordinator only: workers keep
// running their current item, the remaining queue is discarded, and every
// accepted item without an outcome is reported as skipped.
package coordinator

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"

	jqerrors "github.com/jzx17/gojobs/internal/errors"
	"github.com/jzx17/gojobs/pkg/jobqueue"
	"github.com/jzx17/gojobs/pkg/metrics"
	"github.com/jzx17/gojobs/pkg/report"
	"github.com/jzx17/gojobs/pkg/types"
	"github.com/jzx17/gojobs/pkg/worker"
)

// Config defines coordinator configuration
type Config struct {
	// Workers is the pool size; 0 means runtime.NumCPU()
	Workers int

	// QueueCapacity bounds the job queue; 0 means unbounded
	QueueCapacity int

	// Reporter receives progress and error narration (optional)
	Reporter types.Reporter

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Metrics records run activity (optional)
	Metrics metrics.Recorder

	// Classifier maps handler errors to outcome kinds (optional)
	Classifier *jqerrors.Classifier

	// OnStateChange is called on every run state transition (optional)
	OnStateChange func(from, to types.RunState)
}

// Coordinator distributes work items to a fixed pool of workers
type Coordinator[T any] struct {
	config  Config
	handler types.Handler[T]
}

// New creates a coordinator that processes items with handler
func New[T any](config Config, handler types.Handler[T]) (*Coordinator[T], error) {
	if config.Workers < 0 {
		return nil, fmt.Errorf("%w: workers must not be negative, got %d", types.ErrInvalidConfig, config.Workers)
	}
	if config.QueueCapacity < 0 {
		return nil, fmt.Errorf("%w: queue capacity must not be negative, got %d", types.ErrInvalidConfig, config.QueueCapacity)
	}
	if handler == nil {
		return nil, fmt.Errorf("%w: handler is required", types.ErrInvalidConfig)
	}

	if config.Workers == 0 {
		config.Workers = runtime.NumCPU()
	}
	config.Reporter = report.OrDiscard(config.Reporter)
	config.Clock = types.OrRealClock(config.Clock)
	config.Metrics = metrics.OrNoop(config.Metrics)
	if config.Classifier == nil {
		config.Classifier = jqerrors.NewClassifier()
	}

	return &Coordinator[T]{config: config, handler: handler}, nil
}

// Workers returns the effective pool size
func (c *Coordinator[T]) Workers() int {
	return c.config.Workers
}

// Run enqueues every item from source, waits for the pool to finish them
// and returns the summary. If ctx ends first the summary is marked canceled
// and unfinished items are counted as skipped. A source error stops seeding;
// the accepted items are still processed and the error is returned together
// with the summary.
func (c *Coordinator[T]) Run(ctx context.Context, source types.Source[T]) (types.Summary, error) {
	if source == nil {
		return types.Summary{}, fmt.Errorf("%w: source is required", types.ErrInvalidConfig)
	}

	start := c.config.Clock.Now()
	r, err := c.newRun()
	if err != nil {
		return types.Summary{}, err
	}

	pool, err := worker.NewPool(&worker.PoolConfig{
		PoolSize:   c.config.Workers,
		Clock:      c.config.Clock,
		Reporter:   c.config.Reporter,
		Classifier: c.config.Classifier,
		Metrics:    c.config.Metrics,
	}, r.queue, r.sink, c.handler)
	if err != nil {
		return types.Summary{}, err
	}
	// workers are detached from ctx so in-flight items run to completion
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return types.Summary{}, err
	}

	interrupted, srcErr := r.seed(ctx, source)
	r.transition(types.StateDispatched)

	// a run whose seeding was cut short is canceled even if the accepted
	// items all finished
	canceled := false
	if err := r.queue.Join(ctx); err != nil || interrupted {
		canceled = true
		c.config.Reporter.Report("canceling...", false)
		r.transition(types.StateCanceled)
	} else {
		r.transition(types.StateJoined)
	}

	// workers exit once their current item ends
	r.queue.Close()

	summary := r.summarize(canceled)
	summary.Elapsed = c.config.Clock.Since(start)
	r.transition(types.StateSummarized)
	c.config.Metrics.RunFinished(summary)

	if srcErr != nil {
		return summary, fmt.Errorf("coordinator: reading source: %w", srcErr)
	}
	return summary, nil
}

type acceptedItem struct {
	id   string
	name string
}

// run is the per-call state of Run
type run[T any] struct {
	c     *Coordinator[T]
	id    string
	state types.RunState

	queue *jobqueue.JobQueue[types.WorkItem[T]]
	sink  *jobqueue.ResultSink[types.Outcome]

	accepted []acceptedItem
	seen     map[string]struct{}
}

func (c *Coordinator[T]) newRun() (*run[T], error) {
	queue, err := jobqueue.NewJobQueue[types.WorkItem[T]](c.config.QueueCapacity)
	if err != nil {
		return nil, err
	}
	return &run[T]{
		c:     c,
		id:    uuid.NewString(),
		state: types.StateSeeding,
		queue: queue,
		sink:  jobqueue.NewResultSink[types.Outcome](),
		seen:  make(map[string]struct{}),
	}, nil
}

// seed enqueues items until the source is exhausted or fails. It reports
// interrupted when ctx ended before the source was exhausted.
func (r *run[T]) seed(ctx context.Context, source types.Source[T]) (interrupted bool, err error) {
	for item, srcErr := range source {
		if srcErr != nil {
			return false, srcErr
		}
		if ctx.Err() != nil {
			return true, nil
		}

		if item.ID == "" {
			item.ID = uuid.NewString()
		} else if _, dup := r.seen[item.ID]; dup {
			r.c.config.Reporter.Report(fmt.Sprintf("duplicate item id %q for %s, assigning a new one", item.ID, item.Name), true)
			item.ID = uuid.NewString()
		}

		if err := r.queue.Put(ctx, item); err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			return false, err
		}
		r.seen[item.ID] = struct{}{}
		r.accepted = append(r.accepted, acceptedItem{id: item.ID, name: item.Name})
		r.c.config.Metrics.ItemAccepted()
	}
	return false, nil
}

// summarize drains the sink and builds exactly one outcome per accepted
// item, in acceptance order
func (r *run[T]) summarize(canceled bool) types.Summary {
	byID := make(map[string]types.Outcome, len(r.accepted))
	for _, o := range r.sink.Drain() {
		if _, ok := r.seen[o.ItemID]; !ok {
			r.c.config.Reporter.Report(fmt.Sprintf("outcome for unknown item %q dropped", o.ItemID), true)
			continue
		}
		if _, dup := byID[o.ItemID]; dup {
			r.c.config.Reporter.Report(fmt.Sprintf("duplicate outcome for item %q dropped", o.ItemID), true)
			continue
		}
		byID[o.ItemID] = o
	}

	summary := types.Summary{
		RunID:    r.id,
		Todo:     len(r.accepted),
		Details:  make(map[string]int),
		Canceled: canceled,
		Workers:  r.c.config.Workers,
		Outcomes: make([]types.Outcome, 0, len(r.accepted)),
	}
	for _, a := range r.accepted {
		o, ok := byID[a.id]
		if !ok {
			o = types.Outcome{
				ItemID:   a.id,
				ItemName: a.name,
				Kind:     types.Skipped,
				Err:      types.ErrCanceled,
				WorkerID: -1,
			}
		}

		switch o.Kind {
		case types.Succeeded:
			summary.Succeeded++
			summary.Details[o.Detail]++
		case types.Skipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
		summary.Outcomes = append(summary.Outcomes, o)
	}
	return summary
}

func (r *run[T]) transition(to types.RunState) {
	from := r.state
	r.state = to
	if r.c.config.OnStateChange != nil {
		r.c.config.OnStateChange(from, to)
	}
}
