// Package types defines the core data model shared by the queue, the worker
// pool and the coordinator.
package types

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"
)

// WorkItem is one opaque unit of work processed by exactly one worker.
// It must not be modified after it has been enqueued.
type WorkItem[T any] struct {
	// ID uniquely identifies the item within a run
	ID string

	// Name is a human-readable descriptor used in reports
	Name string

	// Payload is the data handed to the handler
	Payload T
}

// OutcomeKind tags the result of processing a WorkItem
type OutcomeKind int

const (
	// Succeeded means the handler completed the item
	Succeeded OutcomeKind = iota
	// Skipped means the item was deliberately not processed
	Skipped
	// Failed means the handler returned an error or panicked
	Failed
)

// String returns the string representation of OutcomeKind
func (k OutcomeKind) String() string {
	switch k {
	case Succeeded:
		return "succeeded"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the tagged result of processing one WorkItem
type Outcome struct {
	ItemID   string
	ItemName string
	Kind     OutcomeKind

	// Detail is the handler's label for a success, e.g. "copied"
	Detail string

	// Err is set for Failed outcomes and explains Skipped ones
	Err error

	// WorkerID is -1 for outcomes synthesized by the coordinator
	WorkerID int
	Duration time.Duration
}

// Handler processes a single work item. The returned string labels a
// successful outcome; a non-nil error makes the outcome Skipped or Failed.
type Handler[T any] interface {
	Process(ctx context.Context, item WorkItem[T]) (string, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc[T any] func(ctx context.Context, item WorkItem[T]) (string, error)

// Process calls f(ctx, item)
func (f HandlerFunc[T]) Process(ctx context.Context, item WorkItem[T]) (string, error) {
	return f(ctx, item)
}

// Reporter receives progress and error narration
type Reporter interface {
	Report(message string, isError bool)
}

// ReporterFunc adapts a function to the Reporter interface
type ReporterFunc func(message string, isError bool)

// Report calls f(message, isError)
func (f ReporterFunc) Report(message string, isError bool) {
	f(message, isError)
}

// Source is a lazy, finite, single-use sequence of work items. A non-nil
// error ends job generation.
type Source[T any] = iter.Seq2[WorkItem[T], error]

// RunState is the lifecycle state of a coordinator run
type RunState int

const (
	// StateSeeding the queue pair exists and jobs are being enqueued
	StateSeeding RunState = iota
	// StateDispatched all jobs are enqueued and the coordinator is joining
	StateDispatched
	// StateJoined every accepted item has been marked done
	StateJoined
	// StateCanceled the join was interrupted
	StateCanceled
	// StateSummarized the result sink has been drained
	StateSummarized
)

// String returns the string representation of RunState
func (s RunState) String() string {
	switch s {
	case StateSeeding:
		return "Seeding"
	case StateDispatched:
		return "Dispatched"
	case StateJoined:
		return "Joined"
	case StateCanceled:
		return "Canceled"
	case StateSummarized:
		return "Summarized"
	default:
		return "Unknown"
	}
}

// Summary is the aggregate result of a run
type Summary struct {
	RunID string

	// Todo is the number of accepted items
	Todo      int
	Succeeded int
	Failed    int
	Skipped   int

	// Details counts successes by handler label
	Details map[string]int

	Canceled bool
	Workers  int
	Elapsed  time.Duration

	// Outcomes holds exactly one outcome per accepted item
	Outcomes []Outcome
}

// Completed returns the number of items the workers finished
func (s Summary) Completed() int {
	return s.Succeeded + s.Failed
}

// String renders a one-line report such as
// "copied 2 scaled 1 skipped 1 using 4 workers [canceled]".
func (s Summary) String() string {
	var b strings.Builder

	labels := make([]string, 0, len(s.Details))
	for label := range s.Details {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	if len(labels) == 0 {
		fmt.Fprintf(&b, "succeeded %d ", s.Succeeded)
	}
	for _, label := range labels {
		fmt.Fprintf(&b, "%s %d ", label, s.Details[label])
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, "failed %d ", s.Failed)
	}
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "skipped %d ", s.Skipped)
	}
	fmt.Fprintf(&b, "of %d using %d workers", s.Todo, s.Workers)
	if s.Canceled {
		b.WriteString(" [canceled]")
	}
	return b.String()
}
