/*
Package worker provides the fixed-size pool of detached workers that drains
a job queue.

# Overview

Each worker runs the same loop until its queue closes or its context ends:

 1. block on JobQueue.Get
 2. run the injected handler, recovering panics
 3. classify the result as Succeeded, Skipped or Failed
 4. push exactly one Outcome to the ResultSink and report progress
 5. call JobQueue.MarkDone, deferred so it runs on every path

Outcomes are pushed before MarkDone, so once JobQueue.Join returns the sink
holds an outcome for every accepted item.

# Lifecycle

Workers are started with Pool.Start and are never joined individually.
Closing the queue, or canceling the context passed to Start, lets each
worker return after its current item.

# Usage

	queue, _ := jobqueue.NewJobQueue[types.WorkItem[string]](0)
	sink := jobqueue.NewResultSink[types.Outcome]()

	pool, err := worker.NewPool(&worker.PoolConfig{PoolSize: 4}, queue, sink,
		types.HandlerFunc[string](func(ctx context.Context, item types.WorkItem[string]) (string, error) {
			return "done", nil
		}))
	if err != nil {
		log.Fatal(err)
	}
	if err := pool.Start(ctx); err != nil {
		log.Fatal(err)
	}
*/
package worker
