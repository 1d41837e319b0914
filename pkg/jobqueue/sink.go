package jobqueue

import (
	"sync"
)

// ResultSink collects results from many producers for a single consumer.
// Drain is meant to run after the producers have stopped.
type ResultSink[R any] struct {
	mu      sync.Mutex
	results []R
}

// NewResultSink creates an empty sink
func NewResultSink[R any]() *ResultSink[R] {
	return &ResultSink[R]{}
}

// Put deposits a result. It never blocks on the consumer.
func (s *ResultSink[R]) Put(r R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
}

// TryGet removes the oldest result if there is one
func (s *ResultSink[R]) TryGet() (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero R
	if len(s.results) == 0 {
		return zero, false
	}
	r := s.results[0]
	s.results[0] = zero
	s.results = s.results[1:]
	return r, true
}

// Drain removes and returns every result currently held
func (s *ResultSink[R]) Drain() []R {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.results
	s.results = nil
	return out
}

// Len returns the number of results currently held
func (s *ResultSink[R]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
