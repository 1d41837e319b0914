package types

import (
	"errors"
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrQueueClosed indicates the job queue has been closed
	ErrQueueClosed = errors.New("job queue is closed")

	// ErrBufferClosed indicates the bounded buffer has been closed
	ErrBufferClosed = errors.New("buffer is closed")

	// ErrCanceled marks items that were accepted but never completed
	// because the run was interrupted
	ErrCanceled = errors.New("run canceled")

	// ErrProtocolViolation indicates a completion was marked more times
	// than items were accepted
	ErrProtocolViolation = errors.New("completion protocol violation")

	// ErrSkip is returned by handlers to record an item as skipped
	ErrSkip = errors.New("item skipped")

	// ErrInvalidConfig indicates an invalid configuration value
	ErrInvalidConfig = errors.New("invalid configuration")
)

// HandlerError wraps a failure raised while processing one work item
type HandlerError struct {
	// ItemID identifies the work item that failed
	ItemID string

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler error on item %s: %v", e.ItemID, e.Cause)
}

// Unwrap returns the underlying error
func (e *HandlerError) Unwrap() error {
	return e.Cause
}

// Is checks if the error is a specific error
func (e *HandlerError) Is(target error) bool {
	return errors.Is(e.Cause, target)
}

// NewHandlerError creates a new handler error
func NewHandlerError(itemID string, cause error) *HandlerError {
	return &HandlerError{
		ItemID:  itemID,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *HandlerError) WithContext(key string, value interface{}) *HandlerError {
	e.Context[key] = value
	return e
}

// RetryableError represents a transient failure worth another attempt
type RetryableError struct {
	// Err is the underlying error
	Err error

	// RetryAfter is the suggested retry delay, zero to defer to the policy
	RetryAfter time.Duration
}

// Error implements the error interface
func (e *RetryableError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable marks err as transient.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

// GetRetryDelay returns the suggested retry delay
func GetRetryDelay(err error) time.Duration {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.RetryAfter
	}
	return 0
}
