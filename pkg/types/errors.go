// Package types defines error types
package types

import (
	"errors"
	"fmt"
)

// Predefined errors
var (
	// ErrRejected indicates a submission was refused by the executor
	ErrRejected = errors.New("submission rejected")

	// ErrCapacityExceeded indicates a bounded task queue is full
	ErrCapacityExceeded = errors.New("task queue capacity exceeded")

	// ErrBlockingFromLoop indicates a blocking call was issued from the loop goroutine itself
	ErrBlockingFromLoop = errors.New("blocking call from event loop goroutine")

	// ErrThreadFactoryShutdown indicates the thread factory no longer creates threads
	ErrThreadFactoryShutdown = errors.New("thread factory is shut down")

	// ErrLoopAborted indicates the loop goroutine exited without completing shutdown
	ErrLoopAborted = errors.New("event loop aborted")

	// ErrTimeout indicates operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrCancelled indicates a future was cancelled before completion
	ErrCancelled = errors.New("operation cancelled")

	// ErrNilTask indicates a nil task was submitted
	ErrNilTask = errors.New("task cannot be nil")

	// ErrInvalidConfig indicates invalid executor configuration
	ErrInvalidConfig = errors.New("invalid executor configuration")
)

// RejectedError describes why a submission or shutdown request was refused
type RejectedError struct {
	// Executor is the name of the executor that refused the work
	Executor string

	// State is the lifecycle state observed when the work was refused
	State LifecycleState

	// Cause is the underlying reason, nil when the executor was simply shut down
	Cause error
}

// Error implements the error interface
func (e *RejectedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("executor %s rejected submission (state %s): %v", e.Executor, e.State, e.Cause)
	}
	return fmt.Sprintf("executor %s rejected submission (state %s)", e.Executor, e.State)
}

// Unwrap returns the underlying error
func (e *RejectedError) Unwrap() error {
	return e.Cause
}

// Is reports ErrRejected for every RejectedError
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// NewRejectedError creates a new rejection error
func NewRejectedError(executor string, state LifecycleState, cause error) *RejectedError {
	return &RejectedError{
		Executor: executor,
		State:    state,
		Cause:    cause,
	}
}

// TaskError represents a failure raised while executing a task on the loop goroutine
type TaskError struct {
	// TaskID is the identifier of the failed task, empty for anonymous tasks
	TaskID string

	// Panicked reports whether the failure was a recovered panic
	Panicked bool

	// Cause is the underlying error
	Cause error

	// Context contains error context information
	Context map[string]interface{}
}

// Error implements the error interface
func (e *TaskError) Error() string {
	if e.Panicked {
		return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Cause)
	}
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Cause)
}

// Unwrap returns the underlying error
func (e *TaskError) Unwrap() error {
	return e.Cause
}

// NewTaskError creates a new task error
func NewTaskError(taskID string, cause error) *TaskError {
	return &TaskError{
		TaskID:  taskID,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds error context
func (e *TaskError) WithContext(key string, value interface{}) *TaskError {
	e.Context[key] = value
	return e
}

// IsRejected checks if an error is a submission rejection
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
