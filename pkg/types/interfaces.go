// Package types defines core interfaces and types for the executor library
package types

import (
	"context"
	"time"
)

// Task defines the task interface
type Task interface {
	// Execute executes the task
	Execute(ctx context.Context) error

	// ID returns the task ID (optional, for tracking)
	ID() string
}

// LazyTask is a Task that does not need to wake the loop goroutine when submitted.
// It runs no later than the next wakeup-triggering submission or the loop's own idle poll.
type LazyTask interface {
	Task

	// Lazy reports whether the task should be submitted lazily
	Lazy() bool
}

// TaskFunc adapts a function to the Task interface
type TaskFunc func(ctx context.Context) error

// Execute calls f(ctx)
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// ID returns an empty ID, function tasks are anonymous
func (f TaskFunc) ID() string {
	return ""
}

// LifecycleState defines the state of an executor. Values only ever increase.
type LifecycleState int32

const (
	// StateNotStarted the executor exists but its loop goroutine has not been created
	StateNotStarted LifecycleState = iota + 1
	// StateStarted the loop goroutine is running
	StateStarted
	// StateShuttingDown graceful shutdown was requested, tasks are still accepted
	StateShuttingDown
	// StateShutdown new submissions are rejected, the remaining queue is being drained
	StateShutdown
	// StateTerminated the loop goroutine has exited
	StateTerminated
)

// String returns the string representation of LifecycleState
func (s LifecycleState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateStarted:
		return "Started"
	case StateShuttingDown:
		return "ShuttingDown"
	case StateShutdown:
		return "Shutdown"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// EventExecutor defines the single-goroutine executor interface
type EventExecutor interface {
	// Submit submits a task and wakes the loop goroutine unless the task is lazy
	Submit(task Task) error

	// SubmitLazy submits a task without waking the loop goroutine
	SubmitLazy(task Task) error

	// SubmitWithTimeout submits a task, bounding how long a saturated queue may block the caller
	SubmitWithTimeout(task Task, timeout time.Duration) error

	// InEventLoop reports whether the caller runs on the loop goroutine
	InEventLoop() bool

	// State returns the lifecycle state
	State() LifecycleState

	// IsShuttingDown reports whether graceful shutdown was requested
	IsShuttingDown() bool

	// IsShutdown reports whether new submissions are rejected
	IsShutdown() bool

	// IsTerminated reports whether the loop goroutine has exited
	IsTerminated() bool

	// AwaitTermination blocks until the executor terminates or ctx ends
	AwaitTermination(ctx context.Context) error

	// Stats returns executor statistics
	Stats() ExecutorStats
}

// ExecutorStats defines basic statistics for an executor
type ExecutorStats struct {
	// Name is the executor name
	Name string

	// State is the current lifecycle state
	State LifecycleState

	// Submitted is the number of accepted submissions
	Submitted int64

	// LazySubmitted is the number of accepted lazy submissions
	LazySubmitted int64

	// Completed is the number of tasks that ran without error
	Completed int64

	// Failed is the number of tasks that returned an error or panicked
	Failed int64

	// Rejected is the number of refused submissions
	Rejected int64

	// Pending is the current number of queued tasks
	Pending int

	// QueueCapacity is the capacity of the queue, 0 for unbounded
	QueueCapacity int

	// LastTaskTime is when the loop last finished running tasks
	LastTaskTime time.Time
}

// ErrorHandler defines an error handling function (simple version)
// For advanced error handling, use the ErrorHandler interface in the internal/errors package
type ErrorHandler func(error) error
