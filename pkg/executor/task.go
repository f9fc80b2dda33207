package executor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jzx17/goexecutor/pkg/types"
)

// taskIDCounter is the global task ID counter
var taskIDCounter int64

// BasicTask is the basic implementation of the Task interface
type BasicTask struct {
	id   string
	lazy bool
	fn   func(ctx context.Context) error
}

// NewBasicTask creates a new basic task
func NewBasicTask(fn func(ctx context.Context) error) *BasicTask {
	return &BasicTask{
		id: nextTaskID(),
		fn: fn,
	}
}

func nextTaskID() string {
	return fmt.Sprintf("task-%d", atomic.AddInt64(&taskIDCounter, 1))
}

// NewLazyTask creates a basic task that is submitted lazily even through Submit
func NewLazyTask(fn func(ctx context.Context) error) *BasicTask {
	task := NewBasicTask(fn)
	task.lazy = true
	return task
}

// NewBasicTaskWithID creates a basic task with custom ID
func NewBasicTaskWithID(id string, fn func(ctx context.Context) error) *BasicTask {
	return &BasicTask{
		id: id,
		fn: fn,
	}
}

// Execute executes the task
func (t *BasicTask) Execute(ctx context.Context) error {
	if t.fn == nil {
		return fmt.Errorf("task %s has no execution function", t.id)
	}
	return t.fn(ctx)
}

// ID returns the task ID
func (t *BasicTask) ID() string {
	return t.id
}

// Lazy reports whether the task is submitted lazily
func (t *BasicTask) Lazy() bool {
	return t.lazy
}

// isLazy reports whether a task asks for lazy submission
func isLazy(task types.Task) bool {
	if lt, ok := task.(types.LazyTask); ok {
		return lt.Lazy()
	}
	return false
}

// discardable is implemented by tasks that own a completion handle, so that a task
// dropped without running can still complete its handle
type discardable interface {
	discard(err error)
}
