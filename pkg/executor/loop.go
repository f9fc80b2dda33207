package executor

import "github.com/jzx17/goexecutor/pkg/types"

// LoopBody is the code the loop goroutine runs. It must keep taking and running tasks until
// ConfirmShutdown reports true; returning earlier is treated as a bug and the executor
// finishes shutdown on its behalf.
type LoopBody func(l *Loop)

// Loop is the view of the executor handed to a LoopBody. Its methods must only be called
// from the loop goroutine.
type Loop struct {
	e *SingleThreadExecutor
}

// Executor returns the executor that owns the loop
func (l *Loop) Executor() *SingleThreadExecutor {
	return l.e
}

// TryTake removes the next task without blocking
func (l *Loop) TryTake() (types.Task, bool) {
	return l.e.queue.TryTake()
}

// BlockingTake returns the next task, parking until a wakeup, the idle poll interval or
// shutdown when the queue is empty. It may return no task.
func (l *Loop) BlockingTake() (types.Task, bool) {
	return l.e.queue.BlockingTake(l.e.shutdownCtx)
}

// HasTasks reports whether anything is queued
func (l *Loop) HasTasks() bool {
	return l.e.queue.HasPending()
}

// RunTask runs one task, recovering and reporting its failure
func (l *Loop) RunTask(task types.Task) {
	if task != nil {
		l.e.runTask(task)
	}
}

// RunAllTasks runs queued tasks until the queue is empty and reports whether any ran
func (l *Loop) RunAllTasks() bool {
	return l.e.runAllTasks()
}

// ConfirmShutdown reports whether the loop body may return. It runs pending tasks and
// shutdown hooks, and waits out the quiet period in short steps, so loop bodies call it
// once per iteration.
func (l *Loop) ConfirmShutdown() bool {
	return l.e.confirmShutdown()
}

// DefaultLoopBody parks on the queue and runs tasks one at a time
func DefaultLoopBody(l *Loop) {
	for !l.ConfirmShutdown() {
		if task, ok := l.BlockingTake(); ok {
			l.RunTask(task)
		}
	}
}
