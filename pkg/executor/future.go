package executor

import (
	"context"
	"sync/atomic"

	"github.com/jzx17/goexecutor/pkg/types"
)

// Future is a single-assignment completion handle. It completes exactly once, either
// with a value or with an error, and every waiter observes the same outcome.
type Future[T any] struct {
	done       chan struct{}
	completing atomic.Bool

	value T
	err   error
}

// NewFuture creates an incomplete future
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// TrySucceed completes the future with v. It reports false if the future was already complete.
func (f *Future[T]) TrySucceed(v T) bool {
	if !f.completing.CompareAndSwap(false, true) {
		return false
	}
	f.value = v
	close(f.done)
	return true
}

// TryFail completes the future with err. It reports false if the future was already complete.
func (f *Future[T]) TryFail(err error) bool {
	if !f.completing.CompareAndSwap(false, true) {
		return false
	}
	f.err = err
	close(f.done)
	return true
}

// Cancel fails the future with ErrCancelled. A task that has not started yet will not run.
func (f *Future[T]) Cancel() bool {
	return f.TryFail(types.ErrCancelled)
}

// Done is closed once the future completes
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// IsDone reports whether the future has completed
func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// IsSuccess reports whether the future completed without error
func (f *Future[T]) IsSuccess() bool {
	return f.IsDone() && f.err == nil
}

// Err returns the failure cause, nil while incomplete or after success
func (f *Future[T]) Err() error {
	if !f.IsDone() {
		return nil
	}
	return f.err
}

// Wait blocks until the future completes or ctx ends
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Callable is a value-producing unit of work
type Callable[T any] func(ctx context.Context) (T, error)

// futureTask runs a Callable and completes its future with the outcome
type futureTask[T any] struct {
	id     string
	fn     Callable[T]
	future *Future[T]
}

func newFutureTask[T any](fn Callable[T]) *futureTask[T] {
	return &futureTask[T]{
		id:     nextTaskID(),
		fn:     fn,
		future: NewFuture[T](),
	}
}

// Execute runs the callable unless the future was cancelled first. Failures are delivered
// through the future, so they are not reported again to the executor.
func (t *futureTask[T]) Execute(ctx context.Context) error {
	if t.future.IsDone() {
		return nil
	}

	finished := false
	defer func() {
		if r := recover(); r != nil {
			t.future.TryFail(panicError(t.id, r))
			return
		}
		if !finished {
			t.future.TryFail(types.ErrLoopAborted)
		}
	}()

	v, err := t.fn(ctx)
	finished = true
	if err != nil {
		t.future.TryFail(err)
		return nil
	}
	t.future.TrySucceed(v)
	return nil
}

// ID returns the task ID
func (t *futureTask[T]) ID() string {
	return t.id
}

func (t *futureTask[T]) discard(err error) {
	t.future.TryFail(err)
}
