package executor

import (
	"context"
	"errors"
	"time"

	"github.com/jzx17/goexecutor/pkg/types"
)

// Submit queues fn and returns a future for its result. A rejected submission returns the
// rejection and a future already failed with it.
func Submit[T any](e *SingleThreadExecutor, fn Callable[T]) (*Future[T], error) {
	task := newFutureTask(fn)
	if fn == nil {
		task.future.TryFail(types.ErrNilTask)
		return task.future, types.ErrNilTask
	}
	if err := e.Submit(task); err != nil {
		task.future.TryFail(err)
		return task.future, err
	}
	return task.future, nil
}

// InvokeAll runs every callable and waits for all of them. It must not be called from the
// loop goroutine, which would wait on itself.
func InvokeAll[T any](ctx context.Context, e *SingleThreadExecutor, callables []Callable[T]) ([]*Future[T], error) {
	return invokeAll(ctx, e, callables, 0)
}

// InvokeAllWithTimeout is InvokeAll bounded by timeout. Callables still unfinished when it
// expires are cancelled with ErrTimeout.
func InvokeAllWithTimeout[T any](ctx context.Context, e *SingleThreadExecutor, callables []Callable[T], timeout time.Duration) ([]*Future[T], error) {
	return invokeAll(ctx, e, callables, timeout)
}

// InvokeAny runs the callables and returns the first successful result. If all fail it
// returns their errors joined.
func InvokeAny[T any](ctx context.Context, e *SingleThreadExecutor, callables []Callable[T]) (T, error) {
	return invokeAny(ctx, e, callables, 0)
}

// InvokeAnyWithTimeout is InvokeAny bounded by timeout
func InvokeAnyWithTimeout[T any](ctx context.Context, e *SingleThreadExecutor, callables []Callable[T], timeout time.Duration) (T, error) {
	return invokeAny(ctx, e, callables, timeout)
}

func submitAll[T any](e *SingleThreadExecutor, callables []Callable[T]) ([]*Future[T], error) {
	futures := make([]*Future[T], 0, len(callables))
	for _, fn := range callables {
		f, err := Submit(e, fn)
		if err != nil {
			cancelAll(futures, err)
			return nil, err
		}
		futures = append(futures, f)
	}
	return futures, nil
}

func cancelAll[T any](futures []*Future[T], cause error) {
	for _, f := range futures {
		f.TryFail(cause)
	}
}

func deadline(e *SingleThreadExecutor, timeout time.Duration) (<-chan time.Time, func()) {
	if timeout <= 0 {
		return nil, func() {}
	}
	timer := e.clock.NewTimer(timeout)
	return timer.C(), func() { timer.Stop() }
}

func invokeAll[T any](ctx context.Context, e *SingleThreadExecutor, callables []Callable[T], timeout time.Duration) ([]*Future[T], error) {
	if e.InEventLoop() {
		return nil, types.ErrBlockingFromLoop
	}

	futures, err := submitAll(e, callables)
	if err != nil {
		return nil, err
	}

	expired, stop := deadline(e, timeout)
	defer stop()

	for _, f := range futures {
		select {
		case <-f.Done():
		case <-expired:
			cancelAll(futures, types.ErrTimeout)
			return futures, nil
		case <-ctx.Done():
			cancelAll(futures, ctx.Err())
			return futures, ctx.Err()
		}
	}
	return futures, nil
}

// Tasks run in submission order on one goroutine, so waiting on the futures in order
// observes completions in the order they happen.
func invokeAny[T any](ctx context.Context, e *SingleThreadExecutor, callables []Callable[T], timeout time.Duration) (T, error) {
	var zero T
	if e.InEventLoop() {
		return zero, types.ErrBlockingFromLoop
	}
	if len(callables) == 0 {
		return zero, errors.New("invoke any: no callables")
	}

	futures, err := submitAll(e, callables)
	if err != nil {
		return zero, err
	}

	expired, stop := deadline(e, timeout)
	defer stop()

	failures := make([]error, 0, len(futures))
	for _, f := range futures {
		select {
		case <-f.Done():
		case <-expired:
			cancelAll(futures, types.ErrTimeout)
			return zero, types.ErrTimeout
		case <-ctx.Done():
			cancelAll(futures, ctx.Err())
			return zero, ctx.Err()
		}

		if err := f.Err(); err != nil {
			failures = append(failures, err)
			continue
		}
		cancelAll(futures, types.ErrCancelled)
		v, _ := f.Wait(context.Background())
		return v, nil
	}
	return zero, errors.Join(failures...)
}
