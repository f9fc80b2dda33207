package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFutureCompletesOnce(t *testing.T) {
	f := NewFuture[int]()
	assert.False(t, f.IsDone())
	assert.NoError(t, f.Err())

	assert.True(t, f.TrySucceed(7))
	assert.False(t, f.TrySucceed(8))
	assert.False(t, f.TryFail(errors.New("late")))
	assert.False(t, f.Cancel())

	v, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.True(t, f.IsSuccess())
}

func TestFutureFailure(t *testing.T) {
	f := NewFuture[string]()
	failure := errors.New("failed")
	assert.True(t, f.TryFail(failure))

	_, err := f.Wait(context.Background())
	assert.Equal(t, failure, err)
	assert.Equal(t, failure, f.Err())
	assert.False(t, f.IsSuccess())
}

func TestFutureWaitersSeeSameOutcome(t *testing.T) {
	f := NewFuture[int]()

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _ := f.Wait(context.Background())
			results[i] = v
		}(i)
	}

	f.TrySucceed(3)
	wg.Wait()
	for _, v := range results {
		assert.Equal(t, 3, v)
	}
}

func TestFutureWaitContext(t *testing.T) {
	f := NewFuture[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, f.IsDone())
}

func TestFutureTask(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		task := newFutureTask(func(ctx context.Context) (int, error) { return 5, nil })
		assert.NoError(t, task.Execute(context.Background()))
		v, err := task.future.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, v)
		assert.Contains(t, task.ID(), "task-")
	})

	t.Run("error goes to the future", func(t *testing.T) {
		failure := errors.New("nope")
		task := newFutureTask(func(ctx context.Context) (int, error) { return 0, failure })
		assert.NoError(t, task.Execute(context.Background()))
		assert.Equal(t, failure, task.future.Err())
	})

	t.Run("panic goes to the future", func(t *testing.T) {
		task := newFutureTask(func(ctx context.Context) (int, error) { panic("kaboom") })
		assert.NoError(t, task.Execute(context.Background()))

		var taskErr *types.TaskError
		require.ErrorAs(t, task.future.Err(), &taskErr)
		assert.True(t, taskErr.Panicked)
	})

	t.Run("cancelled task does not run", func(t *testing.T) {
		ran := false
		task := newFutureTask(func(ctx context.Context) (int, error) {
			ran = true
			return 1, nil
		})
		task.future.Cancel()
		assert.NoError(t, task.Execute(context.Background()))
		assert.False(t, ran)
		assert.ErrorIs(t, task.future.Err(), types.ErrCancelled)
	})

	t.Run("discard fails the future", func(t *testing.T) {
		task := newFutureTask(func(ctx context.Context) (int, error) { return 1, nil })
		rejection := types.NewRejectedError("e", types.StateTerminated, nil)
		task.discard(rejection)
		assert.ErrorIs(t, task.future.Err(), types.ErrRejected)
	})
}
