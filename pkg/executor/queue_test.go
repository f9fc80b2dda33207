package executor

import (
	"context"
	"testing"
	"time"

	"github.com/jzx17/goexecutor/internal/testutils"
	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idTask(id string) types.Task {
	return NewBasicTaskWithID(id, func(ctx context.Context) error { return nil })
}

func TestTaskQueueFIFO(t *testing.T) {
	q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())

	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Offer(context.Background(), idTask(id), false, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, q.Len())
	assert.True(t, q.HasPending())

	for _, want := range []string{"a", "b", "c"} {
		task, ok := q.TryTake()
		require.True(t, ok)
		assert.Equal(t, want, task.ID())
	}

	_, ok := q.TryTake()
	assert.False(t, ok)
	assert.False(t, q.HasPending())
}

func TestTaskQueueCapacity(t *testing.T) {
	t.Run("reject policy", func(t *testing.T) {
		q := newTaskQueue(1, SaturationReject, 0, types.NewRealClock())

		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)

		_, err = q.Offer(context.Background(), idTask("b"), false, true)
		assert.ErrorIs(t, err, types.ErrCapacityExceeded)

		_, ok := q.TryTake()
		require.True(t, ok)
		_, err = q.Offer(context.Background(), idTask("c"), false, true)
		assert.NoError(t, err, "taking a task should free its slot")
	})

	t.Run("block policy waits for a slot", func(t *testing.T) {
		q := newTaskQueue(1, SaturationBlock, 0, types.NewRealClock())

		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)

		done := make(chan error, 1)
		go func() {
			_, err := q.Offer(context.Background(), idTask("b"), false, true)
			done <- err
		}()

		select {
		case <-done:
			t.Fatal("offer should block while the queue is full")
		case <-time.After(50 * time.Millisecond):
		}

		_, ok := q.TryTake()
		require.True(t, ok)

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(testutils.DefaultTimeout):
			t.Fatal("offer did not resume after a slot was freed")
		}
	})

	t.Run("block policy honours context", func(t *testing.T) {
		q := newTaskQueue(1, SaturationBlock, 0, types.NewRealClock())
		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = q.Offer(ctx, idTask("b"), false, true)
		assert.ErrorIs(t, err, types.ErrCapacityExceeded)
	})

	t.Run("block policy without permission to block", func(t *testing.T) {
		q := newTaskQueue(1, SaturationBlock, 0, types.NewRealClock())
		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)

		_, err = q.Offer(context.Background(), idTask("b"), false, false)
		assert.ErrorIs(t, err, types.ErrCapacityExceeded)
	})
}

func TestTaskQueueRemove(t *testing.T) {
	q := newTaskQueue(2, SaturationReject, 0, types.NewRealClock())

	a, err := q.Offer(context.Background(), idTask("a"), false, true)
	require.NoError(t, err)
	b, err := q.Offer(context.Background(), idTask("b"), false, true)
	require.NoError(t, err)

	assert.True(t, q.Remove(a))
	assert.False(t, q.Remove(a), "second remove should report false")
	assert.False(t, q.Remove(nil))
	assert.Equal(t, 1, q.Len())

	task, ok := q.TryTake()
	require.True(t, ok)
	assert.Equal(t, "b", task.ID())
	assert.False(t, q.Remove(b), "a taken task may run")

	c, err := q.Offer(context.Background(), idTask("c"), false, true)
	require.NoError(t, err)
	q.Drain()
	assert.True(t, q.Remove(c), "a drained task will not run")
}

func TestTaskQueueDrain(t *testing.T) {
	q := newTaskQueue(3, SaturationReject, 0, types.NewRealClock())
	for _, id := range []string{"a", "b", "c"} {
		_, err := q.Offer(context.Background(), idTask(id), false, true)
		require.NoError(t, err)
	}
	q.OfferMarker()

	tasks := q.Drain()
	require.Len(t, tasks, 3)
	assert.Equal(t, "a", tasks[0].ID())
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.HasPending())

	for i := 0; i < 3; i++ {
		_, err := q.Offer(context.Background(), idTask("again"), false, true)
		assert.NoError(t, err, "drain should release every slot")
	}
}

func TestTaskQueueMarkers(t *testing.T) {
	q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())

	q.OfferMarker()
	assert.Equal(t, 0, q.Len(), "markers are not tasks")
	assert.True(t, q.HasPending(), "markers keep the loop from parking")

	_, err := q.Offer(context.Background(), idTask("a"), false, true)
	require.NoError(t, err)

	task, ok := q.TryTake()
	require.True(t, ok)
	assert.Equal(t, "a", task.ID())
	assert.False(t, q.HasPending())
}

func TestTaskQueueBlockingTake(t *testing.T) {
	t.Run("returns queued task", func(t *testing.T) {
		q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())
		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)

		task, ok := q.BlockingTake(context.Background())
		require.True(t, ok)
		assert.Equal(t, "a", task.ID())
	})

	t.Run("marker returns without parking", func(t *testing.T) {
		q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())
		q.OfferMarker()

		_, ok := q.BlockingTake(testutils.Context(t))
		assert.False(t, ok)
	})

	t.Run("signal wakes a parked consumer", func(t *testing.T) {
		q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())

		result := make(chan string, 1)
		go func() {
			task, ok := q.BlockingTake(context.Background())
			if ok {
				result <- task.ID()
			} else {
				result <- ""
			}
		}()

		time.Sleep(20 * time.Millisecond)
		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)
		q.Signal()

		select {
		case id := <-result:
			assert.Equal(t, "a", id)
		case <-time.After(testutils.DefaultTimeout):
			t.Fatal("consumer was not woken")
		}
	})

	t.Run("lazy offer without signal stays parked until idle poll", func(t *testing.T) {
		mock := testutils.NewMockClock(t)
		clock := testutils.NewClockWrapper(mock)
		q := newTaskQueue(0, SaturationReject, time.Second, clock)

		result := make(chan bool, 1)
		go func() {
			_, ok := q.BlockingTake(context.Background())
			result <- ok
		}()

		require.Eventually(t, func() bool {
			_, ok := mock.Peek()
			return ok
		}, testutils.DefaultTimeout, time.Millisecond, "consumer should park on the idle poll timer")

		_, err := q.Offer(context.Background(), idTask("lazy"), true, true)
		require.NoError(t, err)

		select {
		case <-result:
			t.Fatal("lazy offer should not wake the consumer")
		case <-time.After(20 * time.Millisecond):
		}

		d, w := mock.AdvanceNext()
		w.MustWait(testutils.Context(t))
		assert.Equal(t, time.Second, d)

		select {
		case ok := <-result:
			assert.True(t, ok)
		case <-time.After(testutils.DefaultTimeout):
			t.Fatal("idle poll did not wake the consumer")
		}
	})

	t.Run("taking a task consumes its signal", func(t *testing.T) {
		q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())
		_, err := q.Offer(context.Background(), idTask("a"), false, true)
		require.NoError(t, err)
		q.Signal()

		task, ok := q.TryTake()
		require.True(t, ok)
		assert.Equal(t, "a", task.ID())
		assert.Empty(t, q.signal)

		ctx, cancel := context.WithCancel(context.Background())
		result := make(chan bool, 1)
		go func() {
			_, ok := q.BlockingTake(ctx)
			result <- ok
		}()

		select {
		case <-result:
			t.Fatal("an empty queue should park the consumer")
		case <-time.After(20 * time.Millisecond):
		}

		_, err = q.Offer(context.Background(), idTask("lazy"), true, true)
		require.NoError(t, err)
		select {
		case <-result:
			t.Fatal("lazy offer should not wake the consumer")
		case <-time.After(20 * time.Millisecond):
		}

		cancel()
		select {
		case ok := <-result:
			assert.False(t, ok)
		case <-time.After(testutils.DefaultTimeout):
			t.Fatal("context did not end the wait")
		}
	})

	t.Run("context ends the wait", func(t *testing.T) {
		q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, ok := q.BlockingTake(ctx)
		assert.False(t, ok)
	})
}

func TestTaskQueueSignalCoalesces(t *testing.T) {
	q := newTaskQueue(0, SaturationReject, 0, types.NewRealClock())
	q.Signal()
	q.Signal()

	assert.Len(t, q.signal, 1)
}

func TestParseSaturationPolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    SaturationPolicy
		wantErr bool
	}{
		{input: "", want: SaturationReject},
		{input: "reject", want: SaturationReject},
		{input: "block", want: SaturationBlock},
		{input: "drop", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSaturationPolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
	assert.Equal(t, "unknown", SaturationPolicy(42).String())
}

func mustParse(t *testing.T, s string) SaturationPolicy {
	t.Helper()
	p, err := ParseSaturationPolicy(s)
	require.NoError(t, err)
	return p
}
