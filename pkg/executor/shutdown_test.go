package executor

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/jzx17/goexecutor/internal/logging"
	"github.com/jzx17/goexecutor/internal/testutils"
	"github.com/jzx17/goexecutor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startParked runs one task and waits for the loop to park again, so that no stale
// wakeup is left behind
func startParked(t *testing.T, e *SingleThreadExecutor) {
	t.Helper()
	first := testutils.NewLatch()
	require.NoError(t, e.Submit(first))
	require.True(t, first.Await(testutils.DefaultTimeout))
	time.Sleep(20 * time.Millisecond)
}

func TestQuietPeriod(t *testing.T) {
	tests := []struct {
		name     string
		shutdown func(e *SingleThreadExecutor) *Future[struct{}]
		want     time.Duration
	}{
		{
			name: "explicit",
			shutdown: func(e *SingleThreadExecutor) *Future[struct{}] {
				return e.ShutdownGracefully(time.Second, 15*time.Second)
			},
			want: time.Second,
		},
		{
			name: "defaults",
			shutdown: func(e *SingleThreadExecutor) *Future[struct{}] {
				return e.Shutdown()
			},
			want: DefaultQuietPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutils.NewClockWrapper(testutils.NewMockClock(t))
			e := newTestExecutor(t, func(c *Config) { c.Clock = clock })
			startParked(t, e)

			f := tt.shutdown(e)
			elapsed := clock.AdvanceUntil(testutils.Context(t), t, f.IsDone)

			assert.Equal(t, tt.want, elapsed, "loop exits once the quiet period has passed")
			assert.NoError(t, e.AwaitTermination(testutils.Context(t)))
			assert.True(t, e.IsTerminated())
		})
	}
}

func TestQuietPeriodRestartsOnActivity(t *testing.T) {
	mock := testutils.NewMockClock(t)
	clock := testutils.NewClockWrapper(mock)
	e := newTestExecutor(t, func(c *Config) { c.Clock = clock })
	startParked(t, e)

	ctx := testutils.Context(t)
	f := e.ShutdownGracefully(2*time.Second, time.Minute)

	var elapsed time.Duration
	late := testutils.NewLatch()
	submitted := false
	for !f.IsDone() {
		require.NoError(t, ctx.Err())
		if _, ok := mock.Peek(); !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		d, w := mock.AdvanceNext()
		w.MustWait(ctx)
		elapsed += d

		if !submitted && elapsed >= time.Second {
			require.NoError(t, e.SubmitLazy(late), "tasks are accepted during the quiet period")
			submitted = true
		}
	}

	assert.Equal(t, int64(1), late.Count())
	assert.GreaterOrEqual(t, elapsed, 3*time.Second, "the late task restarts the quiet period")
	assert.LessOrEqual(t, elapsed, 3*time.Second+DefaultQuietCheckInterval)
}

func TestShutdownTimeoutIsCeiling(t *testing.T) {
	mock := testutils.NewMockClock(t)
	clock := testutils.NewClockWrapper(mock)
	e := newTestExecutor(t, func(c *Config) { c.Clock = clock })
	startParked(t, e)

	ctx := testutils.Context(t)
	f := e.ShutdownGracefully(2*time.Second, 5*time.Second)

	var ran atomic.Int64
	busy := types.TaskFunc(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	var elapsed time.Duration
	for !f.IsDone() {
		require.NoError(t, ctx.Err())
		if _, ok := mock.Peek(); !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		// a steady trickle of work keeps the quiet period from ever elapsing
		_ = e.SubmitLazy(busy)
		d, w := mock.AdvanceNext()
		w.MustWait(ctx)
		elapsed += d
	}

	assert.Equal(t, 5*time.Second, elapsed, "the timeout bounds shutdown from when it began")
	assert.Greater(t, ran.Load(), int64(20))
	assert.NoError(t, e.AwaitTermination(ctx))
}

func TestShutdownTimeoutCountsFromRequest(t *testing.T) {
	mock := testutils.NewMockClock(t)
	clock := testutils.NewClockWrapper(mock)
	e := newTestExecutor(t, func(c *Config) {
		c.Clock = clock
		// no queue signals, so every park in this test is a mock timer
		c.Wakeup = func(bool) {}
	})

	ctx := testutils.Context(t)
	g := newGate()
	g.hold(t, e)

	f := e.ShutdownGracefully(2*time.Second, 5*time.Second)
	require.True(t, e.IsShuttingDown())

	// the loop is stuck in the gate task for most of the timeout
	mock.Advance(4 * time.Second).MustWait(ctx)
	close(g.release)

	var ran atomic.Int64
	busy := types.TaskFunc(func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})

	elapsed := 4 * time.Second
	for !f.IsDone() {
		require.NoError(t, ctx.Err())
		if _, ok := mock.Peek(); !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		_ = e.SubmitLazy(busy)
		d, w := mock.AdvanceNext()
		w.MustWait(ctx)
		elapsed += d
	}

	assert.Equal(t, 5*time.Second, elapsed, "time spent in a running task counts against the timeout")
	assert.Positive(t, ran.Load())
	assert.NoError(t, e.AwaitTermination(ctx))
}

func TestZeroQuietPeriod(t *testing.T) {
	e := newTestExecutor(t, nil)
	latch := testutils.NewLatch()
	require.NoError(t, e.Submit(latch))

	start := time.Now()
	shutdownAndWait(t, e)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(1), latch.Count())
}

func TestShutdownIsIdempotent(t *testing.T) {
	e := newTestExecutor(t, nil)
	g := newGate()
	g.hold(t, e)

	first := e.ShutdownGracefully(time.Hour, time.Hour)
	// a later request replaces the parameters
	second := e.ShutdownGracefully(0, 0)
	assert.Same(t, first, second)
	assert.Same(t, first, e.TerminationFuture())

	close(g.release)
	require.NoError(t, e.AwaitTermination(testutils.Context(t)), "the replaced parameters apply")
	require.NoError(t, e.AwaitTermination(testutils.Context(t)))

	assert.Same(t, first, e.ShutdownGracefully(0, 0))
	assert.Same(t, first, e.Shutdown())
	assert.True(t, first.IsSuccess())
}

func TestShutdownParameterNormalisation(t *testing.T) {
	e := newTestExecutor(t, nil)
	f := e.ShutdownGracefully(-time.Second, -time.Second)
	_, err := f.Wait(testutils.Context(t))
	assert.NoError(t, err)
}

func TestShutdownBeforeStart(t *testing.T) {
	e := newTestExecutor(t, nil)

	shutdownAndWait(t, e)
	assert.Equal(t, types.StateTerminated, e.State())

	props, ok := e.TryThreadProperties()
	require.True(t, ok, "shutdown starts the loop so that it can terminate")
	assert.Eventually(t, func() bool { return !props.IsAlive() }, testutils.DefaultTimeout, time.Millisecond)
}

func TestShutdownWaitsForRunningTask(t *testing.T) {
	e := newTestExecutor(t, nil)
	g := newGate()
	g.hold(t, e)

	f := e.ShutdownGracefully(0, 0)
	select {
	case <-f.Done():
		t.Fatal("termination cannot complete while a task is running")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, types.StateShuttingDown, e.State())

	close(g.release)
	_, err := f.Wait(testutils.Context(t))
	assert.NoError(t, err)
}

func TestAwaitTerminationContext(t *testing.T) {
	e := newTestExecutor(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, e.AwaitTermination(ctx), context.DeadlineExceeded)
}

func TestShutdownHooks(t *testing.T) {
	e := newTestExecutor(t, nil)

	var ran []string
	_, err := e.AddShutdownHook(func() {
		ran = append(ran, "first")
		_, _ = e.AddShutdownHook(func() { ran = append(ran, "nested") })
	})
	require.NoError(t, err)

	removed, err := e.AddShutdownHook(func() { ran = append(ran, "removed") })
	require.NoError(t, err)
	require.NoError(t, e.RemoveShutdownHook(removed))

	_, err = e.AddShutdownHook(func() { panic("hook failure") })
	require.NoError(t, err)

	_, err = e.AddShutdownHook(nil)
	assert.Error(t, err)

	shutdownAndWait(t, e)
	assert.Equal(t, []string{"first", "nested"}, ran)

	_, err = e.AddShutdownHook(func() {})
	assert.ErrorIs(t, err, types.ErrRejected)
}

func TestTerminationLoggedBeforeRelease(t *testing.T) {
	// a plain buffer, read only after termination resolves
	var out bytes.Buffer
	logger := logging.New(&logging.Options{Writer: &out, Level: logiface.LevelInformational})
	e := newTestExecutor(t, func(c *Config) { c.Logger = logger })

	latch := testutils.NewLatch()
	require.NoError(t, e.Submit(latch))
	shutdownAndWait(t, e)

	assert.Contains(t, out.String(), "event loop terminated")
}

func TestLoopBodyReturningEarly(t *testing.T) {
	var out syncBuffer
	logger := logging.New(&logging.Options{Writer: &out, Level: logiface.LevelDebug})
	e := newTestExecutor(t, func(c *Config) {
		c.Logger = logger
		c.LoopBody = func(l *Loop) {}
	})

	latch := testutils.NewLatch()
	require.NoError(t, e.Submit(latch))

	require.NoError(t, e.AwaitTermination(testutils.Context(t)))
	assert.Equal(t, int64(1), latch.Count(), "queued work still runs")
	assert.Contains(t, out.String(), "event loop body returned before confirming shutdown")
}

func TestLoopBodyPanic(t *testing.T) {
	var out syncBuffer
	logger := logging.New(&logging.Options{Writer: &out, Level: logiface.LevelDebug})
	e := newTestExecutor(t, func(c *Config) {
		c.Logger = logger
		c.LoopBody = func(l *Loop) { panic("broken loop") }
	})

	require.NoError(t, e.Submit(testutils.NewLatch()))
	require.NoError(t, e.AwaitTermination(testutils.Context(t)))
	assert.Contains(t, out.String(), "event loop body panicked")
}

func TestCustomLoopBodyAndWakeup(t *testing.T) {
	wake := make(chan struct{}, 1)
	var wakeups atomic.Int64
	e := newTestExecutor(t, func(c *Config) {
		c.Wakeup = func(inLoop bool) {
			wakeups.Add(1)
			if !inLoop {
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}
		c.LoopBody = func(l *Loop) {
			for !l.ConfirmShutdown() {
				if !l.HasTasks() {
					<-wake
				}
				l.RunAllTasks()
			}
		}
	})

	startParked(t, e)
	assert.Equal(t, int64(1), wakeups.Load())

	lazy := testutils.NewLatch()
	require.NoError(t, e.SubmitLazy(lazy))
	assert.False(t, lazy.Await(100*time.Millisecond))
	assert.Equal(t, int64(1), wakeups.Load(), "lazy submissions never call the wakeup hook")

	eager := testutils.NewLatch()
	require.NoError(t, e.Submit(eager))
	require.True(t, eager.Await(testutils.DefaultTimeout))
	assert.Equal(t, int64(1), lazy.Count())
	assert.Equal(t, int64(2), wakeups.Load())

	shutdownAndWait(t, e)
	assert.Equal(t, int64(3), wakeups.Load(), "shutdown wakes the loop")
}

func TestCustomLoopBodyQuietPeriod(t *testing.T) {
	wake := make(chan struct{}, 1)
	clock := testutils.NewClockWrapper(testutils.NewMockClock(t))
	e := newTestExecutor(t, func(c *Config) {
		c.Clock = clock
		c.Wakeup = func(inLoop bool) {
			if !inLoop {
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}
		c.LoopBody = func(l *Loop) {
			for !l.ConfirmShutdown() {
				if !l.HasTasks() {
					<-wake
				}
				l.RunAllTasks()
			}
		}
	})
	startParked(t, e)

	f := e.ShutdownGracefully(time.Second, 10*time.Second)
	elapsed := clock.AdvanceUntil(testutils.Context(t), t, f.IsDone)
	assert.Equal(t, time.Second, elapsed, "a loop that checks HasTasks never parks during the quiet period")
}
