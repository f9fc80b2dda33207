package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/jzx17/goexecutor/pkg/types"
)

type shutdownHook struct {
	id int64
	fn func()
}

// ShutdownGracefully requests shutdown. The executor keeps accepting and running tasks
// until no task has run for quietPeriod, or until timeout has passed since shutdown began,
// whichever comes first. The timeout is measured from the first request. Calls made while
// shutdown is in progress replace the parameters.
func (e *SingleThreadExecutor) ShutdownGracefully(quietPeriod, timeout time.Duration) *Future[struct{}] {
	if quietPeriod < 0 {
		quietPeriod = 0
	}
	if timeout < quietPeriod {
		timeout = quietPeriod
	}

	if e.state.AtLeast(types.StateShutdown) {
		return e.termination
	}

	e.quietPeriod.Store(int64(quietPeriod))
	e.shutdownTimeout.Store(int64(timeout))
	// stored before the state moves so the loop never sees ShuttingDown without a start time
	e.markShutdownStart()

	old := e.state.AdvanceTo(types.StateShuttingDown)
	if old >= types.StateShutdown {
		return e.termination
	}
	if old < types.StateShuttingDown {
		e.logger.Info().
			Dur("quiet_period", quietPeriod).
			Dur("timeout", timeout).
			Log("graceful shutdown requested")
	}

	if old == types.StateNotStarted {
		if err := e.doStartThread(); err != nil {
			return e.termination
		}
	}

	e.queue.OfferMarker()
	e.wakeup(e.InEventLoop())
	return e.termination
}

// Shutdown requests graceful shutdown with DefaultQuietPeriod and DefaultShutdownTimeout
func (e *SingleThreadExecutor) Shutdown() *Future[struct{}] {
	return e.ShutdownGracefully(DefaultQuietPeriod, DefaultShutdownTimeout)
}

// TerminationFuture completes when the loop goroutine has exited
func (e *SingleThreadExecutor) TerminationFuture() *Future[struct{}] {
	return e.termination
}

// AwaitTermination blocks until the executor terminates or ctx ends. It returns the
// termination failure, if any.
func (e *SingleThreadExecutor) AwaitTermination(ctx context.Context) error {
	_, err := e.termination.Wait(ctx)
	return err
}

// AddShutdownHook registers fn to run on the loop goroutine once shutdown is confirmed.
// From outside the loop the registration itself is submitted as a task.
func (e *SingleThreadExecutor) AddShutdownHook(fn func()) (int64, error) {
	if fn == nil {
		return 0, fmt.Errorf("shutdown hook cannot be nil")
	}
	hook := shutdownHook{id: e.hookSeq.Add(1), fn: fn}
	if e.InEventLoop() {
		e.hooks = append(e.hooks, hook)
		return hook.id, nil
	}

	err := e.Submit(types.TaskFunc(func(ctx context.Context) error {
		e.hooks = append(e.hooks, hook)
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return hook.id, nil
}

// RemoveShutdownHook unregisters a hook returned by AddShutdownHook
func (e *SingleThreadExecutor) RemoveShutdownHook(id int64) error {
	if e.InEventLoop() {
		e.removeHook(id)
		return nil
	}
	return e.Submit(types.TaskFunc(func(ctx context.Context) error {
		e.removeHook(id)
		return nil
	}))
}

func (e *SingleThreadExecutor) removeHook(id int64) {
	for i, hook := range e.hooks {
		if hook.id == id {
			e.hooks = append(e.hooks[:i], e.hooks[i+1:]...)
			return
		}
	}
}

// runShutdownHooks runs hooks until none are left, hooks may register more
func (e *SingleThreadExecutor) runShutdownHooks() bool {
	ran := false
	for len(e.hooks) > 0 {
		hooks := e.hooks
		e.hooks = nil
		for _, hook := range hooks {
			e.runHook(hook)
			ran = true
		}
	}
	if ran {
		e.lastExecution = e.clock.Now()
	}
	return ran
}

func (e *SingleThreadExecutor) runHook(hook shutdownHook) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warning().
				Int64("hook_id", hook.id).
				Any("panic", r).
				Log("shutdown hook panicked")
		}
	}()
	hook.fn()
}

func (e *SingleThreadExecutor) runAllTasks() bool {
	ran := false
	for {
		task, ok := e.queue.TryTake()
		if !ok {
			return ran
		}
		e.runTask(task)
		ran = true
	}
}

// confirmShutdown runs on the loop goroutine. It reports true once the loop may exit.
func (e *SingleThreadExecutor) confirmShutdown() bool {
	if !e.state.AtLeast(types.StateShuttingDown) {
		return false
	}
	if !e.InEventLoop() {
		e.logger.Err().Log("ConfirmShutdown called outside the event loop")
		return false
	}

	e.confirming = true
	start := e.markShutdownStart()

	quiet := time.Duration(e.quietPeriod.Load())
	timeout := time.Duration(e.shutdownTimeout.Load())

	if e.runAllTasks() || e.runShutdownHooks() {
		if e.state.AtLeast(types.StateShutdown) || quiet == 0 {
			return true
		}
		// keep the loop from parking, more work may arrive during the quiet period
		e.keepAwake()
		return false
	}

	now := e.clock.Now()
	elapsed := now.Sub(start)
	if e.state.AtLeast(types.StateShutdown) || elapsed >= timeout {
		return true
	}

	if idle := now.Sub(e.lastExecution); idle < quiet {
		wait := min(e.config.QuietCheckInterval, quiet-idle, timeout-elapsed)
		e.queue.awaitSignal(wait)
		e.keepAwake()
		return false
	}
	return true
}

// markShutdownStart records when shutdown began, keeping the first recorded time
func (e *SingleThreadExecutor) markShutdownStart() time.Time {
	if nanos := e.shutdownStartNanos.Load(); nanos != 0 {
		return time.Unix(0, nanos)
	}
	e.shutdownStartNanos.CompareAndSwap(0, e.clock.Now().UnixNano())
	return time.Unix(0, e.shutdownStartNanos.Load())
}

// keepAwake stops the loop body's next take from parking
func (e *SingleThreadExecutor) keepAwake() {
	e.queue.OfferMarker()
}

// run is the body of the loop goroutine
func (e *SingleThreadExecutor) run() {
	finished := false
	defer func() {
		if !finished {
			e.abort()
		}
	}()

	e.lastExecution = e.clock.Now()
	e.logger.Debug().Log("event loop started")

	completed := e.runLoopBody()
	e.finishShutdown(completed)
	finished = true
}

// runLoopBody reports whether the loop body returned normally
func (e *SingleThreadExecutor) runLoopBody() (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Err().
				Any("panic", r).
				Str("stack_trace", string(debug.Stack())).
				Log("event loop body panicked")
			ok = false
		}
	}()

	e.config.LoopBody(&Loop{e: e})
	return true
}

func (e *SingleThreadExecutor) finishShutdown(bodyReturned bool) {
	e.markShutdownStart()
	e.state.AdvanceTo(types.StateShuttingDown)
	if bodyReturned && !e.confirming {
		e.logger.Err().Log("event loop body returned before confirming shutdown")
	}

	for !e.confirmShutdown() {
	}

	e.state.AdvanceTo(types.StateShutdown)
	e.shutdownCancel()
	// drain whatever slipped in before submissions were closed
	e.confirmShutdown()

	e.terminate(nil)
}

// abort resolves termination when the loop goroutine exits abnormally, for example through
// runtime.Goexit in a task
func (e *SingleThreadExecutor) abort() {
	e.logger.Crit().Log("event loop goroutine exited unexpectedly")
	e.terminate(types.ErrLoopAborted)
}

func (e *SingleThreadExecutor) terminate(cause error) {
	e.state.AdvanceTo(types.StateTerminated)
	e.shutdownCancel()

	if pending := e.queue.Drain(); len(pending) > 0 {
		e.logger.Warning().
			Int("pending", len(pending)).
			Log("event loop terminated with non-empty task queue")
		e.discard(pending, types.NewRejectedError(e.name, types.StateTerminated, cause))
	}

	// logged before resolving so nothing is written once waiters have been released
	e.logger.Info().Log("event loop terminated")
	if cause != nil {
		e.termination.TryFail(cause)
	} else {
		e.termination.TrySucceed(struct{}{})
	}
}
