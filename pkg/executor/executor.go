package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
	errs "github.com/jzx17/goexecutor/internal/errors"
	"github.com/jzx17/goexecutor/pkg/types"
)

// SingleThreadExecutor runs every submitted task on one dedicated goroutine. Any goroutine
// may submit; the loop goroutine is created lazily by the first submission.
type SingleThreadExecutor struct {
	config *Config
	name   string

	queue    *taskQueue
	state    *lifecycle
	thread   atomic.Pointer[Thread]
	wakeup   WakeupFunc
	clock    types.Clock
	logger   *logiface.Logger[logiface.Event]
	handlers *errs.HandlerRegistry
	ignore   *errs.IgnoreHandler

	taskCtx        context.Context
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	termination    *Future[struct{}]

	quietPeriod        atomic.Int64
	shutdownTimeout    atomic.Int64
	shutdownStartNanos atomic.Int64

	// owned by the loop goroutine
	confirming    bool
	lastExecution time.Time
	hooks         []shutdownHook

	hookSeq       atomic.Int64
	lastTaskNanos atomic.Int64
	submitted     atomic.Int64
	lazySubmitted atomic.Int64
	completed     atomic.Int64
	failed        atomic.Int64
	rejected      atomic.Int64
}

var _ types.EventExecutor = (*SingleThreadExecutor)(nil)

type executorKey struct{}

// NewSingleThreadExecutor creates an executor. A nil config uses DefaultConfig.
func NewSingleThreadExecutor(config *Config) (*SingleThreadExecutor, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		c := *config
		config = &c
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	logger := config.Logger.Clone().Str("executor", config.Name).Logger()

	handlers, err := errs.NewHandlerRegistry(errs.NewLogHandler(config.Logger))
	if err != nil {
		return nil, err
	}
	if config.ErrorHandler != nil {
		if err := handlers.SetDefaultHandler(errs.NewFuncHandler(config.ErrorHandler)); err != nil {
			return nil, err
		}
	}
	ignore := errs.NewIgnoreHandler()
	if err := handlers.RegisterHandler(ignore); err != nil {
		return nil, err
	}

	e := &SingleThreadExecutor{
		config:      config,
		name:        config.Name,
		queue:       newTaskQueue(config.QueueCapacity, config.SaturationPolicy, config.IdlePollInterval, config.Clock),
		state:       newLifecycle(),
		clock:       config.Clock,
		logger:      logger,
		handlers:    handlers,
		ignore:      ignore,
		termination: NewFuture[struct{}](),
	}
	e.shutdownCtx, e.shutdownCancel = context.WithCancel(context.Background())
	e.taskCtx = context.WithValue(types.WithClock(context.Background(), e.clock), executorKey{}, e)

	if err := e.IgnoreErrors(config.IgnoredErrors...); err != nil {
		return nil, err
	}

	e.wakeup = config.Wakeup
	if e.wakeup == nil {
		e.wakeup = e.defaultWakeup
	}
	return e, nil
}

// FromContext returns the executor running the current task, or nil
func FromContext(ctx context.Context) *SingleThreadExecutor {
	e, _ := ctx.Value(executorKey{}).(*SingleThreadExecutor)
	return e
}

// Name returns the executor name
func (e *SingleThreadExecutor) Name() string {
	return e.name
}

func (e *SingleThreadExecutor) defaultWakeup(inLoop bool) {
	if !inLoop {
		e.queue.Signal()
	}
}

// Submit queues a task and wakes the loop goroutine, unless the task implements
// types.LazyTask and reports itself lazy
func (e *SingleThreadExecutor) Submit(task types.Task) error {
	return e.SubmitWithTimeout(task, e.config.SubmitTimeout)
}

// SubmitLazy queues a task without waking the loop goroutine. The task runs no later than
// the next wakeup-triggering submission, the loop's idle poll, or shutdown.
func (e *SingleThreadExecutor) SubmitLazy(task types.Task) error {
	return e.execute(task, true, e.config.SubmitTimeout)
}

// SubmitWithTimeout is Submit with an explicit bound on how long a saturated queue may
// block the caller
func (e *SingleThreadExecutor) SubmitWithTimeout(task types.Task, timeout time.Duration) error {
	if task == nil {
		return types.ErrNilTask
	}
	return e.execute(task, isLazy(task), timeout)
}

func (e *SingleThreadExecutor) execute(task types.Task, lazy bool, timeout time.Duration) error {
	if task == nil {
		return types.ErrNilTask
	}

	inLoop := e.InEventLoop()
	item, err := e.addTask(task, lazy, inLoop, timeout)
	if err != nil {
		e.rejected.Add(1)
		return err
	}

	if !inLoop {
		if err := e.startThread(); err != nil {
			e.queue.Remove(item)
			e.rejected.Add(1)
			return err
		}
		// shutdown may have completed between the enqueue and now
		if e.state.AtLeast(types.StateShutdown) && e.queue.Remove(item) {
			e.rejected.Add(1)
			return e.rejection(nil)
		}
	}

	e.submitted.Add(1)
	if lazy {
		e.lazySubmitted.Add(1)
		return nil
	}
	e.wakeup(inLoop)
	return nil
}

func (e *SingleThreadExecutor) addTask(task types.Task, lazy, inLoop bool, timeout time.Duration) (*queued, error) {
	if e.rejectsSubmissions() {
		return nil, e.rejection(nil)
	}

	ctx := e.shutdownCtx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// the loop goroutine is the only consumer, it must never wait for a slot
	item, err := e.queue.Offer(ctx, task, lazy, !inLoop)
	if err != nil {
		return nil, e.rejection(err)
	}
	return item, nil
}

func (e *SingleThreadExecutor) rejectsSubmissions() bool {
	if e.state.AtLeast(types.StateShutdown) {
		return true
	}
	return e.config.RejectWhileShuttingDown && e.state.AtLeast(types.StateShuttingDown)
}

func (e *SingleThreadExecutor) rejection(cause error) error {
	return types.NewRejectedError(e.name, e.state.Load(), cause)
}

// startThread creates the loop goroutine the first time it is called
func (e *SingleThreadExecutor) startThread() error {
	if e.state.Load() != types.StateNotStarted {
		return nil
	}
	if !e.state.TryTransition(types.StateNotStarted, types.StateStarted) {
		return nil
	}
	return e.doStartThread()
}

func (e *SingleThreadExecutor) doStartThread() error {
	thread, err := e.config.ThreadFactory.NewThread(e.run)
	if err == nil && thread == nil {
		err = errors.New("thread factory returned no thread")
	}
	if err != nil {
		e.failStart(err)
		return types.NewRejectedError(e.name, types.StateTerminated, err)
	}

	e.thread.Store(thread)
	thread.Start()
	return nil
}

// failStart terminates an executor whose loop goroutine could not be created
func (e *SingleThreadExecutor) failStart(cause error) {
	e.state.AdvanceTo(types.StateTerminated)
	e.shutdownCancel()

	rejection := types.NewRejectedError(e.name, types.StateTerminated, cause)
	e.discard(e.queue.Drain(), rejection)
	e.termination.TryFail(rejection)

	e.logger.Err().
		Err(cause).
		Log("failed to create event loop goroutine")
}

// discard fails the completion handles of tasks that will never run
func (e *SingleThreadExecutor) discard(tasks []types.Task, err error) {
	for _, task := range tasks {
		if d, ok := task.(discardable); ok {
			d.discard(err)
		}
	}
}

// InEventLoop reports whether the caller runs on the loop goroutine
func (e *SingleThreadExecutor) InEventLoop() bool {
	t := e.thread.Load()
	return t != nil && t.isCurrent()
}

// State returns the lifecycle state
func (e *SingleThreadExecutor) State() types.LifecycleState {
	return e.state.Load()
}

// IsShuttingDown reports whether graceful shutdown was requested
func (e *SingleThreadExecutor) IsShuttingDown() bool {
	return e.state.AtLeast(types.StateShuttingDown)
}

// IsShutdown reports whether new submissions are rejected
func (e *SingleThreadExecutor) IsShutdown() bool {
	return e.state.AtLeast(types.StateShutdown)
}

// IsTerminated reports whether the loop goroutine has exited
func (e *SingleThreadExecutor) IsTerminated() bool {
	return e.state.Load() == types.StateTerminated
}

// PendingTasks returns the number of queued tasks. Tasks can be added or taken
// concurrently, so the value is a snapshot.
func (e *SingleThreadExecutor) PendingTasks() int {
	return e.queue.Len()
}

// Stats returns executor statistics
func (e *SingleThreadExecutor) Stats() types.ExecutorStats {
	stats := types.ExecutorStats{
		Name:          e.name,
		State:         e.state.Load(),
		Submitted:     e.submitted.Load(),
		LazySubmitted: e.lazySubmitted.Load(),
		Completed:     e.completed.Load(),
		Failed:        e.failed.Load(),
		Rejected:      e.rejected.Load(),
		Pending:       e.queue.Len(),
		QueueCapacity: e.queue.Capacity(),
	}
	if nanos := e.lastTaskNanos.Load(); nanos != 0 {
		stats.LastTaskTime = time.Unix(0, nanos)
	}
	return stats
}

// runTask executes one task on the loop goroutine, isolating its failure
func (e *SingleThreadExecutor) runTask(task types.Task) {
	if err := e.safeExecute(task); err != nil {
		e.failed.Add(1)
		e.reportFailure(err)
	} else {
		e.completed.Add(1)
	}

	now := e.clock.Now()
	e.lastExecution = now
	e.lastTaskNanos.Store(now.UnixNano())
}

func (e *SingleThreadExecutor) safeExecute(task types.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(task.ID(), r).WithContext("executor", e.name)
		}
	}()

	if err := task.Execute(e.taskCtx); err != nil {
		return types.NewTaskError(task.ID(), err).WithContext("executor", e.name)
	}
	return nil
}

func (e *SingleThreadExecutor) reportFailure(err error) {
	errCtx := errs.NewErrorContext(err, e.name, e.clock.Now())
	if unhandled := e.handlers.Dispatch(e.taskCtx, errCtx); unhandled != nil {
		e.logger.Warning().
			Str("task_id", errCtx.TaskID).
			Err(unhandled).
			Log("unhandled task failure")
	}
}

// panicError converts a recovered panic into a task error carrying the stack
func panicError(taskID string, r interface{}) *types.TaskError {
	var cause error
	switch v := r.(type) {
	case error:
		cause = v
	case string:
		cause = fmt.Errorf("panic: %s", v)
	default:
		cause = fmt.Errorf("panic: %v", v)
	}

	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)

	taskErr := types.NewTaskError(taskID, cause).WithContext("stack_trace", string(buf[:n]))
	taskErr.Panicked = true
	return taskErr
}
