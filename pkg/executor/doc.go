/*
Package executor provides a single-goroutine event-loop executor.

# Overview

A SingleThreadExecutor binds all of its work to exactly one dedicated goroutine, created
lazily by the first submission. Any number of producer goroutines may submit tasks; the
loop goroutine runs them one at a time in submission order, so task code never needs to
lock against other tasks of the same executor.

# Core Components

## Task Queue

Multi-producer, single-consumer FIFO with an optional capacity. A full bounded queue
either rejects submissions or parks the producer, see SaturationPolicy.

## Lifecycle

NotStarted, Started, ShuttingDown, Shutdown and Terminated, in that order. The state only
moves forward and is safe to read from any goroutine.

## Loop Body

The loop goroutine runs a LoopBody. DefaultLoopBody parks on the queue; custom bodies can
wait on their own event source, together with a custom WakeupFunc. Every loop body must
keep calling Loop.ConfirmShutdown and return only once it reports true.

## Graceful Shutdown

ShutdownGracefully takes a quiet period and a timeout. Tasks submitted during the quiet
period are still accepted and run; the loop exits once no task has run for the quiet
period, or once the timeout has elapsed since shutdown was first requested, whichever comes
first. Time the loop spends inside a long task counts against the timeout.
Tasks accepted before submissions close always run.

# Lazy Submission

SubmitLazy, or a task implementing types.LazyTask, skips the wakeup. The task runs on the
next wakeup, the next idle poll (Config.IdlePollInterval) or during shutdown.

# Task Failures

A failing or panicking task never stops the loop. Its error goes to the default handler,
which logs it unless Config.ErrorHandler or SetDefaultErrorHandler replaces it.
HandleErrors routes failures matching a target error to a named handler, and IgnoreErrors
drops them.

# Blocking Calls

InvokeAll and InvokeAny wait for tasks on the executor they submit to. Called from the
loop goroutine they would wait on themselves, so they fail with types.ErrBlockingFromLoop.

# Example

	exec, err := executor.NewSingleThreadExecutor(nil)
	if err != nil {
		return err
	}
	f, err := executor.Submit(exec, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil {
		return err
	}
	v, err := f.Wait(ctx)
	...
	exec.ShutdownGracefully(0, time.Second)
	return exec.AwaitTermination(ctx)
*/
package executor
