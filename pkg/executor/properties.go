package executor

import (
	"context"
	"fmt"
)

// ThreadProperties describes the loop goroutine. Liveness and the stack trace are read
// when asked for; the other values are fixed for the life of the executor.
type ThreadProperties struct {
	thread *Thread
}

// ID returns the goroutine id
func (p *ThreadProperties) ID() uint64 {
	return p.thread.GoroutineID()
}

// OSThreadID returns the OS thread id, see Thread.OSThreadID
func (p *ThreadProperties) OSThreadID() int {
	return p.thread.OSThreadID()
}

// Name returns the thread name
func (p *ThreadProperties) Name() string {
	return p.thread.Name()
}

// Priority returns the thread priority
func (p *ThreadProperties) Priority() int {
	return p.thread.Priority()
}

// IsDaemon reports whether the thread is a daemon
func (p *ThreadProperties) IsDaemon() bool {
	return p.thread.IsDaemon()
}

// IsAlive reports whether the loop goroutine is running
func (p *ThreadProperties) IsAlive() bool {
	return p.thread.IsAlive()
}

// StackTrace captures the loop goroutine's current frames, innermost first. It is empty
// once the goroutine has exited.
func (p *ThreadProperties) StackTrace() []string {
	if !p.thread.IsAlive() {
		return nil
	}
	return goroutineStack(p.thread.GoroutineID())
}

// TryThreadProperties returns the loop goroutine's properties, or false if it has not
// started yet
func (e *SingleThreadExecutor) TryThreadProperties() (*ThreadProperties, bool) {
	t := e.thread.Load()
	if t == nil || t.GoroutineID() == 0 {
		return nil, false
	}
	return &ThreadProperties{thread: t}, true
}

// ThreadProperties returns the loop goroutine's properties, starting it with a no-op task
// if needed and waiting until it runs
func (e *SingleThreadExecutor) ThreadProperties(ctx context.Context) (*ThreadProperties, error) {
	if p, ok := e.TryThreadProperties(); ok {
		return p, nil
	}

	f, err := Submit(e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := f.Wait(ctx); err != nil {
		return nil, err
	}

	p, ok := e.TryThreadProperties()
	if !ok {
		return nil, fmt.Errorf("executor %s has no event loop goroutine", e.name)
	}
	return p, nil
}
