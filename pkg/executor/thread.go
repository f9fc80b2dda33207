package executor

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/jzx17/goexecutor/pkg/types"
)

// Thread priorities. Go does not schedule goroutines by priority; the value is carried as
// metadata so that callers porting thread-factory configuration keep it observable.
const (
	MinPriority  = 1
	NormPriority = 5
	MaxPriority  = 10
)

// ThreadFactory creates the goroutine that backs an executor. It may refuse, for example
// after it has been shut down; the executor then rejects all work.
type ThreadFactory interface {
	NewThread(body func()) (*Thread, error)
}

// Thread is a dedicated goroutine created by a ThreadFactory. Its identity is fixed once
// the goroutine begins running.
type Thread struct {
	name     string
	priority int
	daemon   bool
	lockOS   bool
	body     func()
	onExit   func()

	goid atomic.Uint64
	tid  atomic.Int64

	startOnce sync.Once
	started   chan struct{}
	done      chan struct{}
}

// NewThread creates an unstarted thread. Factories use it to build the threads they hand out.
func NewThread(name string, priority int, daemon, lockOSThread bool, body func()) *Thread {
	return &Thread{
		name:     name,
		priority: priority,
		daemon:   daemon,
		lockOS:   lockOSThread,
		body:     body,
		started:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the goroutine. Calls after the first are no-ops.
func (t *Thread) Start() {
	t.startOnce.Do(func() {
		go t.run()
	})
}

func (t *Thread) run() {
	defer func() {
		close(t.done)
		if t.onExit != nil {
			t.onExit()
		}
	}()

	if t.lockOS {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	t.goid.Store(curGoroutineID())
	t.tid.Store(int64(currentOSThreadID()))
	close(t.started)

	if t.body != nil {
		t.body()
	}
}

// Name returns the thread name
func (t *Thread) Name() string {
	return t.name
}

// Priority returns the thread priority
func (t *Thread) Priority() int {
	return t.priority
}

// IsDaemon reports whether the factory waits for this thread on Wait
func (t *Thread) IsDaemon() bool {
	return t.daemon
}

// GoroutineID returns the goroutine id, 0 before the thread has started
func (t *Thread) GoroutineID() uint64 {
	return t.goid.Load()
}

// OSThreadID returns the OS thread id recorded when the thread started (Linux only, 0
// elsewhere). It stays accurate only for threads locked to their OS thread.
func (t *Thread) OSThreadID() int {
	return int(t.tid.Load())
}

// IsAlive reports whether the goroutine has started and not yet exited
func (t *Thread) IsAlive() bool {
	select {
	case <-t.done:
		return false
	default:
	}
	select {
	case <-t.started:
		return true
	default:
		return false
	}
}

// Started is closed once the goroutine identity is recorded
func (t *Thread) Started() <-chan struct{} {
	return t.started
}

// Done is closed when the goroutine exits
func (t *Thread) Done() <-chan struct{} {
	return t.done
}

func (t *Thread) isCurrent() bool {
	id := t.goid.Load()
	return id != 0 && id == curGoroutineID()
}

// DefaultThreadFactory names threads "<prefix>-<n>" and tracks non-daemon threads so that
// Wait can join them
type DefaultThreadFactory struct {
	prefix   string
	priority int
	daemon   bool
	lockOS   bool

	seq      atomic.Int64
	shutdown atomic.Bool

	mu      sync.Mutex
	running int
	// closed when running drops to zero, replaced when it rises again
	idle chan struct{}
}

// ThreadFactoryOption configures a DefaultThreadFactory
type ThreadFactoryOption func(*DefaultThreadFactory)

// WithPriority sets the priority of created threads, clamped to [MinPriority, MaxPriority]
func WithPriority(priority int) ThreadFactoryOption {
	return func(f *DefaultThreadFactory) {
		switch {
		case priority < MinPriority:
			priority = MinPriority
		case priority > MaxPriority:
			priority = MaxPriority
		}
		f.priority = priority
	}
}

// WithDaemon marks created threads as daemons
func WithDaemon(daemon bool) ThreadFactoryOption {
	return func(f *DefaultThreadFactory) {
		f.daemon = daemon
	}
}

// WithLockOSThread pins each created goroutine to its own OS thread
func WithLockOSThread(lock bool) ThreadFactoryOption {
	return func(f *DefaultThreadFactory) {
		f.lockOS = lock
	}
}

// NewDefaultThreadFactory creates a thread factory
func NewDefaultThreadFactory(prefix string, opts ...ThreadFactoryOption) *DefaultThreadFactory {
	if prefix == "" {
		prefix = "executor"
	}
	f := &DefaultThreadFactory{
		prefix:   prefix,
		priority: NormPriority,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewThread creates an unstarted thread, or fails with ErrThreadFactoryShutdown
func (f *DefaultThreadFactory) NewThread(body func()) (*Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.shutdown.Load() {
		return nil, types.ErrThreadFactoryShutdown
	}

	name := fmt.Sprintf("%s-%d", f.prefix, f.seq.Add(1))
	t := NewThread(name, f.priority, f.daemon, f.lockOS, body)
	if !f.daemon {
		if f.running == 0 {
			f.idle = make(chan struct{})
		}
		f.running++
		t.onExit = f.threadExited
	}
	return t, nil
}

func (f *DefaultThreadFactory) threadExited() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running--
	if f.running == 0 {
		close(f.idle)
	}
}

// Shutdown makes the factory refuse further threads. Running threads are unaffected.
func (f *DefaultThreadFactory) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown.Store(true)
}

// IsShutdown reports whether the factory refuses new threads
func (f *DefaultThreadFactory) IsShutdown() bool {
	return f.shutdown.Load()
}

// Wait blocks until every non-daemon thread created by the factory has exited or ctx ends
func (f *DefaultThreadFactory) Wait(ctx context.Context) error {
	f.mu.Lock()
	if f.running == 0 {
		f.mu.Unlock()
		return nil
	}
	idle := f.idle
	f.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
