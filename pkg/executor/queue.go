package executor

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jzx17/goexecutor/pkg/types"
	"golang.org/x/sync/semaphore"
)

// SaturationPolicy decides what a bounded queue does with a submission when it is full
type SaturationPolicy int

const (
	// SaturationReject fails the submission with ErrCapacityExceeded
	SaturationReject SaturationPolicy = iota
	// SaturationBlock parks the producer until a slot frees up
	SaturationBlock
)

// String returns the string representation of SaturationPolicy
func (p SaturationPolicy) String() string {
	switch p {
	case SaturationReject:
		return "reject"
	case SaturationBlock:
		return "block"
	default:
		return "unknown"
	}
}

// ParseSaturationPolicy parses the String form of a policy
func ParseSaturationPolicy(s string) (SaturationPolicy, error) {
	switch s {
	case "reject", "":
		return SaturationReject, nil
	case "block":
		return SaturationBlock, nil
	default:
		return SaturationReject, fmt.Errorf("unknown saturation policy %q", s)
	}
}

// queued is a task held by the queue, returned to the producer so the submission can be
// withdrawn if the executor shuts down underneath it
type queued struct {
	task    types.Task
	lazy    bool
	marker  bool
	elem    *list.Element
	removed bool
	dropped bool
}

// taskQueue is a multi-producer, single-consumer FIFO of pending tasks. The loop goroutine
// is the only consumer; signal is the wakeup channel it parks on.
type taskQueue struct {
	mu      sync.Mutex
	items   *list.List
	markers int

	signal chan struct{}

	capacity int
	policy   SaturationPolicy
	slots    *semaphore.Weighted

	idlePoll time.Duration
	clock    types.Clock
}

func newTaskQueue(capacity int, policy SaturationPolicy, idlePoll time.Duration, clock types.Clock) *taskQueue {
	q := &taskQueue{
		items:    list.New(),
		signal:   make(chan struct{}, 1),
		capacity: capacity,
		policy:   policy,
		idlePoll: idlePoll,
		clock:    clock,
	}
	if capacity > 0 {
		q.slots = semaphore.NewWeighted(int64(capacity))
	}
	return q
}

// Offer appends a task. With a bounded queue and the block policy the caller waits for a
// slot until ctx ends, unless mayBlock is false, in which case a full queue is an error.
func (q *taskQueue) Offer(ctx context.Context, task types.Task, lazy, mayBlock bool) (*queued, error) {
	if err := q.acquire(ctx, mayBlock); err != nil {
		return nil, err
	}

	item := &queued{task: task, lazy: lazy}
	q.mu.Lock()
	item.elem = q.items.PushBack(item)
	q.mu.Unlock()
	return item, nil
}

func (q *taskQueue) acquire(ctx context.Context, mayBlock bool) error {
	if q.slots == nil {
		return nil
	}
	if q.slots.TryAcquire(1) {
		return nil
	}
	if q.policy != SaturationBlock || !mayBlock {
		return types.ErrCapacityExceeded
	}
	if err := q.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %v", types.ErrCapacityExceeded, err)
	}
	return nil
}

func (q *taskQueue) release() {
	if q.slots != nil {
		q.slots.Release(1)
	}
}

// OfferMarker appends a wakeup marker. Markers hold no capacity slot and are never
// returned by TryTake, but they make HasPending report true so that a loop body that
// checks for work before parking goes around once more.
func (q *taskQueue) OfferMarker() {
	q.mu.Lock()
	item := &queued{marker: true}
	item.elem = q.items.PushBack(item)
	q.markers++
	q.mu.Unlock()
}

// TryTake removes the head task without blocking, skipping wakeup markers
func (q *taskQueue) TryTake() (types.Task, bool) {
	task, ok, _ := q.poll()
	return task, ok
}

// poll removes markers up to the first task and returns it. sawMarker reports whether any
// marker was consumed.
func (q *taskQueue) poll() (task types.Task, ok, sawMarker bool) {
	q.mu.Lock()
	for {
		front := q.items.Front()
		if front == nil {
			q.mu.Unlock()
			return nil, false, sawMarker
		}
		item := q.items.Remove(front).(*queued)
		item.removed = true
		if item.marker {
			q.markers--
			sawMarker = true
			continue
		}
		q.mu.Unlock()

		q.release()
		// the signal announced work that is being handed out now
		q.clearSignal()
		return item.task, true, sawMarker
	}
}

// BlockingTake returns the head task. When the queue is empty it parks once until a
// wakeup signal, the idle poll interval or the end of ctx; a queued wakeup marker makes it
// return immediately instead. It may return no task; callers re-check shutdown and call again.
func (q *taskQueue) BlockingTake(ctx context.Context) (types.Task, bool) {
	task, ok, sawMarker := q.poll()
	if ok {
		return task, true
	}
	if sawMarker {
		return nil, false
	}

	var poll <-chan time.Time
	if q.idlePoll > 0 {
		timer := q.clock.NewTimer(q.idlePoll)
		defer timer.Stop()
		poll = timer.C()
	}

	select {
	case <-q.signal:
	case <-poll:
	case <-ctx.Done():
		return nil, false
	}
	return q.TryTake()
}

// awaitSignal parks until a wakeup signal arrives or d elapses
func (q *taskQueue) awaitSignal(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := q.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-q.signal:
	case <-timer.C():
	}
}

func (q *taskQueue) clearSignal() {
	select {
	case <-q.signal:
	default:
	}
}

// Signal wakes a consumer parked in BlockingTake. Signals coalesce.
func (q *taskQueue) Signal() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Remove withdraws a task that has not been taken yet. It reports whether the task is
// certain not to run, which includes a task already dropped by Drain.
func (q *taskQueue) Remove(item *queued) bool {
	if item == nil {
		return false
	}
	q.mu.Lock()
	if item.removed {
		dropped := item.dropped
		q.mu.Unlock()
		return dropped
	}
	q.items.Remove(item.elem)
	item.removed = true
	q.mu.Unlock()

	q.release()
	return true
}

// Drain removes and returns every pending task
func (q *taskQueue) Drain() []types.Task {
	q.mu.Lock()
	tasks := make([]types.Task, 0, q.items.Len())
	for e := q.items.Front(); e != nil; e = q.items.Front() {
		item := q.items.Remove(e).(*queued)
		item.removed = true
		item.dropped = true
		if !item.marker {
			tasks = append(tasks, item.task)
		}
	}
	q.markers = 0
	q.mu.Unlock()

	for range tasks {
		q.release()
	}
	return tasks
}

// HasPending reports whether anything is queued, wakeup markers included
func (q *taskQueue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len() > 0
}

// Len returns the number of queued tasks
func (q *taskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len() - q.markers
}

// Capacity returns the configured capacity, 0 when unbounded
func (q *taskQueue) Capacity() int {
	return q.capacity
}
