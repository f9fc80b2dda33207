package executor

import (
	"sync/atomic"

	"github.com/jzx17/goexecutor/pkg/types"
)

// lifecycle is the executor's lock-free state machine. Values only move forward.
type lifecycle struct {
	v atomic.Int32
}

func newLifecycle() *lifecycle {
	l := &lifecycle{}
	l.v.Store(int32(types.StateNotStarted))
	return l
}

// Load returns the current state atomically
func (l *lifecycle) Load() types.LifecycleState {
	return types.LifecycleState(l.v.Load())
}

// TryTransition attempts to atomically move from one state to another
func (l *lifecycle) TryTransition(from, to types.LifecycleState) bool {
	return l.v.CompareAndSwap(int32(from), int32(to))
}

// AdvanceTo moves the state to at least target and returns the state observed before
// the call. A state already at or beyond target is left untouched.
func (l *lifecycle) AdvanceTo(target types.LifecycleState) types.LifecycleState {
	for {
		old := l.v.Load()
		if old >= int32(target) {
			return types.LifecycleState(old)
		}
		if l.v.CompareAndSwap(old, int32(target)) {
			return types.LifecycleState(old)
		}
	}
}

// AtLeast reports whether the state has reached s
func (l *lifecycle) AtLeast(s types.LifecycleState) bool {
	return l.v.Load() >= int32(s)
}
