// Package testutils provides testing utilities and helper functions for executor tests
package testutils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// DefaultTimeout bounds how long a test waits on the executor
const DefaultTimeout = 5 * time.Second

// Context returns a context bounded by DefaultTimeout, cancelled on test cleanup
func Context(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	t.Cleanup(cancel)
	return ctx
}

// Latch is a one-shot task that records when it ran
type Latch struct {
	done chan struct{}
	once sync.Once
	ran  atomic.Int64
}

// NewLatch creates an unreleased latch
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Execute releases the latch
func (l *Latch) Execute(ctx context.Context) error {
	l.ran.Add(1)
	l.once.Do(func() { close(l.done) })
	return nil
}

// ID returns an empty ID
func (l *Latch) ID() string {
	return ""
}

// Await waits up to d for the latch to be released
func (l *Latch) Await(d time.Duration) bool {
	select {
	case <-l.done:
		return true
	case <-time.After(d):
		return false
	}
}

// Count returns how many times the latch ran
func (l *Latch) Count() int64 {
	return l.ran.Load()
}

// LazyLatch is a Latch that asks to be submitted lazily
type LazyLatch struct {
	*Latch
}

// NewLazyLatch creates an unreleased lazy latch
func NewLazyLatch() *LazyLatch {
	return &LazyLatch{Latch: NewLatch()}
}

// Lazy marks the task as lazy
func (l *LazyLatch) Lazy() bool {
	return true
}

// AssertEventually waits for condition to be true
func AssertEventually(t *testing.T, condition func() bool, msgAndArgs ...interface{}) bool {
	t.Helper()
	return assert.Eventually(t, condition, DefaultTimeout, 5*time.Millisecond, msgAndArgs...)
}
