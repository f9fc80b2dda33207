package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/jzx17/goexecutor/pkg/types"
)

// NewMockClock creates a quartz mock clock bound to t
func NewMockClock(t testing.TB) *quartz.Mock {
	return quartz.NewMock(t)
}

// ClockWrapper adapts a quartz mock to types.Clock, so executors and submitters can run
// on mock time
type ClockWrapper struct {
	*quartz.Mock
}

// NewClockWrapper wraps mock
func NewClockWrapper(mock *quartz.Mock) *ClockWrapper {
	return &ClockWrapper{Mock: mock}
}

func (c *ClockWrapper) After(d time.Duration) <-chan time.Time {
	return c.Mock.NewTimer(d).C
}

func (c *ClockWrapper) Now() time.Time {
	return c.Mock.Now()
}

func (c *ClockWrapper) Since(t time.Time) time.Duration {
	return c.Mock.Since(t)
}

// NewTimer creates a mock timer
func (c *ClockWrapper) NewTimer(d time.Duration) types.Timer {
	return &TimerWrapper{timer: c.Mock.NewTimer(d)}
}

// AdvanceUntil repeatedly fires the next pending timer until done reports true,
// returning the total amount of mock time that elapsed. Timers are created by other
// goroutines, so it spins while none is pending.
func (c *ClockWrapper) AdvanceUntil(ctx context.Context, t testing.TB, done func() bool) time.Duration {
	t.Helper()
	var elapsed time.Duration
	for !done() {
		if ctx.Err() != nil {
			t.Fatalf("mock clock: gave up after advancing %v: %v", elapsed, ctx.Err())
		}
		if _, ok := c.Mock.Peek(); !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		d, w := c.Mock.AdvanceNext()
		w.MustWait(ctx)
		elapsed += d
	}
	return elapsed
}

// TimerWrapper adapts a quartz timer to types.Timer
type TimerWrapper struct {
	timer *quartz.Timer
}

func (t *TimerWrapper) C() <-chan time.Time {
	return t.timer.C
}

func (t *TimerWrapper) Stop() bool {
	return t.timer.Stop()
}

func (t *TimerWrapper) Reset(d time.Duration) bool {
	return t.timer.Reset(d)
}
