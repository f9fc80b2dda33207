package types

import (
	"context"
	"time"
)

// Clock is the time source of an executor. Quiet periods, shutdown ceilings, idle polls and
// invocation timeouts are all measured with it, so tests can drive them with a mock.
type Clock interface {
	// Now returns the current time
	Now() time.Time
	// Since returns the time elapsed since t
	Since(t time.Time) time.Duration
	// After returns a channel that receives once d has elapsed
	After(d time.Duration) <-chan time.Time
	// NewTimer creates a one-shot timer
	NewTimer(d time.Duration) Timer
}

// Timer is a stoppable one-shot timer
type Timer interface {
	C() <-chan time.Time
	Stop() bool
	Reset(d time.Duration) bool
}

// RealClock reads the system clock
type RealClock struct{}

// NewRealClock creates a new real clock
func NewRealClock() Clock {
	return RealClock{}
}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (RealClock) NewTimer(d time.Duration) Timer {
	return stdTimer{timer: time.NewTimer(d)}
}

type stdTimer struct {
	timer *time.Timer
}

func (t stdTimer) C() <-chan time.Time { return t.timer.C }

func (t stdTimer) Stop() bool { return t.timer.Stop() }

func (t stdTimer) Reset(d time.Duration) bool { return t.timer.Reset(d) }

// Sleep waits d on clock, returning early with ctx.Err() if ctx ends first
func Sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type clockKey struct{}

// WithClock attaches clock to ctx. Executors attach theirs to the context tasks receive.
func WithClock(ctx context.Context, clock Clock) context.Context {
	return context.WithValue(ctx, clockKey{}, clock)
}

// ClockFromContext returns the clock attached to ctx, or the real clock
func ClockFromContext(ctx context.Context) Clock {
	if clock, ok := ctx.Value(clockKey{}).(Clock); ok {
		return clock
	}
	return RealClock{}
}
