package executor

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/jzx17/goexecutor/pkg/types"
)

const (
	// DefaultQuietPeriod is the quiet period used by Shutdown
	DefaultQuietPeriod = 2 * time.Second

	// DefaultShutdownTimeout is the shutdown ceiling used by Shutdown
	DefaultShutdownTimeout = 15 * time.Second

	// DefaultQuietCheckInterval bounds how long the loop parks while waiting out the quiet period
	DefaultQuietCheckInterval = 100 * time.Millisecond
)

// WakeupFunc is called after a non-lazy submission and by shutdown requests. inLoop
// reports whether the caller is the loop goroutine itself.
type WakeupFunc func(inLoop bool)

// Config defines the configuration of a SingleThreadExecutor
type Config struct {
	// Name identifies the executor in errors, logs and stats
	Name string

	// ThreadFactory creates the loop goroutine, defaults to a DefaultThreadFactory named after the executor
	ThreadFactory ThreadFactory

	// LoopBody is the code the loop goroutine runs, defaults to DefaultLoopBody
	LoopBody LoopBody

	// Wakeup overrides the wakeup hook, defaults to signalling the queue from outside the loop
	Wakeup WakeupFunc

	// QueueCapacity bounds the number of pending tasks, 0 means unbounded
	QueueCapacity int

	// SaturationPolicy decides what happens to submissions when a bounded queue is full
	SaturationPolicy SaturationPolicy

	// SubmitTimeout bounds how long SaturationBlock may park a producer, 0 waits until shutdown
	SubmitTimeout time.Duration

	// RejectWhileShuttingDown rejects submissions as soon as graceful shutdown is requested
	RejectWhileShuttingDown bool

	// IdlePollInterval makes an idle loop wake up on its own cadence, 0 parks until signalled
	IdlePollInterval time.Duration

	// QuietCheckInterval bounds each park while the quiet period is being waited out
	QuietCheckInterval time.Duration

	// Clock is the time source, defaults to the real clock
	Clock types.Clock

	// Logger receives lifecycle and failure events, nil disables logging
	Logger *logiface.Logger[logiface.Event]

	// ErrorHandler receives task failures, defaults to logging them
	ErrorHandler types.ErrorHandler

	// IgnoredErrors lists task errors, matched with errors.Is, that are not reported
	IgnoredErrors []error
}

// DefaultConfig returns default executor configuration
func DefaultConfig() *Config {
	return &Config{
		Name:               "executor",
		QueueCapacity:      0,
		SaturationPolicy:   SaturationReject,
		QuietCheckInterval: DefaultQuietCheckInterval,
		Clock:              types.NewRealClock(),
	}
}

// validate fills in defaults and checks the configuration
func (c *Config) validate() error {
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue capacity must be non-negative, got %d", types.ErrInvalidConfig, c.QueueCapacity)
	}
	if c.SubmitTimeout < 0 {
		return fmt.Errorf("%w: submit timeout must be non-negative, got %v", types.ErrInvalidConfig, c.SubmitTimeout)
	}
	if c.IdlePollInterval < 0 {
		return fmt.Errorf("%w: idle poll interval must be non-negative, got %v", types.ErrInvalidConfig, c.IdlePollInterval)
	}
	if c.QuietCheckInterval < 0 {
		return fmt.Errorf("%w: quiet check interval must be non-negative, got %v", types.ErrInvalidConfig, c.QuietCheckInterval)
	}
	switch c.SaturationPolicy {
	case SaturationReject, SaturationBlock:
	default:
		return fmt.Errorf("%w: unknown saturation policy %d", types.ErrInvalidConfig, c.SaturationPolicy)
	}

	if c.Name == "" {
		c.Name = "executor"
	}
	if c.QuietCheckInterval == 0 {
		c.QuietCheckInterval = DefaultQuietCheckInterval
	}
	if c.Clock == nil {
		c.Clock = types.NewRealClock()
	}
	if c.ThreadFactory == nil {
		c.ThreadFactory = NewDefaultThreadFactory(c.Name)
	}
	if c.LoopBody == nil {
		c.LoopBody = DefaultLoopBody
	}
	return nil
}
