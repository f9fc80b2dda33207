package retry

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/jzx17/goexecutor/pkg/types"
)

// Stats counts submissions made through a Submitter
type Stats struct {
	// Accepted is the number of tasks the executor eventually took
	Accepted int64
	// Retried is the number of resubmissions
	Retried int64
	// GaveUp is the number of tasks returned to the caller with an error
	GaveUp int64
}

// SubmitterOption configures a Submitter
type SubmitterOption func(*Submitter)

// WithClock sets the clock used to wait between attempts
func WithClock(clock types.Clock) SubmitterOption {
	return func(s *Submitter) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger that records retries
func WithLogger(logger *logiface.Logger[logiface.Event]) SubmitterOption {
	return func(s *Submitter) {
		s.logger = logger
	}
}

// WithLazy submits through SubmitLazy instead of Submit
func WithLazy() SubmitterOption {
	return func(s *Submitter) {
		s.lazy = true
	}
}

// Submitter resubmits tasks refused by a saturated executor
type Submitter struct {
	executor types.EventExecutor
	policy   *Policy
	clock    types.Clock
	logger   *logiface.Logger[logiface.Event]
	lazy     bool

	accepted atomic.Int64
	retried  atomic.Int64
	gaveUp   atomic.Int64
}

// NewSubmitter creates a Submitter. A nil policy makes a single attempt.
func NewSubmitter(executor types.EventExecutor, policy *Policy, opts ...SubmitterOption) *Submitter {
	if policy == nil {
		policy = NewPolicy(1, nil)
	}
	s := &Submitter{
		executor: executor,
		policy:   policy,
		clock:    types.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit hands task to the executor, waiting and retrying while the policy allows.
// It returns the last submission error, or ctx.Err() if ctx ends while waiting.
func (s *Submitter) Submit(ctx context.Context, task types.Task) error {
	if task == nil {
		return types.ErrNilTask
	}

	for attempt := 1; ; attempt++ {
		err := s.submit(task)
		if err == nil {
			s.accepted.Add(1)
			return nil
		}

		if !s.policy.ShouldRetry(err, attempt) {
			s.gaveUp.Add(1)
			return err
		}

		delay := s.policy.NextDelay(attempt)
		s.logger.Debug().
			Int("attempt", attempt).
			Dur("delay", delay).
			Err(err).
			Log("resubmitting rejected task")

		if err := types.Sleep(ctx, s.clock, delay); err != nil {
			s.gaveUp.Add(1)
			return err
		}
		s.retried.Add(1)
	}
}

func (s *Submitter) submit(task types.Task) error {
	if s.lazy {
		return s.executor.SubmitLazy(task)
	}
	return s.executor.Submit(task)
}

// Stats returns a snapshot of the submission counters
func (s *Submitter) Stats() Stats {
	return Stats{
		Accepted: s.accepted.Load(),
		Retried:  s.retried.Load(),
		GaveUp:   s.gaveUp.Load(),
	}
}

// IsFinal reports whether err is a rejection no retry can overcome
func IsFinal(err error) bool {
	var rejected *types.RejectedError
	return errors.As(err, &rejected) && rejected.State >= types.StateShutdown
}
