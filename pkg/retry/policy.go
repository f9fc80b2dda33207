package retry

import (
	"errors"
	"time"

	"github.com/jzx17/goexecutor/pkg/types"
)

// RetryCondition reports whether a failed submission may be retried
type RetryCondition func(error) bool

// Policy bounds resubmission
type Policy struct {
	maxAttempts int
	backoff     BackoffStrategy
	condition   RetryCondition
}

// PolicyOption configures a Policy
type PolicyOption func(*Policy)

// WithRetryCondition replaces the default condition
func WithRetryCondition(condition RetryCondition) PolicyOption {
	return func(p *Policy) {
		if condition != nil {
			p.condition = condition
		}
	}
}

// NewPolicy creates a policy allowing maxAttempts submissions in total. A nil backoff
// retries immediately.
func NewPolicy(maxAttempts int, backoff BackoffStrategy, opts ...PolicyOption) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoff == nil {
		backoff = NewFixedBackoff(0)
	}
	p := &Policy{
		maxAttempts: maxAttempts,
		backoff:     backoff,
		condition:   IsCapacityRejection,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ShouldRetry reports whether another attempt follows the given failed one
func (p *Policy) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.maxAttempts {
		return false
	}
	return p.condition(err)
}

// NextDelay returns the wait before the next attempt
func (p *Policy) NextDelay(attempt int) time.Duration {
	return p.backoff.NextDelay(attempt)
}

// MaxAttempts returns the total number of attempts allowed
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// IsCapacityRejection reports whether err is a rejection by a full queue of an executor
// that is still accepting work
func IsCapacityRejection(err error) bool {
	var rejected *types.RejectedError
	if !errors.As(err, &rejected) {
		return false
	}
	if rejected.State >= types.StateShutdown {
		return false
	}
	return errors.Is(err, types.ErrCapacityExceeded)
}
