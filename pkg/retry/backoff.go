package retry

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy computes the delay before a resubmission
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt, counting from 1
	NextDelay(attempt int) time.Duration
}

// FixedBackoff waits the same delay before every attempt
type FixedBackoff struct {
	delay  time.Duration
	jitter JitterFunc
}

// NewFixedBackoff creates a fixed backoff strategy
func NewFixedBackoff(delay time.Duration, opts ...BackoffOption) *FixedBackoff {
	o := applyOptions(opts)
	return &FixedBackoff{
		delay:  delay,
		jitter: o.jitter,
	}
}

// NextDelay implements BackoffStrategy
func (b *FixedBackoff) NextDelay(attempt int) time.Duration {
	return applyJitter(b.jitter, b.delay)
}

// ExponentialBackoff multiplies the delay after every attempt, up to a maximum
type ExponentialBackoff struct {
	initialDelay time.Duration
	multiplier   float64
	maxDelay     time.Duration
	jitter       JitterFunc
}

// NewExponentialBackoff creates an exponential backoff strategy. The multiplier defaults
// to 2 and the maximum delay to one second.
func NewExponentialBackoff(initialDelay time.Duration, opts ...BackoffOption) *ExponentialBackoff {
	o := applyOptions(opts)
	b := &ExponentialBackoff{
		initialDelay: initialDelay,
		multiplier:   2.0,
		maxDelay:     time.Second,
		jitter:       o.jitter,
	}
	if o.multiplier != nil && *o.multiplier >= 1 {
		b.multiplier = *o.multiplier
	}
	if o.maxDelay != nil {
		b.maxDelay = *o.maxDelay
	}
	return b
}

// NextDelay implements BackoffStrategy
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	delay := float64(b.initialDelay) * math.Pow(b.multiplier, float64(attempt-1))
	if delay > float64(b.maxDelay) || math.IsInf(delay, 1) {
		delay = float64(b.maxDelay)
	}
	return applyJitter(b.jitter, time.Duration(delay))
}

// JitterFunc randomises a delay
type JitterFunc func(time.Duration) time.Duration

// FullJitter picks a delay in [0, delay)
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(delay)))
}

// EqualJitter picks a delay in [delay/2, delay)
func EqualJitter(delay time.Duration) time.Duration {
	half := delay / 2
	if half <= 0 {
		return delay
	}
	return half + time.Duration(rand.Int63n(int64(half)))
}

func applyJitter(jitter JitterFunc, delay time.Duration) time.Duration {
	if jitter == nil {
		return delay
	}
	return jitter(delay)
}

type backoffOptions struct {
	multiplier *float64
	maxDelay   *time.Duration
	jitter     JitterFunc
}

// BackoffOption configures a backoff strategy
type BackoffOption func(*backoffOptions)

func applyOptions(opts []BackoffOption) *backoffOptions {
	o := &backoffOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithMultiplier sets the exponential growth factor
func WithMultiplier(multiplier float64) BackoffOption {
	return func(o *backoffOptions) {
		o.multiplier = &multiplier
	}
}

// WithMaxDelay caps the exponential delay
func WithMaxDelay(maxDelay time.Duration) BackoffOption {
	return func(o *backoffOptions) {
		o.maxDelay = &maxDelay
	}
}

// WithJitter randomises every delay
func WithJitter(jitter JitterFunc) BackoffOption {
	return func(o *backoffOptions) {
		o.jitter = jitter
	}
}
