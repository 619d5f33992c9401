package queue

import "time"

// RetryPolicy bounds how often a failing operation is retried.
type RetryPolicy struct {
	// BaseDelay is the wait after the first failure. Each further failure
	// doubles it up to MaxDelay.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// MaxAttempts is how many times a rejected operation is tried before
	// it is dropped. With 1 a rejection drops the operation at once. Higher
	// values back off like transient failures, and the rejected operation
	// holds back everything queued behind it until it is dropped.
	// Transient failures never count toward dropping.
	MaxAttempts int
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:   5 * time.Second,
		MaxDelay:    15 * time.Minute,
		MaxAttempts: 1,
	}
}

// Backoff returns the delay before attempt number attempts+1.
func (p RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts <= 0 || p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < attempts; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}
