package channel

import "time"

// RetryPolicy schedules reconnects: the first failure after an established channel
// (or after start) retries immediately, and every further consecutive failure waits Delay.
type RetryPolicy struct {
	Delay    time.Duration
	failures int
}

// NewRetryPolicy returns a policy with the given fixed delay.
func NewRetryPolicy(delay time.Duration) *RetryPolicy {
	return &RetryPolicy{Delay: delay}
}

// Next records a failure and returns the delay before the next attempt.
func (p *RetryPolicy) Next() time.Duration {
	p.failures++
	if p.failures == 1 {
		return 0
	}
	return p.Delay
}

// Reset is called when a channel is established.
func (p *RetryPolicy) Reset() {
	p.failures = 0
}

// Failures returns the consecutive failures since the last Reset.
func (p *RetryPolicy) Failures() int {
	return p.failures
}
