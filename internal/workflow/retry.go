package workflow

import (
	"context"
	"time"
)

// RetryStrategy implements exponential backoff for transient step
// failures: base_delay * 2^retry_count, capped at MaxDelay.
type RetryStrategy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// NewRetryStrategy returns the default strategy: 3 retries, 1s base,
// 30s cap.
func NewRetryStrategy() *RetryStrategy {
	return &RetryStrategy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
	}
}

// Backoff returns the delay before the given retry attempt. retryCount
// is the number of retries already performed.
func (s *RetryStrategy) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	// Guard the shift: beyond 2^20 the cap applies regardless.
	if retryCount > 20 {
		return s.MaxDelay
	}
	backoff := s.BaseDelay * time.Duration(1<<uint(retryCount))
	if backoff > s.MaxDelay || backoff <= 0 {
		backoff = s.MaxDelay
	}
	return backoff
}

// Exhausted reports whether no retries remain.
func (s *RetryStrategy) Exhausted(retryCount int) bool {
	return retryCount >= s.MaxRetries
}

// Wait sleeps for the backoff of the given attempt, honoring context
// cancellation.
func (s *RetryStrategy) Wait(ctx context.Context, retryCount int) error {
	t := time.NewTimer(s.Backoff(retryCount))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
