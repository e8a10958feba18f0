package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// StatusError reports a non-2xx API response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("api error (%d)", e.StatusCode)
}

// RetryPolicy expresses a bounded exponential-backoff retry: attempt n
// sleeps BackoffBase * 2^n before retrying. Only errors the Retryable
// predicate accepts are retried; everything else propagates immediately.
type RetryPolicy struct {
	MaxRetries  int
	BackoffBase time.Duration
	Retryable   func(error) bool
	OnRetry     func(attempt int, delay time.Duration, err error)
}

// retryableStatus covers transient API responses worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DefaultRetryable treats transport-level failures and 429/5xx responses as
// transient. Other HTTP statuses (4xx) are permanent.
func DefaultRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}
	// Non-status errors from the HTTP client are connection-level.
	return true
}

// Do runs fn under the policy, sleeping between attempts unless the context
// is cancelled first. The last error is returned when retries are exhausted.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(lastErr) || attempt == p.MaxRetries {
			return lastErr
		}

		delay := p.Backoff(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, lastErr)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// Backoff returns the delay before retrying after the given zero-based
// attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return time.Duration(float64(p.BackoffBase) * math.Pow(2, float64(attempt)))
}
