package variantlib

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"
)

// Default retry configuration values
const (
	DefMaxAttempts   = 3
	DefBaseDelay     = 500 * time.Millisecond
	DefMaxDelay      = 30 * time.Second
	DefJitterFactor  = 0.5
	DefBackoffFactor = 2.0
)

// RetryConfig holds the bounded-retry policy for failed transfers.
type RetryConfig struct {
	MaxAttempts   int           // Total attempts before a job fails permanently
	BaseDelay     time.Duration // Initial delay before the first retry
	MaxDelay      time.Duration // Maximum delay between retries
	JitterFactor  float64       // Random jitter factor (0-1)
	BackoffFactor float64       // Exponential backoff multiplier
}

// DefaultRetryConfig returns a RetryConfig with sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   DefMaxAttempts,
		BaseDelay:     DefBaseDelay,
		MaxDelay:      DefMaxDelay,
		JitterFactor:  DefJitterFactor,
		BackoffFactor: DefBackoffFactor,
	}
}

// ErrorCategory classifies transfer errors for retry decisions.
type ErrorCategory int

const (
	ErrCategoryFatal     ErrorCategory = iota // Non-retryable (canceled, not found)
	ErrCategoryRetryable                      // Transient I/O (EOF, timeout, reset)
)

// ClassifyError determines how a transfer error should be handled.
// Cancellation and catalog errors are fatal; dropped connections and
// timeouts are transient. Unknown errors are fatal to avoid retry loops.
func ClassifyError(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrJobCanceled) || errors.Is(err, ErrContentNotFound) {
		return ErrCategoryFatal
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrCategoryRetryable
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrCategoryRetryable
	}
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"timeout",
		"temporary failure",
		"i/o error",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return ErrCategoryRetryable
		}
	}
	return ErrCategoryFatal
}

// CalculateBackoff computes the delay before the given retry attempt.
func (c *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(c.BaseDelay) * math.Pow(c.BackoffFactor, float64(attempt-1))
	if c.JitterFactor > 0 {
		jitter := c.JitterFactor * (2*rand.Float64() - 1) // random in [-1, 1]
		delay *= (1 + jitter)
	}
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if delay < 0 {
		delay = float64(c.BaseDelay)
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether another attempt should be made after
// attempts tries failed with err.
func (c *RetryConfig) ShouldRetry(attempts int, err error) bool {
	if ClassifyError(err) == ErrCategoryFatal {
		return false
	}
	return c.MaxAttempts <= 0 || attempts < c.MaxAttempts
}

// WaitForRetry blocks until the backoff delay for the given attempt has
// elapsed or ctx is canceled.
func (c *RetryConfig) WaitForRetry(ctx context.Context, attempts int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.CalculateBackoff(attempts)):
		return nil
	}
}
