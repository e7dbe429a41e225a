package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures retries for Linear API calls.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first. Default: 3
	MaxRetries int
	// InitialBackoff is the wait before the first retry. Default: 1 second
	InitialBackoff time.Duration
	// MaxBackoff caps any single wait. Default: 30 seconds
	MaxBackoff time.Duration
	// BackoffMultiplier grows the wait between attempts. Default: 2
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ApplyDefaults sets default values for unset fields.
func (c *RetryConfig) ApplyDefaults() {
	defaults := DefaultRetryConfig()
	if c.MaxRetries == 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = defaults.InitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = defaults.MaxBackoff
	}
	if c.BackoffMultiplier == 0 {
		c.BackoffMultiplier = defaults.BackoffMultiplier
	}
}

// statusError is a non-200 answer from Linear.
type statusError struct {
	code       int
	msg        string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("linear API error (%d): %s", e.code, e.msg)
}

// transportError wraps a failure to reach Linear at all.
type transportError struct{ err error }

func (e *transportError) Error() string { return fmt.Sprintf("linear request failed: %v", e.err) }
func (e *transportError) Unwrap() error { return e.err }

// isRetryable reports whether err is worth another attempt. GraphQL errors
// in a 200 response are never retried.
func isRetryable(err error) bool {
	var te *transportError
	if errors.As(err, &te) {
		return !errors.Is(te.err, context.Canceled) && !errors.Is(te.err, context.DeadlineExceeded)
	}
	var se *statusError
	if !errors.As(err, &se) {
		return false
	}
	switch se.code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// withRetry runs operation with exponential backoff until it succeeds, fails
// permanently or runs out of attempts.
func (c *Client) withRetry(ctx context.Context, op string, operation func() error) error {
	cfg := c.retry
	if cfg == nil {
		cfg = DefaultRetryConfig()
	}
	cfg.ApplyDefaults()

	var lastErr error
	backoff := cfg.InitialBackoff
	start := time.Now()

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				c.logger.Info(ctx, "tracker request recovered after retries",
					zap.String("op", op),
					zap.Int("attempts", attempt),
					zap.Duration("total_time", time.Since(start)))
			}
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		wait := backoff
		var se *statusError
		if errors.As(err, &se) && se.retryAfter > 0 {
			wait = min(se.retryAfter, cfg.MaxBackoff)
		}
		retriesTotal.WithLabelValues(op).Inc()
		c.logger.Debug(ctx, "retrying tracker request",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxRetries+1),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation canceled: %w", ctx.Err())
		case <-time.After(wait):
			backoff = min(time.Duration(float64(backoff)*cfg.BackoffMultiplier), cfg.MaxBackoff)
		}
	}

	return fmt.Errorf("linear operation failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
