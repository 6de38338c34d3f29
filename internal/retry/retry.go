// Package retry provides common retry logic with exponential backoff for spond_sync.
package retry

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Config holds configuration for retry logic
type Config struct {
	MaxAttempts   uint64
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	JitterPercent uint64
}

// HTTPDefaults returns sensible defaults for idempotent HTTP requests
func HTTPDefaults() *Config {
	return &Config{
		MaxAttempts:   3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		JitterPercent: 10,
	}
}

// PostgreSQLDefaults returns sensible defaults for PostgreSQL operations
func PostgreSQLDefaults() *Config {
	return &Config{
		MaxAttempts:   5,
		BaseDelay:     100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		JitterPercent: 10,
	}
}

// EtcdDefaults returns sensible defaults for etcd operations
func EtcdDefaults() *Config {
	return &Config{
		MaxAttempts:   5,
		BaseDelay:     200 * time.Millisecond,
		MaxDelay:      15 * time.Second,
		JitterPercent: 15, // Higher jitter for etcd
	}
}

// WithOperation performs a general operation with retry logic, retrying every failure
func WithOperation(ctx context.Context, config *Config, operation func() error, operationName string) error {
	return WithClassifiedOperation(ctx, config, operation, operationName, func(error) bool { return true })
}

// WithClassifiedOperation performs an operation and retries only the failures
// accepted by retryable. Other failures are returned immediately.
func WithClassifiedOperation(ctx context.Context, config *Config, operation func() error, operationName string, retryable func(error) bool) error {
	backoff := config.CreateBackoff()
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := operation()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		logrus.WithError(err).
			WithField("operation", operationName).
			Warn("Operation failed, retrying...")
		return retry.RetryableError(err)
	})
}

// CreateBackoff creates a reusable backoff strategy from config
func (c *Config) CreateBackoff() retry.Backoff {
	backoff := retry.NewExponential(c.BaseDelay)
	backoff = retry.WithMaxRetries(c.MaxAttempts, backoff)
	backoff = retry.WithCappedDuration(c.MaxDelay, backoff)
	backoff = retry.WithJitterPercent(c.JitterPercent, backoff)
	return backoff
}
