package repository

import (
	"time"

	"github.com/google/uuid"
)

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	newID func() string
	now   func() time.Time
	retry retryConfig
}

func defaultOptions() options {
	return options{
		newID: uuid.NewString,
		now:   time.Now,
		retry: defaultRetryConfig,
	}
}

// WithIDGenerator replaces the uuid generator used for new event IDs.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// WithClock sets the time source used for created_at stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRetry sets how often and how fast transient SQLite errors are retried.
func WithRetry(maxRetries int, baseDelay, maxDelay time.Duration) Option {
	return func(o *options) {
		if maxRetries >= 0 && baseDelay > 0 && maxDelay >= baseDelay {
			o.retry = retryConfig{maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}
		}
	}
}
