package availability

import (
	"time"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithFanout bounds how many member reads and day merges run at once.
func WithFanout(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fanout = n
		}
	}
}

// WithClock sets the time source used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDefaultWindow sets the work window used when a query has none.
func WithDefaultWindow(startHour, endHour int) Option {
	return func(e *Engine) {
		if startHour >= 0 && endHour <= 24 && startHour < endHour {
			e.window = Window{Start: model.HourMinute(startHour, 0), End: model.HourMinute(endHour, 0)}
		}
	}
}

// WithDefaultMinDuration sets the minimum slot length used when a query has none.
func WithDefaultMinDuration(minutes int) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.minDuration = minutes
		}
	}
}

// WithDefaultRangeDays sets how many days after today an open query covers.
func WithDefaultRangeDays(days int) Option {
	return func(e *Engine) {
		if days >= 0 {
			e.rangeDays = days
		}
	}
}
