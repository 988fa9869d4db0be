package service

import (
	"time"

	"github.com/okian/rendezvous/internal/adapters/repository"
	"github.com/okian/rendezvous/internal/config"
	"github.com/okian/rendezvous/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig copies every engine and fan-out setting from cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg == nil {
			return
		}
		WithWorkHours(cfg.WorkStartHour, cfg.WorkEndHour)(s)
		WithMinDuration(cfg.MinDurationMinutes)(s)
		WithRangeDays(cfg.RangeDays)(s)
		WithFanout(cfg.FanoutLimit)(s)
		WithQueueSize(cfg.WriteQueueSize)(s)
		WithDedupeSize(cfg.DedupeSize)(s)
		WithReadTimeout(cfg.ReadTimeout())(s)
	}
}

// WithStore sets the event store. The service closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithFanout sets how many member reads and writes run at once.
func WithFanout(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fanout = n
		}
	}
}

// WithQueueSize sets the capacity of the member write queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many idempotency keys are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithWorkHours sets the default daily search window.
func WithWorkHours(startHour, endHour int) Option {
	return func(s *Service) {
		if startHour >= 0 && endHour <= 24 && startHour < endHour {
			s.workStartHour, s.workEndHour = startHour, endHour
		}
	}
}

// WithMinDuration sets the default minimum slot length in minutes.
func WithMinDuration(minutes int) Option {
	return func(s *Service) {
		if minutes > 0 {
			s.minDuration = minutes
		}
	}
}

// WithRangeDays sets how many days after today an open query covers.
func WithRangeDays(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.rangeDays = days
		}
	}
}

// WithReadTimeout bounds each availability computation; zero disables it.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.readTimeout = d
		}
	}
}

// WithClock sets the time source for "today" and export stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
