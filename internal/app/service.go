// Package service wires the event store, availability engine and meeting
// materializer into the operations the HTTP API and CLI depend on.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/okian/rendezvous/internal/adapters/ics"
	"github.com/okian/rendezvous/internal/adapters/mq/queue"
	"github.com/okian/rendezvous/internal/adapters/mq/worker"
	"github.com/okian/rendezvous/internal/adapters/repository"
	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/dedupe"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/ranking"
	"github.com/okian/rendezvous/internal/domain/types"
	"github.com/okian/rendezvous/pkg/logger"
	"github.com/okian/rendezvous/pkg/metrics"
)

const shutdownTimeout = 30 * time.Second

// Service implements the scheduling operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	store        repository.Store
	engine       *availability.Engine
	materializer *Materializer
	deduper      dedupe.Deduper
	writeQueue   *queue.InMemoryQueue
	pool         *worker.Pool

	// Configuration
	fanout        int
	queueSize     int
	dedupeSize    int
	workStartHour int
	workEndHour   int
	minDuration   int
	rangeDays     int
	readTimeout   time.Duration
	now           func() time.Time

	// State
	started bool

	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		fanout:        8,
		queueSize:     1024,
		dedupeSize:    10_000,
		workStartHour: 9,
		workEndHour:   21,
		minDuration:   60,
		rangeDays:     7,
		readTimeout:   5 * time.Second,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the components and starts the write workers. A service
// without a store gets an in-memory one.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	s.logger.Info(ctx, "starting scheduling service...")

	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "using in-memory event store")
	}
	s.engine = availability.New(s.store,
		availability.WithFanout(s.fanout),
		availability.WithClock(s.now),
		availability.WithDefaultWindow(s.workStartHour, s.workEndHour),
		availability.WithDefaultMinDuration(s.minDuration),
		availability.WithDefaultRangeDays(s.rangeDays),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.writeQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.fanout, s.writeQueue, s.store)
	s.pool.Start(context.WithoutCancel(ctx))
	s.materializer = NewMaterializer(s.writeQueue, nil)

	s.started = true
	s.logger.Info(ctx, "scheduling service started",
		logger.Int("fanout", s.fanout),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop drains pending writes, then closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping scheduling service...")
	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "write pool shutdown failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing event store failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "scheduling service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Availability computes the group's free slots. The whole computation is
// bounded by the configured read timeout.
func (s *Service) Availability(ctx context.Context, q availability.Query) ([]model.AvailabilitySlot, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.readTimeout)
		defer cancel()
	}
	return s.engine.Compute(ctx, q)
}

// Suggest computes availability and picks meeting times of duration minutes.
// A query without a minimum duration uses duration as its minimum.
func (s *Service) Suggest(ctx context.Context, q availability.Query, duration, limit int) (ranking.Suggestions, error) {
	if q.MinDuration == 0 && duration > 0 {
		q.MinDuration = duration
	}
	slots, err := s.Availability(ctx, q)
	if err != nil {
		return ranking.Suggestions{}, err
	}
	return ranking.Suggest(slots, duration, limit), nil
}

// Materialize writes req to every member's calendar. A non-empty
// idempotencyKey that was already used returns ErrDuplicate. The key is
// released again when nothing was written, so the caller may retry.
func (s *Service) Materialize(ctx context.Context, req model.MeetingRequest, idempotencyKey string) (model.MaterializationResult, error) {
	if err := s.ready(); err != nil {
		return model.MaterializationResult{}, err
	}

	if idempotencyKey != "" && s.deduper.SeenAndRecord(ctx, idempotencyKey) {
		metrics.RecordDuplicateRequest()
		s.logger.Debug(ctx, "duplicate meeting confirmation", logger.String("key", idempotencyKey))
		return model.MaterializationResult{}, fmt.Errorf("%w: idempotency key %q", ErrDuplicate, idempotencyKey)
	}

	res, err := s.materializer.Materialize(ctx, req)
	if idempotencyKey != "" && (err != nil || res.SucceededCount == 0) {
		s.deduper.Unrecord(ctx, idempotencyKey)
	}
	return res, err
}

// CreateEvent stores one event on a member's calendar.
func (s *Service) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	if err := s.ready(); err != nil {
		return "", err
	}
	return s.store.CreateEvent(ctx, ev)
}

// ListEvents returns a member's events dated within [from, to].
func (s *Service) ListEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.GetEvents(ctx, member, from, to)
}

// ImportICS adds every usable VEVENT in r to member's calendar. It stops at
// the first store error; events stored before it are kept.
func (s *Service) ImportICS(ctx context.Context, member model.MemberID, r io.Reader) (types.ImportResponse, error) {
	if err := s.ready(); err != nil {
		return types.ImportResponse{}, err
	}
	parsed, err := ics.Parse(r, member)
	if err != nil {
		return types.ImportResponse{}, err
	}

	rep := types.ImportResponse{Skipped: parsed.Skipped}
	for _, ev := range parsed.Events {
		if _, err := s.store.CreateEvent(ctx, ev); err != nil {
			return rep, fmt.Errorf("import for member %s: %w", member, err)
		}
		rep.Imported++
	}
	s.logger.Info(ctx, "calendar imported",
		logger.String("member", string(member)),
		logger.Int("imported", rep.Imported),
		logger.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

// ExportICS writes member's events dated within [from, to] as a VCALENDAR.
func (s *Service) ExportICS(ctx context.Context, member model.MemberID, from, to model.Date, w io.Writer) error {
	events, err := s.ListEvents(ctx, member, from, to)
	if err != nil {
		return err
	}
	return ics.Write(w, events, s.now())
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"fanout":     s.fanout,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
		"goroutines": runtime.NumGoroutine(),
	}

	if s.started {
		queueLen := s.writeQueue.Len()
		stats["queueLength"] = queueLen
		stats["workers"] = s.pool.Size()
		stats["idempotencyKeys"] = s.deduper.Size()
		if n, err := s.store.Count(context.Background()); err == nil {
			stats["totalEvents"] = n
		}
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}
	return stats
}
