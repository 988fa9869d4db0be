package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/metrics"
)

// MemoryStore keeps calendars in process memory. Events of each member are
// kept ordered by date and start.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[model.MemberID][]model.CalendarEvent
	count  int
	closed bool
	opts   options
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		events: make(map[model.MemberID][]model.CalendarEvent),
		opts:   o,
	}
}

// GetEvents implements EventReader.
func (s *MemoryStore) GetEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error) {
	defer observe("get_events", time.Now())
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	list := s.events[member]
	lo := sort.Search(len(list), func(i int) bool { return !list[i].Date.Before(from) })
	out := make([]model.CalendarEvent, 0)
	for _, ev := range list[lo:] {
		if ev.Date.After(to) {
			break
		}
		out = append(out, ev)
	}
	return out, nil
}

// CreateEvent implements EventWriter.
func (s *MemoryStore) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	defer observe("create_event", time.Now())
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateNew(ev); err != nil {
		metrics.RecordStoreError("create_event")
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}

	ev.ID = s.opts.newID()
	list := s.events[ev.Owner]
	i := sort.Search(len(list), func(i int) bool { return eventAfter(list[i], ev) })
	list = append(list, model.CalendarEvent{})
	copy(list[i+1:], list[i:])
	list[i] = ev
	s.events[ev.Owner] = list
	s.count++
	return ev.ID, nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count, nil
}

// Close implements Store. Further calls fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// eventAfter orders events by date, then start.
func eventAfter(a, b model.CalendarEvent) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c > 0
	}
	return a.Start > b.Start
}

func observe(op string, start time.Time) {
	metrics.RecordStoreOperation(op, float64(time.Since(start).Microseconds())/1000)
}
