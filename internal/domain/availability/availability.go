// Package availability computes the group's free slots over a date range by
// reading every member's calendar and merging it day by day.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/occupancy"
	"github.com/okian/rendezvous/internal/domain/slots"
	"github.com/okian/rendezvous/pkg/logger"
	"github.com/okian/rendezvous/pkg/metrics"
)

// MaxRangeDays caps how many days one query may span.
const MaxRangeDays = 366

// EventReader returns a member's events dated within [from, to].
type EventReader interface {
	GetEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error)
}

// Window is the daily half-open search interval [Start, End).
type Window struct {
	Start model.Minute
	End   model.Minute
}

// Valid reports whether w is a non-empty interval inside one day.
func (w Window) Valid() bool {
	return w.Start >= 0 && w.End <= model.MinutesPerDay && w.Start < w.End
}

// Query describes one availability computation. Zero values take the
// engine defaults: a nil Window, MinDuration 0, and zero From/To dates.
type Query struct {
	Members     []model.MemberID
	From        model.Date
	To          model.Date
	Window      *Window
	MinDuration int
}

// Engine computes availability slots from member calendars.
type Engine struct {
	reader EventReader
	logger logger.Logger
	now    func() time.Time

	fanout      int
	window      Window
	minDuration int
	rangeDays   int
}

// New creates an Engine reading calendars through reader.
func New(reader EventReader, opts ...Option) *Engine {
	e := &Engine{
		reader:      reader,
		now:         time.Now,
		fanout:      8,
		window:      Window{Start: model.HourMinute(9, 0), End: model.HourMinute(21, 0)},
		minDuration: 60,
		rangeDays:   7,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logger.Named("availability")
	}
	return e
}

// resolved is a Query with defaults applied.
type resolved struct {
	members     []model.MemberID
	from, to    model.Date
	window      Window
	minDuration int
}

func (e *Engine) resolve(q Query) (resolved, error) {
	r := resolved{
		members:     model.UniqueMembers(q.Members),
		from:        q.From,
		to:          q.To,
		window:      e.window,
		minDuration: q.MinDuration,
	}
	if q.Window != nil {
		r.window = *q.Window
	}
	if !r.window.Valid() {
		return r, fmt.Errorf("%w: %s-%s", ErrInvalidWindow, r.window.Start, r.window.End)
	}
	switch {
	case r.minDuration < 0:
		return r, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, r.minDuration)
	case r.minDuration == 0:
		r.minDuration = e.minDuration
	}
	if r.from.IsZero() {
		r.from = model.DateOf(e.now())
	}
	if r.to.IsZero() {
		r.to = r.from.AddDays(e.rangeDays)
	}
	if days := r.from.DaysUntil(r.to); days >= MaxRangeDays {
		return r, fmt.Errorf("%w: %s..%s spans more than %d days", ErrInvalidDateRange, r.from, r.to, MaxRangeDays)
	}
	return r, nil
}

// Compute returns the Available and Negotiable slots for the query, ordered
// by date then start time. An empty roster or a range whose end is before its
// start yields no slots. Any member read failure fails the whole call with
// ErrReadFailed.
func (e *Engine) Compute(ctx context.Context, q Query) ([]model.AvailabilitySlot, error) {
	start := time.Now()
	out, err := e.compute(ctx, q)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		metrics.RecordErrorByComponent("availability", errorType(err))
	}
	metrics.RecordAvailabilityComputation(outcome, float64(time.Since(start).Microseconds())/1000)
	return out, err
}

func (e *Engine) compute(ctx context.Context, q Query) ([]model.AvailabilitySlot, error) {
	r, err := e.resolve(q)
	if err != nil {
		return nil, err
	}
	if len(r.members) == 0 || r.from.After(r.to) {
		return []model.AvailabilitySlot{}, nil
	}

	byMember, err := e.readAll(ctx, r)
	if err != nil {
		e.logger.Error(ctx, "member calendar read failed", logger.Error(err))
		return nil, err
	}
	metrics.RecordMembersScanned(len(r.members))

	days := bucketByDay(byMember, r.from, r.to)
	perDay, err := e.mergeDays(ctx, r, days)
	if err != nil {
		return nil, err
	}

	out := make([]model.AvailabilitySlot, 0)
	for _, daySlots := range perDay {
		out = append(out, daySlots...)
	}
	recordSlots(out)
	metrics.RecordDaysScanned(len(days))

	e.logger.Debug(ctx, "availability computed",
		logger.Int("members", len(r.members)),
		logger.String("from", r.from.String()),
		logger.String("to", r.to.String()),
		logger.Int("slots", len(out)),
	)
	return out, nil
}

// readAll fetches every member's events concurrently. The first failure
// cancels the remaining reads.
func (e *Engine) readAll(ctx context.Context, r resolved) ([][]model.CalendarEvent, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
		out      = make([][]model.CalendarEvent, len(r.members))
		sem      = make(chan struct{}, e.fanout)
	)

	for i, id := range r.members {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(i int, id model.MemberID) {
			defer wg.Done()
			defer func() { <-sem }()

			events, err := e.reader.GetEvents(ctx, id, r.from, r.to)
			if err != nil {
				once.Do(func() {
					firstErr = fmt.Errorf("%w: member %s: %w", ErrReadFailed, id, err)
					cancel()
				})
				return
			}
			for j := range events {
				if events[j].Owner == "" {
					events[j].Owner = id
				}
			}
			out[i] = events
		}(i, id)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// bucketByDay groups events by their offset from from. Events dated outside
// [from, to] are dropped.
func bucketByDay(byMember [][]model.CalendarEvent, from, to model.Date) [][]model.CalendarEvent {
	days := make([][]model.CalendarEvent, from.DaysUntil(to)+1)
	for _, events := range byMember {
		for _, ev := range events {
			i := from.DaysUntil(ev.Date)
			if i < 0 || i >= len(days) {
				continue
			}
			days[i] = append(days[i], ev)
		}
	}
	return days
}

// mergeDays builds and merges each day independently.
func (e *Engine) mergeDays(ctx context.Context, r resolved, days [][]model.CalendarEvent) ([][]model.AvailabilitySlot, error) {
	out := make([][]model.AvailabilitySlot, len(days))
	jobs := make(chan int)

	var wg sync.WaitGroup
	workers := min(e.fanout, len(days))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				table := occupancy.Build(days[i], r.window.Start, r.window.End)
				out[i] = slots.Merge(table, r.window.Start, r.from.AddDays(i), r.minDuration)
			}
		}()
	}

	var err error
	for i := range days {
		if err = ctx.Err(); err != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return out, nil
}

func recordSlots(out []model.AvailabilitySlot) {
	var available, negotiable int
	for _, s := range out {
		if s.Classification == model.Available {
			available++
		} else {
			negotiable++
		}
	}
	metrics.RecordSlotsEmitted(model.Available.String(), available)
	metrics.RecordSlotsEmitted(model.Negotiable.String(), negotiable)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrReadFailed):
		return "read_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "invalid_query"
	}
}
