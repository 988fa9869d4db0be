package availability_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var (
	mon = model.Date{Year: 2026, Month: time.October, Day: 19}
	tue = mon.AddDays(1)
	wed = mon.AddDays(2)
)

func hm(h, m int) model.Minute { return model.HourMinute(h, m) }

// mockReader serves canned events and optional per-member failures.
type mockReader struct {
	mu       sync.Mutex
	events   map[model.MemberID][]model.CalendarEvent
	fail     map[model.MemberID]error
	calls    []model.MemberID
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newMockReader() *mockReader {
	return &mockReader{
		events: make(map[model.MemberID][]model.CalendarEvent),
		fail:   make(map[model.MemberID]error),
	}
}

func (m *mockReader) add(owner string, d model.Date, start, end model.Minute, r model.Rigidity) {
	id := model.MemberID(owner)
	m.events[id] = append(m.events[id], model.CalendarEvent{Owner: id, Date: d, Start: start, End: end, Rigidity: r})
}

func (m *mockReader) GetEvents(ctx context.Context, member model.MemberID, _, _ model.Date) ([]model.CalendarEvent, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, member)
	err := m.fail[member]
	events := append([]model.CalendarEvent(nil), m.events[member]...)
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return events, nil
}

func fixedClock() time.Time { return time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC) }

func TestEngineCompute(t *testing.T) {
	ctx := context.Background()

	Convey("Given two members over three days", t, func() {
		reader := newMockReader()
		reader.add("alice", mon, hm(9, 0), hm(10, 0), model.Rigid)
		reader.add("bob", mon, hm(9, 30), hm(10, 30), model.Movable)
		reader.add("bob", wed, hm(12, 0), hm(21, 0), model.Rigid)
		engine := availability.New(reader, availability.WithClock(fixedClock))

		got, err := engine.Compute(ctx, availability.Query{
			Members:     []model.MemberID{"alice", "bob"},
			From:        mon,
			To:          wed,
			Window:      &availability.Window{Start: hm(9, 0), End: hm(12, 0)},
			MinDuration: 30,
		})

		Convey("Then slots are produced per day in date order", func() {
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.AvailabilitySlot{
				{Date: mon, Start: hm(10, 0), End: hm(10, 30), Classification: model.Negotiable, ConflictingMembers: model.MemberSet{"bob"}},
				{Date: mon, Start: hm(10, 30), End: hm(12, 0), Classification: model.Available},
				{Date: tue, Start: hm(9, 0), End: hm(12, 0), Classification: model.Available},
				{Date: wed, Start: hm(9, 0), End: hm(12, 0), Classification: model.Available},
			})
		})
	})

	Convey("Given a query with no window, duration or dates", t, func() {
		reader := newMockReader()
		engine := availability.New(reader,
			availability.WithClock(fixedClock),
			availability.WithDefaultRangeDays(2),
		)

		got, err := engine.Compute(ctx, availability.Query{Members: []model.MemberID{"a", "b"}})

		Convey("Then engine defaults apply: 09-21, today plus the range", func() {
			So(err, ShouldBeNil)
			So(len(got), ShouldEqual, 3)
			for i, s := range got {
				So(s.Date, ShouldResemble, mon.AddDays(i))
				So(s.Start, ShouldEqual, hm(9, 0))
				So(s.End, ShouldEqual, hm(21, 0))
				So(s.Classification, ShouldEqual, model.Available)
			}
		})
	})

	Convey("Given configured defaults", t, func() {
		reader := newMockReader()
		reader.add("a", mon, hm(10, 0), hm(10, 45), model.Movable)
		engine := availability.New(reader,
			availability.WithDefaultWindow(8, 12),
			availability.WithDefaultMinDuration(90),
		)

		got, err := engine.Compute(ctx, availability.Query{Members: []model.MemberID{"a"}, From: mon, To: mon})

		Convey("Then they replace the built-in ones", func() {
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.AvailabilitySlot{
				{Date: mon, Start: hm(8, 0), End: hm(10, 0), Classification: model.Available},
			})
		})
	})

	Convey("Given an empty roster", t, func() {
		reader := newMockReader()
		got, err := availability.New(reader).Compute(ctx, availability.Query{Members: []model.MemberID{"", ""}, From: mon, To: tue})

		Convey("Then the result is empty and nothing is read", func() {
			So(err, ShouldBeNil)
			So(got, ShouldNotBeNil)
			So(got, ShouldBeEmpty)
			So(reader.calls, ShouldBeEmpty)
		})
	})

	Convey("Given a range that ends before it starts", t, func() {
		reader := newMockReader()
		got, err := availability.New(reader).Compute(ctx, availability.Query{Members: []model.MemberID{"a"}, From: wed, To: mon})
		So(err, ShouldBeNil)
		So(got, ShouldBeEmpty)
		So(reader.calls, ShouldBeEmpty)
	})

	Convey("Given duplicated members", t, func() {
		reader := newMockReader()
		_, err := availability.New(reader).Compute(ctx, availability.Query{
			Members: []model.MemberID{"a", "b", "a"}, From: mon, To: mon,
		})
		So(err, ShouldBeNil)
		So(len(reader.calls), ShouldEqual, 2)
	})

	Convey("Given events dated outside the range or malformed", t, func() {
		reader := newMockReader()
		reader.add("a", wed, hm(9, 0), hm(21, 0), model.Rigid)
		reader.add("a", mon, hm(15, 0), hm(14, 0), model.Rigid)
		got, err := availability.New(reader).Compute(ctx, availability.Query{
			Members: []model.MemberID{"a"}, From: mon, To: mon,
		})

		Convey("Then they do not affect availability", func() {
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []model.AvailabilitySlot{
				{Date: mon, Start: hm(9, 0), End: hm(21, 0), Classification: model.Available},
			})
		})
	})
}

func TestEngineErrors(t *testing.T) {
	ctx := context.Background()

	Convey("Given a member whose calendar cannot be read", t, func() {
		reader := newMockReader()
		reader.fail["bob"] = errors.New("store unreachable")

		got, err := availability.New(reader).Compute(ctx, availability.Query{
			Members: []model.MemberID{"alice", "bob", "carol"}, From: mon, To: tue,
		})

		Convey("Then the whole computation fails", func() {
			So(got, ShouldBeNil)
			So(errors.Is(err, availability.ErrReadFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "bob")
			So(err.Error(), ShouldContainSubstring, "store unreachable")
		})
	})

	Convey("Given invalid query settings", t, func() {
		engine := availability.New(newMockReader())
		members := []model.MemberID{"a"}

		_, err := engine.Compute(ctx, availability.Query{Members: members, Window: &availability.Window{Start: hm(12, 0), End: hm(9, 0)}})
		So(errors.Is(err, availability.ErrInvalidWindow), ShouldBeTrue)

		_, err = engine.Compute(ctx, availability.Query{Members: members, Window: &availability.Window{Start: 0, End: model.MinutesPerDay + 1}})
		So(errors.Is(err, availability.ErrInvalidWindow), ShouldBeTrue)

		_, err = engine.Compute(ctx, availability.Query{Members: members, MinDuration: -5})
		So(errors.Is(err, availability.ErrInvalidDuration), ShouldBeTrue)

		_, err = engine.Compute(ctx, availability.Query{Members: members, From: mon, To: mon.AddDays(availability.MaxRangeDays)})
		So(errors.Is(err, availability.ErrInvalidDateRange), ShouldBeTrue)
	})

	Convey("Given a cancelled context", t, func() {
		reader := newMockReader()
		reader.delay = 50 * time.Millisecond
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := availability.New(reader).Compute(cctx, availability.Query{
			Members: []model.MemberID{"a", "b"}, From: mon, To: tue,
		})
		So(err, ShouldNotBeNil)
	})
}

func TestEngineFanout(t *testing.T) {
	Convey("Given many members and a fanout limit of two", t, func() {
		reader := newMockReader()
		reader.delay = 5 * time.Millisecond
		members := []model.MemberID{"a", "b", "c", "d", "e", "f"}

		_, err := availability.New(reader, availability.WithFanout(2)).Compute(context.Background(), availability.Query{
			Members: members, From: mon, To: mon,
		})

		Convey("Then every member is read with at most two reads in flight", func() {
			So(err, ShouldBeNil)
			So(len(reader.calls), ShouldEqual, len(members))
			So(reader.peak.Load(), ShouldBeLessThanOrEqualTo, 2)
		})
	})
}
