package service_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/okian/rendezvous/internal/adapters/mq/worker"
	"github.com/okian/rendezvous/internal/adapters/repository"
	service "github.com/okian/rendezvous/internal/app"
	"github.com/okian/rendezvous/internal/config"
	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/types"
	"github.com/okian/rendezvous/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var (
	monday = model.Date{Year: 2026, Month: time.October, Day: 19}
	fixed  = func() time.Time { return time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC) }
)

func hm(h, m int) model.Minute { return model.HourMinute(h, m) }

// flakyStore fails writes for one member and reads for another.
type flakyStore struct {
	*repository.MemoryStore
	failWrite model.MemberID
	failRead  model.MemberID
}

func (f *flakyStore) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	if ev.Owner == f.failWrite {
		return "", errors.New("calendar unavailable")
	}
	return f.MemoryStore.CreateEvent(ctx, ev)
}

func (f *flakyStore) GetEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error) {
	if member == f.failRead {
		return nil, errors.New("connection reset")
	}
	return f.MemoryStore.GetEvents(ctx, member, from, to)
}

// slowStore takes a while to commit every write.
type slowStore struct {
	*repository.MemoryStore
	delay time.Duration
}

func (s *slowStore) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	time.Sleep(s.delay)
	return s.MemoryStore.CreateEvent(ctx, ev)
}

// cancellingStore cancels the confirming request once its first write has
// been committed.
type cancellingStore struct {
	*repository.MemoryStore
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancellingStore) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	id, err := c.MemoryStore.CreateEvent(ctx, ev)
	c.once.Do(c.cancel)
	return id, err
}

func startService(opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithClock(fixed)}, opts...)...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func meeting(members ...model.MemberID) model.MeetingRequest {
	return model.MeetingRequest{
		GroupID: "book-club",
		Title:   "Book club",
		Date:    monday,
		Start:   hm(18, 0),
		End:     hm(19, 30),
		Members: members,
	}
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service built from config", t, func() {
		cfg := config.New()
		cfg.FanoutLimit = 3
		svc := service.New(service.WithConfig(cfg))

		Convey("When it has not been started", func() {
			_, err := svc.Availability(context.Background(), availability.Query{Members: []model.MemberID{"a"}})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workers"], ShouldEqual, 3)
			So(stats["totalEvents"], ShouldEqual, 0)

			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
			svc.Stop()
		})
	})
}

func TestServiceAvailability(t *testing.T) {
	Convey("Given members with rigid and movable events", t, func() {
		svc := startService()
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.CreateEvent(ctx, model.CalendarEvent{Owner: "A", Date: monday, Start: hm(9, 0), End: hm(10, 0), Rigidity: model.Rigid})
		So(err, ShouldBeNil)
		_, err = svc.CreateEvent(ctx, model.CalendarEvent{Owner: "B", Date: monday, Start: hm(9, 30), End: hm(10, 30), Rigidity: model.Movable})
		So(err, ShouldBeNil)

		q := availability.Query{
			Members:     []model.MemberID{"A", "B"},
			From:        monday,
			To:          monday,
			Window:      &availability.Window{Start: hm(9, 0), End: hm(12, 0)},
			MinDuration: 30,
		}

		Convey("When availability is computed", func() {
			got, err := svc.Availability(ctx, q)

			Convey("Then the rigid hour is blocked and the rest classified", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, []model.AvailabilitySlot{
					{Date: monday, Start: hm(10, 0), End: hm(10, 30), Classification: model.Negotiable, ConflictingMembers: model.MemberSet{"B"}},
					{Date: monday, Start: hm(10, 30), End: hm(12, 0), Classification: model.Available},
				})
			})
		})

		Convey("When suggestions are requested for a 30 minute meeting", func() {
			q.MinDuration = 0
			got, err := svc.Suggest(ctx, q, 30, 1)

			Convey("Then the free slot is best and the negotiable one an alternative", func() {
				So(err, ShouldBeNil)
				So(len(got.Best), ShouldEqual, 1)
				So(got.Best[0].Start, ShouldEqual, hm(10, 30))
				So(got.Best[0].End, ShouldEqual, hm(11, 0))
				So(len(got.Alternatives), ShouldEqual, 1)
				So(got.Alternatives[0].Reason, ShouldEqual, "B would need to move something")
			})
		})
	})

	Convey("Given a member whose calendar cannot be read", t, func() {
		svc := startService(service.WithStore(&flakyStore{MemoryStore: repository.NewMemoryStore(), failRead: "B"}))
		defer svc.Stop()

		_, err := svc.Availability(context.Background(), availability.Query{
			Members: []model.MemberID{"A", "B", "C"}, From: monday, To: monday,
		})

		Convey("Then the computation fails as a whole", func() {
			So(errors.Is(err, availability.ErrReadFailed), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "member B")
		})
	})
}

func TestServiceMaterialize(t *testing.T) {
	Convey("Given a service with a healthy store", t, func() {
		svc := startService()
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a meeting is confirmed for a roster with duplicates", func() {
			res, err := svc.Materialize(ctx, meeting("m1", "m2", "m1", "m3"), "")

			Convey("Then every distinct member gets one rigid event", func() {
				So(err, ShouldBeNil)
				So(res.SucceededCount, ShouldEqual, 3)
				So(res.FailedCount, ShouldEqual, 0)
				So(res.Summary(), ShouldEqual, "all 3 members added")
				So(res.RequestID, ShouldNotBeEmpty)
				So(res.GroupID, ShouldEqual, "book-club")

				for i, id := range []model.MemberID{"m1", "m2", "m3"} {
					So(res.Outcomes[i].Member, ShouldEqual, id)
					So(res.Outcomes[i].EventID, ShouldNotBeEmpty)

					events, err := svc.ListEvents(ctx, id, monday, monday)
					So(err, ShouldBeNil)
					So(len(events), ShouldEqual, 1)
					So(events[0].ID, ShouldEqual, res.Outcomes[i].EventID)
					So(events[0].Rigidity, ShouldEqual, model.Rigid)
					So(events[0].GroupID, ShouldEqual, "book-club")
					So(events[0].Title, ShouldEqual, "Book club")
				}
			})

			Convey("And the meeting blocks that time for the group", func() {
				slots, err := svc.Availability(ctx, availability.Query{
					Members: []model.MemberID{"m1", "m2", "m3"}, From: monday, To: monday,
					Window: &availability.Window{Start: hm(17, 0), End: hm(20, 0)}, MinDuration: 30,
				})
				So(err, ShouldBeNil)
				So(len(slots), ShouldEqual, 2)
				So(slots[0].End, ShouldEqual, hm(18, 0))
				So(slots[1].Start, ShouldEqual, hm(19, 30))
			})
		})

		Convey("When the request is invalid", func() {
			req := meeting("m1")
			req.Title = " "
			_, err := svc.Materialize(ctx, req, "key-1")

			Convey("Then nothing is written and the key stays usable", func() {
				So(errors.Is(err, model.ErrInvalidRequest), ShouldBeTrue)
				n := svc.GetStats()["totalEvents"]
				So(n, ShouldEqual, 0)

				_, err = svc.Materialize(ctx, meeting("m1"), "key-1")
				So(err, ShouldBeNil)
			})
		})

		Convey("When the same idempotency key is used twice", func() {
			_, err := svc.Materialize(ctx, meeting("m1", "m2"), "confirm-42")
			So(err, ShouldBeNil)
			_, err = svc.Materialize(ctx, meeting("m1", "m2"), "confirm-42")

			Convey("Then the second call is rejected without writing", func() {
				So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
				So(svc.GetStats()["totalEvents"], ShouldEqual, 2)
			})
		})

		Convey("When the request context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res, err := svc.Materialize(cctx, meeting("m1", "m2"), "")

			Convey("Then every member is reported as cancelled", func() {
				So(err, ShouldBeNil)
				So(res.SucceededCount, ShouldEqual, 0)
				So(res.FailedMembers, ShouldResemble, []model.MemberID{"m1", "m2"})
				for _, o := range res.Outcomes {
					So(errors.Is(o.Err, worker.ErrCancelled), ShouldBeTrue)
				}
			})
		})
	})

	Convey("Given a store that rejects writes for the second member", t, func() {
		svc := startService(service.WithStore(&flakyStore{MemoryStore: repository.NewMemoryStore(), failWrite: "m2"}))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a meeting is confirmed for three members", func() {
			res, err := svc.Materialize(ctx, meeting("m1", "m2", "m3"), "partial")

			Convey("Then the others keep their events and the failure is reported", func() {
				So(err, ShouldBeNil)
				So(res.SucceededCount, ShouldEqual, 2)
				So(res.FailedCount, ShouldEqual, 1)
				So(res.FailedMembers, ShouldResemble, []model.MemberID{"m2"})
				So(res.Outcomes[1].Err.Error(), ShouldContainSubstring, "write failed for member m2")
				So(res.Summary(), ShouldEqual, "2 of 3 members added - retry failed ones")

				for _, id := range []model.MemberID{"m1", "m3"} {
					events, err := svc.ListEvents(ctx, id, monday, monday)
					So(err, ShouldBeNil)
					So(len(events), ShouldEqual, 1)
				}
			})

			Convey("And a retry with the same key is a duplicate", func() {
				_, err := svc.Materialize(ctx, meeting("m1", "m2", "m3"), "partial")
				So(errors.Is(err, service.ErrDuplicate), ShouldBeTrue)
			})
		})
	})
}

func TestServiceCalendarFiles(t *testing.T) {
	Convey("Given a member calendar file", t, func() {
		svc := startService()
		defer svc.Stop()
		ctx := context.Background()

		body := strings.Join([]string{
			"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN",
			"BEGIN:VEVENT", "UID:1", "DTSTAMP:20261001T000000Z",
			"DTSTART:20261019T090000Z", "DTEND:20261019T100000Z", "SUMMARY:Standup", "END:VEVENT",
			"BEGIN:VEVENT", "UID:2", "DTSTAMP:20261001T000000Z", "SUMMARY:Broken", "END:VEVENT",
			"END:VCALENDAR", "",
		}, "\r\n")

		Convey("When it is imported", func() {
			rep, err := svc.ImportICS(ctx, "alice", strings.NewReader(body))
			So(err, ShouldBeNil)
			So(rep, ShouldResemble, types.ImportResponse{Imported: 1, Skipped: 1})

			Convey("Then the event is on the calendar and exports again", func() {
				events, err := svc.ListEvents(ctx, "alice", monday, monday)
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
				So(events[0].Title, ShouldEqual, "Standup")

				var buf bytes.Buffer
				So(svc.ExportICS(ctx, "alice", monday, monday, &buf), ShouldBeNil)
				So(buf.String(), ShouldContainSubstring, "SUMMARY:Standup")
				So(buf.String(), ShouldContainSubstring, "DTSTART:20261019T090000Z")
			})
		})
	})
}

func TestMaterializeBackpressure(t *testing.T) {
	Convey("Given one write worker, a two-slot queue and a slow store", t, func() {
		store := &slowStore{MemoryStore: repository.NewMemoryStore(), delay: 20 * time.Millisecond}
		svc := startService(service.WithStore(store), service.WithQueueSize(2), service.WithFanout(1))
		defer svc.Stop()

		Convey("When a meeting is confirmed for more members than the queue holds", func() {
			res, err := svc.Materialize(context.Background(), meeting("m0", "m1", "m2", "m3", "m4", "m5"), "")

			Convey("Then dispatch waits for room and every member gets the event", func() {
				So(err, ShouldBeNil)
				So(res.SucceededCount, ShouldEqual, 6)
				So(res.FailedCount, ShouldEqual, 0)
				So(res.FailedMembers, ShouldBeEmpty)
				So(svc.GetStats()["totalEvents"], ShouldEqual, 6)
			})
		})
	})
}

func TestMaterializeCancelledMidBatch(t *testing.T) {
	Convey("Given a store that cancels the request after the first committed write", t, func() {
		store := &cancellingStore{MemoryStore: repository.NewMemoryStore()}
		svc := startService(service.WithStore(store), service.WithFanout(1))
		defer svc.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store.cancel = cancel

		Convey("When a meeting is confirmed for four members", func() {
			res, err := svc.Materialize(ctx, meeting("m1", "m2", "m3", "m4"), "")

			Convey("Then the committed write is kept and later members are cancelled", func() {
				So(err, ShouldBeNil)
				So(res.SucceededCount, ShouldEqual, 1)
				So(res.FailedCount, ShouldEqual, 3)
				So(res.FailedMembers, ShouldResemble, []model.MemberID{"m2", "m3", "m4"})

				So(res.Outcomes[0].Member, ShouldEqual, model.MemberID("m1"))
				So(res.Outcomes[0].Succeeded(), ShouldBeTrue)
				So(res.Outcomes[0].EventID, ShouldNotBeEmpty)
				for _, o := range res.Outcomes[1:] {
					So(errors.Is(o.Err, worker.ErrCancelled), ShouldBeTrue)
				}

				kept, err := store.GetEvents(context.Background(), "m1", monday, monday)
				So(err, ShouldBeNil)
				So(len(kept), ShouldEqual, 1)
				So(kept[0].ID, ShouldEqual, res.Outcomes[0].EventID)
				So(kept[0].Rigidity, ShouldEqual, model.Rigid)

				for _, m := range []model.MemberID{"m2", "m3", "m4"} {
					none, err := store.GetEvents(context.Background(), m, monday, monday)
					So(err, ShouldBeNil)
					So(none, ShouldBeEmpty)
				}
			})
		})
	})
}
