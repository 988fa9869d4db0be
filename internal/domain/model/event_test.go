package model_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/okian/rendezvous/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClockParsing(t *testing.T) {
	Convey("Given clock strings", t, func() {
		Convey("When parsing valid values", func() {
			nine, err1 := model.ParseClock("09:00")
			late, err2 := model.ParseClock("23:59")
			end, err3 := model.ParseClock("24:00")

			Convey("Then minutes since midnight are returned", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(err3, ShouldBeNil)
				So(nine, ShouldEqual, model.Minute(540))
				So(late, ShouldEqual, model.Minute(1439))
				So(end, ShouldEqual, model.MinutesPerDay)
			})
		})

		Convey("When parsing invalid values", func() {
			for _, s := range []string{"", "9", "09:0", "09:60", "25:00", "24:01", "aa:bb", "-1:00", "+9:00", "-0:30", "09:+5", " 9 :00"} {
				_, err := model.ParseClock(s)
				So(errors.Is(err, model.ErrInvalidTime), ShouldBeTrue)
			}
		})

		Convey("When rendering a minute", func() {
			So(model.HourMinute(9, 5).String(), ShouldEqual, "09:05")
			So(model.Minute(0).String(), ShouldEqual, "00:00")
		})
	})
}

func TestDate(t *testing.T) {
	Convey("Given a calendar date", t, func() {
		d, err := model.ParseDate("2026-02-27")
		So(err, ShouldBeNil)

		Convey("When adding days across a month boundary", func() {
			next := d.AddDays(2)

			Convey("Then month overflow is normalized", func() {
				So(next.String(), ShouldEqual, "2026-03-01")
				So(d.DaysUntil(next), ShouldEqual, 2)
				So(next.After(d), ShouldBeTrue)
				So(d.Before(next), ShouldBeTrue)
				So(d.Compare(d), ShouldEqual, 0)
			})
		})

		Convey("When taking the date of a time value", func() {
			tm := time.Date(2026, time.October, 16, 23, 30, 0, 0, time.UTC)
			So(model.DateOf(tm).String(), ShouldEqual, "2026-10-16")
		})

		Convey("When round-tripping through JSON", func() {
			b, err := json.Marshal(struct {
				D model.Date   `json:"d"`
				M model.Minute `json:"m"`
			}{D: d, M: model.HourMinute(10, 30)})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"d":"2026-02-27","m":"10:30"}`)
		})

		Convey("When the input is malformed", func() {
			_, err := model.ParseDate("27/02/2026")
			So(errors.Is(err, model.ErrInvalidTime), ShouldBeTrue)
		})
	})
}

func TestCalendarEvent(t *testing.T) {
	Convey("Given calendar events", t, func() {
		Convey("When start is before end", func() {
			ev := model.CalendarEvent{Start: 60, End: 120}
			So(ev.Valid(), ShouldBeTrue)
			So(ev.Duration(), ShouldEqual, 60)
		})

		Convey("When the event is malformed", func() {
			So(model.CalendarEvent{Start: 120, End: 120}.Valid(), ShouldBeFalse)
			So(model.CalendarEvent{Start: 130, End: 120}.Duration(), ShouldEqual, 0)
			So(model.CalendarEvent{Start: -5, End: 10}.Valid(), ShouldBeFalse)
			So(model.CalendarEvent{Start: 10, End: model.MinutesPerDay + 1}.Valid(), ShouldBeFalse)
		})

		Convey("When mapping a store's fixed flag", func() {
			So(model.RigidityFromFixed(true), ShouldEqual, model.Rigid)
			So(model.RigidityFromFixed(false), ShouldEqual, model.Movable)
			So(model.Movable.String(), ShouldEqual, "movable")
		})
	})
}

func TestMemberSet(t *testing.T) {
	Convey("Given an empty member set", t, func() {
		var s model.MemberSet

		Convey("When adding members out of order with duplicates", func() {
			s = s.Add("c").Add("a").Add("b").Add("a")

			Convey("Then the set stays sorted and unique", func() {
				So(s, ShouldResemble, model.MemberSet{"a", "b", "c"})
				So(s.Has("b"), ShouldBeTrue)
				So(s.Has("z"), ShouldBeFalse)
			})
		})

		Convey("When taking a union", func() {
			s = model.MemberSet{"a", "c"}.Union(model.MemberSet{"b", "c", "d"})
			So(s, ShouldResemble, model.MemberSet{"a", "b", "c", "d"})
		})

		Convey("When cloning", func() {
			orig := model.MemberSet{"a"}
			clone := orig.Clone()
			clone[0] = "x"
			So(orig[0], ShouldEqual, model.MemberID("a"))
		})
	})

	Convey("Given a roster with duplicates and blanks", t, func() {
		ids := model.UniqueMembers([]model.MemberID{"b", "", "a", "b"})
		So(ids, ShouldResemble, []model.MemberID{"b", "a"})
	})
}

func TestMeetingRequest(t *testing.T) {
	Convey("Given a meeting request", t, func() {
		req := model.MeetingRequest{
			GroupID: "g1",
			Title:   "Planning",
			Date:    model.Date{Year: 2026, Month: time.October, Day: 20},
			Start:   model.HourMinute(10, 0),
			End:     model.HourMinute(11, 0),
			Members: []model.MemberID{"a", "b"},
		}

		Convey("When it is complete", func() {
			So(req.Validate(), ShouldBeNil)

			ev := req.EventFor("a")
			So(ev.Rigidity, ShouldEqual, model.Rigid)
			So(ev.GroupID, ShouldEqual, "g1")
			So(ev.Owner, ShouldEqual, model.MemberID("a"))
		})

		Convey("When fields are missing or inverted", func() {
			noTitle := req
			noTitle.Title = " "
			inverted := req
			inverted.Start, inverted.End = inverted.End, inverted.Start
			noMembers := req
			noMembers.Members = []model.MemberID{""}
			noDate := req
			noDate.Date = model.Date{}

			for _, r := range []model.MeetingRequest{noTitle, inverted, noMembers, noDate} {
				So(errors.Is(r.Validate(), model.ErrInvalidRequest), ShouldBeTrue)
			}
		})
	})
}

func TestMaterializationResult(t *testing.T) {
	Convey("Given per-member outcomes with one failure", t, func() {
		outcomes := []model.MemberOutcome{
			{Member: "m1", EventID: "e1"},
			{Member: "m2", Err: errors.New("store unreachable")},
			{Member: "m3", EventID: "e3"},
		}
		res := model.NewMaterializationResult("req", "g", outcomes)

		Convey("Then counts and failed members are tallied", func() {
			So(res.SucceededCount, ShouldEqual, 2)
			So(res.FailedCount, ShouldEqual, 1)
			So(res.FailedMembers, ShouldResemble, []model.MemberID{"m2"})
			So(res.Summary(), ShouldEqual, "2 of 3 members added - retry failed ones")
		})
	})

	Convey("Given only successes", t, func() {
		res := model.NewMaterializationResult("req", "g", []model.MemberOutcome{{Member: "a", EventID: "1"}})
		So(res.FailedMembers, ShouldBeNil)
		So(res.Summary(), ShouldEqual, "all 1 members added")
	})
}
