// Package ics converts between iCalendar files and member calendar events.
//
// Times are taken as wall-clock values in whatever zone the file states;
// no conversion between zones is attempted. Recurrence rules are not
// expanded, only the first occurrence of a recurring VEVENT is imported.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/metrics"
)

// maxEventDays bounds how many days one VEVENT may be split across.
const maxEventDays = 366

// PropertyGroupID carries model.CalendarEvent.GroupID through export and import.
const PropertyGroupID = ical.ComponentProperty("X-RENDEZVOUS-GROUP")

// Report is the outcome of parsing one calendar file.
type Report struct {
	Events []model.CalendarEvent
	// Skipped counts VEVENTs that had no usable start or end.
	Skipped int
}

// Parse reads a VCALENDAR and returns owner's events. An event spanning
// midnight becomes one event per day it touches. TRANSP:TRANSPARENT marks a
// movable event; everything else is rigid.
func Parse(r io.Reader, owner model.MemberID) (Report, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var rep Report
	vevents := cal.Events()
	for _, ve := range vevents {
		events, ok := convert(ve, owner)
		if !ok {
			rep.Skipped++
			continue
		}
		rep.Events = append(rep.Events, events...)
	}

	metrics.RecordICSEvents("imported", len(vevents)-rep.Skipped)
	metrics.RecordICSEvents("skipped", rep.Skipped)
	return rep, nil
}

func convert(ve *ical.VEvent, owner model.MemberID) ([]model.CalendarEvent, bool) {
	start, end, ok := span(ve)
	if !ok || !end.After(start) {
		return nil, false
	}

	base := model.CalendarEvent{
		Owner:    owner,
		Rigidity: rigidity(ve),
		Title:    propValue(ve, ical.ComponentPropertySummary),
		Location: propValue(ve, ical.ComponentPropertyLocation),
		GroupID:  propValue(ve, PropertyGroupID),
	}
	return splitDays(base, start, end), true
}

// span returns the wall-clock start and end of a VEVENT. All-day events run
// from midnight of DTSTART to midnight of DTEND, or one day when DTEND is absent.
func span(ve *ical.VEvent) (time.Time, time.Time, bool) {
	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return time.Time{}, time.Time{}, false
	}

	if isAllDay(dtStart) {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		end, err := ve.GetAllDayEndAt()
		if err != nil {
			end = start.AddDate(0, 0, 1)
		}
		return start, end, true
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, end.In(start.Location()), true
}

func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func rigidity(ve *ical.VEvent) model.Rigidity {
	if strings.EqualFold(propValue(ve, ical.ComponentPropertyTransp), string(ical.TransparencyTransparent)) {
		return model.Movable
	}
	return model.Rigid
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// splitDays clips [start, end) to each calendar day it covers.
func splitDays(base model.CalendarEvent, start, end time.Time) []model.CalendarEvent {
	first, last := model.DateOf(start), model.DateOf(end)
	if n := first.DaysUntil(last); n > maxEventDays {
		last = first.AddDays(maxEventDays)
		end = time.Date(last.Year, last.Month, last.Day, 0, 0, 0, 0, start.Location())
	}

	var out []model.CalendarEvent
	for d := first; !d.After(last); d = d.AddDays(1) {
		ev := base
		ev.Date = d
		ev.Start = 0
		ev.End = model.MinutesPerDay
		if d == first {
			ev.Start = model.HourMinute(start.Hour(), start.Minute())
		}
		if d == last {
			ev.End = model.HourMinute(end.Hour(), end.Minute())
		}
		if ev.Start < ev.End {
			out = append(out, ev)
		}
	}
	return out
}

// Write renders events as a VCALENDAR. Rigid events are OPAQUE and movable
// ones TRANSPARENT, so Parse reads them back unchanged.
func Write(w io.Writer, events []model.CalendarEvent, stamp time.Time) error {
	cal := ical.NewCalendarFor("rendezvous")
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		day := ev.Date.Time()
		vev := cal.AddEvent(eventUID(ev))
		vev.SetDtStampTime(stamp)
		vev.SetStartAt(day.Add(time.Duration(ev.Start) * time.Minute))
		vev.SetEndAt(day.Add(time.Duration(ev.End) * time.Minute))
		if ev.Title != "" {
			vev.SetSummary(ev.Title)
		}
		if ev.Location != "" {
			vev.SetLocation(ev.Location)
		}
		if ev.GroupID != "" {
			vev.SetProperty(PropertyGroupID, ev.GroupID)
		}
		if ev.Rigidity == model.Movable {
			vev.SetTimeTransparency(ical.TransparencyTransparent)
		} else {
			vev.SetTimeTransparency(ical.TransparencyOpaque)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	metrics.RecordICSEvents("exported", len(events))
	return nil
}

func eventUID(ev model.CalendarEvent) string {
	if ev.ID != "" {
		return ev.ID + "@rendezvous"
	}
	return fmt.Sprintf("%s-%s-%d@rendezvous", ev.Owner, ev.Date, ev.Start)
}
