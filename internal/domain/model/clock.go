package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Minute is a time of day expressed as minutes since midnight.
type Minute int

// MinutesPerDay is the exclusive upper bound of a Minute within one day.
const MinutesPerDay Minute = 24 * 60

const (
	dateLayout  = "2006-01-02"
	clockLayout = "%02d:%02d"
)

// HourMinute builds a Minute from an hour and minute pair.
func HourMinute(hour, minute int) Minute {
	return Minute(hour*60 + minute)
}

// ParseClock parses "HH:MM". "24:00" is accepted as the end of the day.
func ParseClock(s string) (Minute, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(ms) != 2 || !digits(hs) || !digits(ms) {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, s)
	}
	h, herr := strconv.Atoi(hs)
	m, merr := strconv.Atoi(ms)
	if herr != nil || merr != nil || h < 0 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, s)
	}
	v := HourMinute(h, m)
	if v > MinutesPerDay {
		return 0, fmt.Errorf("%w: clock %q", ErrInvalidTime, s)
	}
	return v, nil
}

// digits reports whether s is a non-empty run of ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the minute as "HH:MM".
func (m Minute) String() string {
	return fmt.Sprintf(clockLayout, int(m)/60, int(m)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (m Minute) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Minute) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Date is a calendar day with no time-of-day or zone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q", ErrInvalidTime, s)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days, normalizing month and year overflow.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after o.
func (d Date) Compare(o Date) int {
	return d.Time().Compare(o.Time())
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.Compare(o) > 0 }

// DaysUntil returns the number of days from d to o (negative when o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.Time().Sub(d.Time()).Hours() / 24)
}

// String renders the date as "YYYY-MM-DD".
func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
