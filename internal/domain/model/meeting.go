package model

import (
	"fmt"
	"strings"
)

// Classification is how firmly an interval is free for the whole group.
type Classification int

const (
	// Blocked means at least one member has a rigid conflict.
	Blocked Classification = iota
	// Negotiable means no rigid conflict but at least one movable one.
	Negotiable
	// Available means nobody has any conflict.
	Available
)

func (c Classification) String() string {
	switch c {
	case Available:
		return "available"
	case Negotiable:
		return "negotiable"
	default:
		return "blocked"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// OccupancyMinute holds who is busy during one minute of the work window.
type OccupancyMinute struct {
	Rigid   MemberSet
	Movable MemberSet
}

// AvailabilitySlot is a maximal run of one classification within a day.
// Blocked runs are never represented as slots.
type AvailabilitySlot struct {
	Date           Date
	Start          Minute
	End            Minute
	Classification Classification
	// ConflictingMembers lists every member whose movable events touch the
	// slot. Empty unless the slot is Negotiable.
	ConflictingMembers MemberSet
}

// Duration returns the slot length in minutes.
func (s AvailabilitySlot) Duration() int {
	return int(s.End - s.Start)
}

// MeetingRequest asks for one event per member at a fixed date and time.
// It does not have to come from an AvailabilitySlot.
type MeetingRequest struct {
	GroupID  string
	Title    string
	Date     Date
	Start    Minute
	End      Minute
	Location string
	Members  []MemberID
}

// Validate checks the request can be turned into calendar events.
func (r MeetingRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Title) == "":
		return fmt.Errorf("%w: missing title", ErrInvalidRequest)
	case r.Date.IsZero():
		return fmt.Errorf("%w: missing date", ErrInvalidRequest)
	case r.Start < 0 || r.End > MinutesPerDay || r.Start >= r.End:
		return fmt.Errorf("%w: time %s-%s is not a valid interval", ErrInvalidRequest, r.Start, r.End)
	case len(UniqueMembers(r.Members)) == 0:
		return fmt.Errorf("%w: no members", ErrInvalidRequest)
	}
	return nil
}

// EventFor returns the rigid calendar event the request creates for member.
func (r MeetingRequest) EventFor(member MemberID) CalendarEvent {
	return CalendarEvent{
		Owner:    member,
		Date:     r.Date,
		Start:    r.Start,
		End:      r.End,
		Rigidity: Rigid,
		Title:    r.Title,
		Location: r.Location,
		GroupID:  r.GroupID,
	}
}

// MemberOutcome is the result of the write for one member.
type MemberOutcome struct {
	Member  MemberID
	EventID string
	Err     error
}

// Succeeded reports whether the member's event was created.
func (o MemberOutcome) Succeeded() bool { return o.Err == nil }

// MaterializationResult aggregates per-member outcomes. Nothing is rolled
// back when some members fail.
type MaterializationResult struct {
	RequestID      string
	GroupID        string
	Outcomes       []MemberOutcome
	SucceededCount int
	FailedCount    int
	FailedMembers  []MemberID
}

// NewMaterializationResult tallies outcomes, keeping their order.
func NewMaterializationResult(requestID, groupID string, outcomes []MemberOutcome) MaterializationResult {
	res := MaterializationResult{
		RequestID: requestID,
		GroupID:   groupID,
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		if o.Succeeded() {
			res.SucceededCount++
			continue
		}
		res.FailedCount++
		res.FailedMembers = append(res.FailedMembers, o.Member)
	}
	return res
}

// Summary renders the caller-facing message, e.g. "2 of 3 members added".
func (r MaterializationResult) Summary() string {
	total := r.SucceededCount + r.FailedCount
	if r.FailedCount == 0 {
		return fmt.Sprintf("all %d members added", total)
	}
	return fmt.Sprintf("%d of %d members added - retry failed ones", r.SucceededCount, total)
}
