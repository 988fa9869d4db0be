// Package types contains the JSON shapes exchanged over the HTTP API and
// their conversion to domain values.
package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/okian/rendezvous/internal/domain/availability"
	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/internal/domain/ranking"
)

// ErrInvalid marks a request body that cannot be turned into a domain value.
var ErrInvalid = errors.New("invalid request")

// AvailabilityRequest mirrors the OpenAPI schema for POST /availability.
// Omitted fields take the service defaults.
type AvailabilityRequest struct {
	Members            []model.MemberID `json:"members"`
	From               model.Date       `json:"from"`
	To                 model.Date       `json:"to"`
	WorkStartHour      *int             `json:"work_start_hour,omitempty"`
	WorkEndHour        *int             `json:"work_end_hour,omitempty"`
	MinDurationMinutes int              `json:"min_duration_minutes,omitempty"`
}

// Query converts the request into an availability query.
func (r AvailabilityRequest) Query() (availability.Query, error) {
	q := availability.Query{
		Members:     r.Members,
		From:        r.From,
		To:          r.To,
		MinDuration: r.MinDurationMinutes,
	}
	switch {
	case r.WorkStartHour == nil && r.WorkEndHour == nil:
	case r.WorkStartHour == nil || r.WorkEndHour == nil:
		return q, fmt.Errorf("%w: work_start_hour and work_end_hour must be set together", ErrInvalid)
	default:
		q.Window = &availability.Window{
			Start: model.HourMinute(*r.WorkStartHour, 0),
			End:   model.HourMinute(*r.WorkEndHour, 0),
		}
	}
	if r.From.IsZero() != r.To.IsZero() {
		return q, fmt.Errorf("%w: from and to must be set together", ErrInvalid)
	}
	return q, nil
}

// SuggestionsRequest mirrors the OpenAPI schema for POST /suggestions.
type SuggestionsRequest struct {
	AvailabilityRequest
	DurationMinutes int `json:"duration_minutes"`
	Limit           int `json:"limit,omitempty"`
}

// Slot is the wire form of model.AvailabilitySlot.
type Slot struct {
	Date               model.Date       `json:"date"`
	Start              model.Minute     `json:"start"`
	End                model.Minute     `json:"end"`
	DurationMinutes    int              `json:"duration_minutes"`
	Classification     string           `json:"classification"`
	ConflictingMembers []model.MemberID `json:"conflicting_members"`
}

// NewSlot converts a domain slot.
func NewSlot(s model.AvailabilitySlot) Slot {
	conflicts := make([]model.MemberID, len(s.ConflictingMembers))
	copy(conflicts, s.ConflictingMembers)
	return Slot{
		Date:               s.Date,
		Start:              s.Start,
		End:                s.End,
		DurationMinutes:    s.Duration(),
		Classification:     s.Classification.String(),
		ConflictingMembers: conflicts,
	}
}

// AvailabilityResponse is returned by POST /availability.
type AvailabilityResponse struct {
	Slots []Slot `json:"slots"`
}

// NewAvailabilityResponse converts domain slots, keeping their order.
func NewAvailabilityResponse(slots []model.AvailabilitySlot) AvailabilityResponse {
	out := AvailabilityResponse{Slots: make([]Slot, len(slots))}
	for i, s := range slots {
		out.Slots[i] = NewSlot(s)
	}
	return out
}

// Suggestion is one proposed meeting time.
type Suggestion struct {
	Date   model.Date   `json:"date"`
	Start  model.Minute `json:"start"`
	End    model.Minute `json:"end"`
	Reason string       `json:"reason"`
	Slot   Slot         `json:"slot"`
}

// SuggestionsResponse is returned by POST /suggestions.
type SuggestionsResponse struct {
	Best         []Suggestion `json:"best"`
	Alternatives []Suggestion `json:"alternatives"`
}

// NewSuggestionsResponse converts ranked suggestions.
func NewSuggestionsResponse(s ranking.Suggestions) SuggestionsResponse {
	conv := func(in []ranking.Suggestion) []Suggestion {
		out := make([]Suggestion, len(in))
		for i, sg := range in {
			out[i] = Suggestion{Date: sg.Slot.Date, Start: sg.Start, End: sg.End, Reason: sg.Reason, Slot: NewSlot(sg.Slot)}
		}
		return out
	}
	return SuggestionsResponse{Best: conv(s.Best), Alternatives: conv(s.Alternatives)}
}

// MeetingRequest mirrors the OpenAPI schema for POST /meetings.
type MeetingRequest struct {
	GroupID  string           `json:"group_id"`
	Title    string           `json:"title"`
	Date     model.Date       `json:"date"`
	Start    model.Minute     `json:"start"`
	End      model.Minute     `json:"end"`
	Location string           `json:"location,omitempty"`
	Members  []model.MemberID `json:"members"`
}

// Model converts the request. Validation happens in the domain.
func (r MeetingRequest) Model() model.MeetingRequest {
	return model.MeetingRequest(r)
}

// MemberOutcome is the wire form of one member's write result.
type MemberOutcome struct {
	Member  model.MemberID `json:"member"`
	EventID string         `json:"event_id,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// MaterializationResponse is returned by POST /meetings.
type MaterializationResponse struct {
	RequestID      string           `json:"request_id"`
	GroupID        string           `json:"group_id,omitempty"`
	SucceededCount int              `json:"succeeded_count"`
	FailedCount    int              `json:"failed_count"`
	FailedMembers  []model.MemberID `json:"failed_members"`
	Outcomes       []MemberOutcome  `json:"outcomes"`
	Message        string           `json:"message"`
}

// NewMaterializationResponse converts a materialization result.
func NewMaterializationResponse(r model.MaterializationResult) MaterializationResponse {
	out := MaterializationResponse{
		RequestID:      r.RequestID,
		GroupID:        r.GroupID,
		SucceededCount: r.SucceededCount,
		FailedCount:    r.FailedCount,
		FailedMembers:  make([]model.MemberID, len(r.FailedMembers)),
		Outcomes:       make([]MemberOutcome, len(r.Outcomes)),
		Message:        r.Summary(),
	}
	copy(out.FailedMembers, r.FailedMembers)
	for i, o := range r.Outcomes {
		out.Outcomes[i] = MemberOutcome{Member: o.Member, EventID: o.EventID}
		if o.Err != nil {
			out.Outcomes[i].Error = o.Err.Error()
		}
	}
	return out
}

// EventRequest mirrors the OpenAPI schema for POST /members/{id}/events.
type EventRequest struct {
	Date     model.Date   `json:"date"`
	Start    model.Minute `json:"start"`
	End      model.Minute `json:"end"`
	Rigidity string       `json:"rigidity,omitempty"`
	Title    string       `json:"title,omitempty"`
	Location string       `json:"location,omitempty"`
}

// Model converts the request into an event owned by member. Rigidity is
// "rigid" (default) or "movable".
func (r EventRequest) Model(member model.MemberID) (model.CalendarEvent, error) {
	ev := model.CalendarEvent{
		Owner:    member,
		Date:     r.Date,
		Start:    r.Start,
		End:      r.End,
		Title:    r.Title,
		Location: r.Location,
	}
	switch strings.ToLower(strings.TrimSpace(r.Rigidity)) {
	case "", "rigid":
		ev.Rigidity = model.Rigid
	case "movable":
		ev.Rigidity = model.Movable
	default:
		return ev, fmt.Errorf("%w: rigidity %q must be rigid or movable", ErrInvalid, r.Rigidity)
	}
	return ev, nil
}

// Event is the wire form of model.CalendarEvent.
type Event struct {
	ID       string         `json:"id"`
	Owner    model.MemberID `json:"owner"`
	Date     model.Date     `json:"date"`
	Start    model.Minute   `json:"start"`
	End      model.Minute   `json:"end"`
	Rigidity string         `json:"rigidity"`
	Title    string         `json:"title,omitempty"`
	Location string         `json:"location,omitempty"`
	GroupID  string         `json:"group_id,omitempty"`
}

// NewEvents converts domain events.
func NewEvents(events []model.CalendarEvent) []Event {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = Event{
			ID:       ev.ID,
			Owner:    ev.Owner,
			Date:     ev.Date,
			Start:    ev.Start,
			End:      ev.End,
			Rigidity: ev.Rigidity.String(),
			Title:    ev.Title,
			Location: ev.Location,
			GroupID:  ev.GroupID,
		}
	}
	return out
}

// CreatedResponse is returned when an event was stored.
type CreatedResponse struct {
	ID string `json:"id"`
}

// ImportResponse is returned by a calendar file import.
type ImportResponse struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}
