// Package model contains domain models passed between layers.
package model

import "sort"

// MemberID identifies a group member. It is opaque to the engine.
type MemberID string

// Member is a group member. Its events are reached through the event store.
type Member struct {
	ID MemberID
}

// Rigidity tells whether the owner of an event could move it.
type Rigidity int

const (
	// Rigid events cannot be rescheduled and block a slot outright.
	Rigid Rigidity = iota
	// Movable events are soft holds and make a slot negotiable.
	Movable
)

func (r Rigidity) String() string {
	if r == Movable {
		return "movable"
	}
	return "rigid"
}

// RigidityFromFixed maps a store's "fixed" flag onto Rigidity.
func RigidityFromFixed(fixed bool) Rigidity {
	if fixed {
		return Rigid
	}
	return Movable
}

// CalendarEvent is one entry on a member's calendar for a single day.
// Start and End form the half-open interval [Start, End).
type CalendarEvent struct {
	ID       string
	Owner    MemberID
	Date     Date
	Start    Minute
	End      Minute
	Rigidity Rigidity

	Title    string
	Location string
	// GroupID back-references the group a materialized meeting came from.
	// Display only; empty for manually created events.
	GroupID string
}

// Valid reports whether the event covers at least one minute of its day.
func (e CalendarEvent) Valid() bool {
	return e.Start >= 0 && e.End <= MinutesPerDay && e.Start < e.End
}

// Duration returns the event length in minutes, or zero for malformed events.
func (e CalendarEvent) Duration() int {
	if !e.Valid() {
		return 0
	}
	return int(e.End - e.Start)
}

// MemberSet is a sorted, duplicate-free list of members.
type MemberSet []MemberID

// Has reports whether id is in the set.
func (s MemberSet) Has(id MemberID) bool {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	return i < len(s) && s[i] == id
}

// Add returns the set with id inserted in order.
func (s MemberSet) Add(id MemberID) MemberSet {
	i := sort.Search(len(s), func(i int) bool { return s[i] >= id })
	if i < len(s) && s[i] == id {
		return s
	}
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = id
	return s
}

// Union returns the set with every member of o added.
func (s MemberSet) Union(o MemberSet) MemberSet {
	for _, id := range o {
		s = s.Add(id)
	}
	return s
}

// Clone returns an independent copy of s.
func (s MemberSet) Clone() MemberSet {
	if s == nil {
		return nil
	}
	out := make(MemberSet, len(s))
	copy(out, s)
	return out
}

// UniqueMembers drops duplicate and empty IDs, keeping first-seen order.
func UniqueMembers(ids []MemberID) []MemberID {
	seen := make(map[MemberID]struct{}, len(ids))
	out := make([]MemberID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
