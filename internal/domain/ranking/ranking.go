// Package ranking turns availability slots into best and alternative
// meeting suggestions.
package ranking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/rendezvous/internal/domain/model"
)

// DefaultLimit is used when Suggest is called with a non-positive limit.
const DefaultLimit = 3

// Suggestion proposes a meeting at [Start, End) inside Slot.
type Suggestion struct {
	Slot   model.AvailabilitySlot
	Start  model.Minute
	End    model.Minute
	Reason string
}

// Suggestions splits candidates into slots everyone is free for and slots
// that need somebody to move a movable event.
type Suggestions struct {
	Best         []Suggestion
	Alternatives []Suggestion
}

// Suggest picks at most limit slots of each kind that fit a meeting of
// duration minutes. Best slots keep date order. Alternatives are ordered by
// fewest conflicting members, then longer slots, then earlier ones.
func Suggest(slots []model.AvailabilitySlot, duration, limit int) Suggestions {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if duration < 0 {
		duration = 0
	}

	var best, alts []model.AvailabilitySlot
	for _, s := range slots {
		if s.Duration() < duration {
			continue
		}
		switch s.Classification {
		case model.Available:
			best = append(best, s)
		case model.Negotiable:
			alts = append(alts, s)
		}
	}

	sort.SliceStable(best, func(i, j int) bool { return earlier(best[i], best[j]) })
	sort.SliceStable(alts, func(i, j int) bool {
		a, b := alts[i], alts[j]
		if len(a.ConflictingMembers) != len(b.ConflictingMembers) {
			return len(a.ConflictingMembers) < len(b.ConflictingMembers)
		}
		if a.Duration() != b.Duration() {
			return a.Duration() > b.Duration()
		}
		return earlier(a, b)
	})

	return Suggestions{
		Best:         suggest(best[:min(limit, len(best))], duration),
		Alternatives: suggest(alts[:min(limit, len(alts))], duration),
	}
}

func suggest(slots []model.AvailabilitySlot, duration int) []Suggestion {
	out := make([]Suggestion, 0, len(slots))
	for _, s := range slots {
		end := s.End
		if duration > 0 {
			end = s.Start + model.Minute(duration)
		}
		out = append(out, Suggestion{Slot: s, Start: s.Start, End: end, Reason: Reason(s)})
	}
	return out
}

// Reason explains a slot to the group.
func Reason(s model.AvailabilitySlot) string {
	if s.Classification != model.Negotiable || len(s.ConflictingMembers) == 0 {
		return "everyone is free"
	}
	names := make([]string, len(s.ConflictingMembers))
	for i, m := range s.ConflictingMembers {
		names[i] = string(m)
	}
	return fmt.Sprintf("%s would need to move something", strings.Join(names, ", "))
}

func earlier(a, b model.AvailabilitySlot) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	return a.Start < b.Start
}
