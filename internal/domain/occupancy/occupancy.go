// Package occupancy builds the per-minute busy table for one day of a group.
package occupancy

import "github.com/okian/rendezvous/internal/domain/model"

// Build returns one OccupancyMinute per minute of [windowStart, windowEnd).
// Each event is clipped to the window and its owner added to the rigid or
// movable set of every covered minute. Events outside the window and
// malformed events (start >= end) contribute nothing. All events are assumed
// to fall on the same date; Build does not look at Date.
//
// An empty or inverted window yields an empty table.
func Build(events []model.CalendarEvent, windowStart, windowEnd model.Minute) []model.OccupancyMinute {
	if windowStart < 0 {
		windowStart = 0
	}
	if windowEnd > model.MinutesPerDay {
		windowEnd = model.MinutesPerDay
	}
	if windowEnd <= windowStart {
		return []model.OccupancyMinute{}
	}

	table := make([]model.OccupancyMinute, windowEnd-windowStart)
	for i := range events {
		ev := &events[i]
		if ev.Start >= ev.End {
			continue
		}
		start, end := max(ev.Start, windowStart), min(ev.End, windowEnd)
		for m := start; m < end; m++ {
			cell := &table[m-windowStart]
			if ev.Rigidity == model.Movable {
				cell.Movable = cell.Movable.Add(ev.Owner)
			} else {
				cell.Rigid = cell.Rigid.Add(ev.Owner)
			}
		}
	}
	return table
}
