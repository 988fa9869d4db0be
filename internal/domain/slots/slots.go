// Package slots collapses an occupancy table into availability slots.
package slots

import "github.com/okian/rendezvous/internal/domain/model"

// Classify returns the classification of a single minute. A rigid conflict
// wins over any number of movable ones.
func Classify(cell model.OccupancyMinute) model.Classification {
	switch {
	case len(cell.Rigid) > 0:
		return model.Blocked
	case len(cell.Movable) > 0:
		return model.Negotiable
	default:
		return model.Available
	}
}

// run is the slot currently being grown by the scan.
type run struct {
	open      bool
	start     model.Minute
	class     model.Classification
	conflicts model.MemberSet
}

// Merge scans occupancy left to right and returns the maximal runs of a
// single non-blocked classification that last at least minDuration minutes.
// occupancy[i] describes minute windowStart+i of date.
//
// Blocked minutes never open a run. Conflicting members of a negotiable run
// are the union over all its minutes.
func Merge(occupancy []model.OccupancyMinute, windowStart model.Minute, date model.Date, minDuration int) []model.AvailabilitySlot {
	out := []model.AvailabilitySlot{}
	var cur run

	closeAt := func(end model.Minute) {
		if cur.open && cur.class != model.Blocked && int(end-cur.start) >= minDuration {
			slot := model.AvailabilitySlot{
				Date:           date,
				Start:          cur.start,
				End:            end,
				Classification: cur.class,
			}
			if cur.class == model.Negotiable {
				slot.ConflictingMembers = cur.conflicts
			}
			out = append(out, slot)
		}
		cur = run{}
	}

	for i, cell := range occupancy {
		minute := windowStart + model.Minute(i)
		class := Classify(cell)

		if cur.open && class == cur.class {
			if class == model.Negotiable {
				cur.conflicts = cur.conflicts.Union(cell.Movable)
			}
			continue
		}

		closeAt(minute)
		if class == model.Blocked {
			continue
		}
		cur = run{open: true, start: minute, class: class}
		if class == model.Negotiable {
			cur.conflicts = cell.Movable.Clone()
		}
	}
	closeAt(windowStart + model.Minute(len(occupancy)))

	return out
}
