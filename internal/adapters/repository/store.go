// Package repository holds the event stores the engine reads calendars from
// and writes materialized meetings to.
package repository

import (
	"context"

	"github.com/okian/rendezvous/internal/domain/model"
)

// EventReader returns every event of a member whose date falls in the
// inclusive range [from, to], with rigidity already resolved.
type EventReader interface {
	GetEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error)
}

// EventWriter persists one event and returns its new identifier.
// The ID field of ev is ignored.
type EventWriter interface {
	CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error)
}

// Store provides read/write access to member calendars.
type Store interface {
	EventReader
	EventWriter

	// Count returns the number of stored events.
	Count(ctx context.Context) (int, error)
	// Close releases resources held by the store.
	Close() error
}

// Compile-time interface checks.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

func validateNew(ev model.CalendarEvent) error {
	switch {
	case ev.Owner == "":
		return errorf(ErrInvalidEvent, "missing owner")
	case ev.Date.IsZero():
		return errorf(ErrInvalidEvent, "missing date")
	case !ev.Valid():
		return errorf(ErrInvalidEvent, "time %s-%s is not a valid interval", ev.Start, ev.End)
	}
	return nil
}

func validateRange(from, to model.Date) error {
	if from.IsZero() || to.IsZero() {
		return errorf(ErrInvalidRange, "from and to are required")
	}
	return nil
}
