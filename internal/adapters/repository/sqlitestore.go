package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/rendezvous/internal/domain/model"
	"github.com/okian/rendezvous/pkg/metrics"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists calendars in a WAL-mode SQLite database. Rigidity is
// stored as the calendar's own "fixed" flag.
type SQLiteStore struct {
	db   *sql.DB
	opts options
}

// NewSQLiteStore opens (or creates) the database at path and migrates the schema.
func NewSQLiteStore(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{db: db, opts: o}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id           TEXT PRIMARY KEY,
		owner        TEXT NOT NULL,
		date         TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute   INTEGER NOT NULL,
		fixed        INTEGER NOT NULL DEFAULT 1,
		title        TEXT NOT NULL DEFAULT '',
		location     TEXT NOT NULL DEFAULT '',
		group_id     TEXT NOT NULL DEFAULT '',
		created_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_owner_date ON events(owner, date, start_minute);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// GetEvents implements EventReader. Dates are stored as YYYY-MM-DD so the
// range filter is a string comparison.
func (s *SQLiteStore) GetEvents(ctx context.Context, member model.MemberID, from, to model.Date) ([]model.CalendarEvent, error) {
	defer observe("get_events", time.Now())
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	var out []model.CalendarEvent
	err := retryOp(ctx, s.opts.retry, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT id, owner, date, start_minute, end_minute, fixed, title, location, group_id
			 FROM events WHERE owner = ? AND date >= ? AND date <= ?
			 ORDER BY date, start_minute, created_at`,
			string(member), from.String(), to.String(),
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]model.CalendarEvent, 0)
		for rows.Next() {
			ev, err := scanEvent(rows)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return rows.Err()
	})
	if err != nil {
		metrics.RecordStoreError("get_events")
		return nil, fmt.Errorf("get events for %s: %w", member, err)
	}
	return out, nil
}

// CreateEvent implements EventWriter.
func (s *SQLiteStore) CreateEvent(ctx context.Context, ev model.CalendarEvent) (string, error) {
	defer observe("create_event", time.Now())
	if err := validateNew(ev); err != nil {
		metrics.RecordStoreError("create_event")
		return "", err
	}

	id := s.opts.newID()
	now := s.opts.now().UTC().Format(time.RFC3339Nano)
	err := retryOp(ctx, s.opts.retry, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO events (id, owner, date, start_minute, end_minute, fixed, title, location, group_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, string(ev.Owner), ev.Date.String(), int(ev.Start), int(ev.End),
			ev.Rigidity == model.Rigid, ev.Title, ev.Location, ev.GroupID, now,
		)
		return err
	})
	if err != nil {
		metrics.RecordStoreError("create_event")
		return "", fmt.Errorf("create event for %s: %w", ev.Owner, err)
	}
	return id, nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (model.CalendarEvent, error) {
	var (
		ev         model.CalendarEvent
		owner      string
		date       string
		start, end int
		fixed      bool
	)
	if err := sc.Scan(&ev.ID, &owner, &date, &start, &end, &fixed, &ev.Title, &ev.Location, &ev.GroupID); err != nil {
		return ev, err
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return ev, fmt.Errorf("event %s: %w", ev.ID, err)
	}
	ev.Owner = model.MemberID(owner)
	ev.Date = d
	ev.Start = model.Minute(start)
	ev.End = model.Minute(end)
	ev.Rigidity = model.RigidityFromFixed(fixed)
	return ev, nil
}
