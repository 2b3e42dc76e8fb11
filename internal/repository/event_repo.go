package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"controlling_roaster/internal/models"

	"github.com/google/uuid"
)

// Timestamps are stored as fixed-width UTC text so that string order is
// time order.
const eventTimeLayout = "2006-01-02 15:04:05.000"

var errEmptyEventType = errors.New("event type is empty")

func formatEventTime(t time.Time) string { return t.UTC().Format(eventTimeLayout) }

func parseEventTime(s string) (time.Time, error) {
	return time.ParseInLocation(eventTimeLayout, s, time.UTC)
}

// EventSQLite is the append-only audit log.
type EventSQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventSQLite(db *sql.DB) *EventSQLite { return &EventSQLite{db: db, now: time.Now} }

const (
	insertEventSQL = `INSERT INTO roaster_events (id, occurred_at, type, description, metadata) VALUES (?, ?, ?, ?, ?)`
	selectEventSQL = `SELECT id, occurred_at, type, description, metadata FROM roaster_events`
)

// Append stores e. A missing id or time is filled in; the type is stored
// upper-case.
func (r *EventSQLite) Append(ctx context.Context, e models.RoasterEvent) error {
	typ := strings.ToUpper(strings.TrimSpace(e.Type))
	if typ == "" {
		return errEmptyEventType
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}

	var meta sql.NullString
	if e.Metadata != nil {
		b, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode %s metadata: %w", typ, err)
		}
		meta = sql.NullString{String: string(b), Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, insertEventSQL,
		e.EventID, formatEventTime(e.OccurredAt), typ, e.Description, meta,
	); err != nil {
		return fmt.Errorf("insert %s event: %w", typ, err)
	}
	return nil
}

// eventQuery accumulates the WHERE clause of a List call.
type eventQuery struct {
	conds []string
	args  []any
}

func (q *eventQuery) where(cond string, arg any) {
	q.conds = append(q.conds, cond)
	q.args = append(q.args, arg)
}

func (q *eventQuery) sql() string {
	s := selectEventSQL
	if len(q.conds) > 0 {
		s += " WHERE " + strings.Join(q.conds, " AND ")
	}
	return s + " ORDER BY occurred_at ASC, rowid ASC"
}

// List returns events with from <= occurred_at <= to and the given type,
// oldest first. Zero bounds and an empty type do not filter.
func (r *EventSQLite) List(ctx context.Context, from, to time.Time, typ string) ([]models.RoasterEvent, error) {
	var q eventQuery
	if !from.IsZero() {
		q.where("occurred_at >= ?", formatEventTime(from))
	}
	if !to.IsZero() {
		q.where("occurred_at <= ?", formatEventTime(to))
	}
	if typ = strings.ToUpper(strings.TrimSpace(typ)); typ != "" {
		q.where("type = ?", typ)
	}

	rows, err := r.db.QueryContext(ctx, q.sql(), q.args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []models.RoasterEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func scanEvent(rows *sql.Rows) (models.RoasterEvent, error) {
	var (
		ev   models.RoasterEvent
		at   string
		meta sql.NullString
	)
	if err := rows.Scan(&ev.EventID, &at, &ev.Type, &ev.Description, &meta); err != nil {
		return ev, fmt.Errorf("scan event: %w", err)
	}
	t, err := parseEventTime(at)
	if err != nil {
		return ev, fmt.Errorf("event %s occurred_at: %w", ev.EventID, err)
	}
	ev.OccurredAt = t

	if meta.Valid && meta.String != "" {
		var v any
		if json.Unmarshal([]byte(meta.String), &v) == nil {
			ev.Metadata = v
		} else {
			ev.Metadata = meta.String
		}
	}
	return ev, nil
}
