package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "stagehand/pkg/platform/audit"
	txcontext "stagehand/pkg/platform/tx"
)

// Store persists audit events in the append-only audit_events table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts an event. Idempotent on event id so redelivery after a partial
// failure does not duplicate rows.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO audit_events (
			id, category, occurred_at, entity_kind, entity_id, event_kind,
			before_state, after_state, actor, application, session_id, request_id, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Category),
		event.Timestamp,
		string(event.EntityKind),
		event.EntityID,
		string(event.Kind),
		nullJSON(event.BeforeState),
		nullJSON(event.AfterState),
		event.Actor,
		event.Application,
		event.SessionID,
		event.RequestID,
		event.Reason,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns events matching filter, most recent first.
func (s *Store) List(ctx context.Context, filter audit.Filter) ([]audit.Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, category, occurred_at, entity_kind, entity_id, event_kind,
			   before_state, after_state, actor, application, session_id, request_id, reason
		FROM audit_events
		WHERE ($1 = '' OR entity_kind = $1)
		  AND ($2 = '' OR entity_id = $2)
		ORDER BY occurred_at DESC, id
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, string(filter.EntityKind), filter.EntityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			e                       audit.Event
			category, entity, kind  string
			beforeState, afterState []byte
		)
		if err := rows.Scan(
			&e.ID, &category, &e.Timestamp, &entity, &e.EntityID, &kind,
			&beforeState, &afterState, &e.Actor, &e.Application, &e.SessionID, &e.RequestID, &e.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Category = audit.EventCategory(category)
		e.EntityKind = audit.EntityKind(entity)
		e.Kind = audit.EventKind(kind)
		e.BeforeState = beforeState
		e.AfterState = afterState
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}
