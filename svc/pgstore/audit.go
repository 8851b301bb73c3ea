package pgstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/gpportal/pkg/audit"
)

var _ audit.Storage = (*Store)(nil)

// StoreEvents inserts events in a single batch.
func (s *Store) StoreEvents(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO audit_events (id, tenant_id, actor_id, action, resource, resource_id, result, error, request_id, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			ev.ID, ev.TenantID, ev.ActorID, ev.Action, nullString(ev.Resource), nullString(ev.ResourceID),
			string(ev.Result), nullString(ev.Error), nullString(ev.RequestID), ev.Metadata, ev.CreatedAt)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store audit events: %w", err)
	}
	return nil
}

// ListEvents returns matching events newest first.
func (s *Store) ListEvents(ctx context.Context, c audit.Criteria) ([]audit.Event, error) {
	var (
		where []string
		args  []any
	)
	if c.TenantID != uuid.Nil {
		args = append(args, c.TenantID)
		where = append(where, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if c.Action != "" {
		args = append(args, c.Action)
		where = append(where, fmt.Sprintf("action = $%d", len(args)))
	}

	query := `SELECT id, tenant_id, actor_id, action, COALESCE(resource, ''), COALESCE(resource_id, ''),
		result, COALESCE(error, ''), COALESCE(request_id, ''), metadata, created_at FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if c.Limit > 0 {
		args = append(args, c.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			ev     audit.Event
			result string
		)
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.ActorID, &ev.Action, &ev.Resource, &ev.ResourceID,
			&result, &ev.Error, &ev.RequestID, &ev.Metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		ev.Result = audit.Result(result)
		events = append(events, ev)
	}
	return events, rows.Err()
}
