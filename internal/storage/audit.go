package storage

import (
	"context"
	"fmt"
)

// AuditLog is the audit trail view of SQLiteStorage. Writes are append-only.
type AuditLog struct {
	s *SQLiteStorage
}

// LogCreate records a create event.
func (a *AuditLog) LogCreate(ctx context.Context, tenantID, entity, entityID, detail string) error {
	return a.log(ctx, tenantID, "CREATE", entity, entityID, detail)
}

// LogUpdate records an update event.
func (a *AuditLog) LogUpdate(ctx context.Context, tenantID, entity, entityID, detail string) error {
	return a.log(ctx, tenantID, "UPDATE", entity, entityID, detail)
}

func (a *AuditLog) log(ctx context.Context, tenantID, action, entity, entityID, detail string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateString(entity, "entity"); err != nil {
		return err
	}
	if err := validateString(entityID, "entityID"); err != nil {
		return err
	}

	_, err := a.s.db.ExecContext(ctx, `
		INSERT INTO audit_log (tenant_id, action, entity, entity_id, detail)
		VALUES (?, ?, ?, ?, ?)
	`, tenantID, action, entity, entityID, detail)
	if err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// AuditEntry is one row of the audit trail.
type AuditEntry struct {
	CreatedAt string
	TenantID  string
	Action    string
	Entity    string
	EntityID  string
	Detail    string
}

// Recent returns the newest audit entries for a tenant.
func (a *AuditLog) Recent(ctx context.Context, tenantID string, limit int) ([]AuditEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.s.db.QueryContext(ctx, `
		SELECT tenant_id, action, entity, entity_id, COALESCE(detail, ''), created_at
		FROM audit_log
		WHERE tenant_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.TenantID, &e.Action, &e.Entity, &e.EntityID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit log: %w", err)
	}
	return out, nil
}
