package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

// PatternStore is the payee pattern view of SQLiteStorage.
type PatternStore struct {
	s *SQLiteStorage
}

// Create inserts a new payee pattern with its aliases. The canonical name is
// unique per tenant; a duplicate surfaces as ErrDuplicateEntry.
func (p *PatternStore) Create(ctx context.Context, pattern *model.PayeePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if pattern != nil && pattern.ID == "" {
		pattern.ID = uuid.NewString()
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	tx, err := p.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if pattern.Version == 0 {
		pattern.Version = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payee_patterns
			(id, tenant_id, canonical_name, account_code, account_name,
			 confidence_boost, match_count, is_recurring,
			 expected_amount, amount_tolerance, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pattern.ID, pattern.TenantID, pattern.CanonicalName,
		pattern.AccountCode, pattern.AccountName,
		pattern.ConfidenceBoost, pattern.MatchCount, pattern.IsRecurring,
		encodeNullAmount(pattern.ExpectedAmount), encodeNullAmount(pattern.AmountTolerance),
		pattern.Version)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("%w: pattern %q for tenant %s",
				common.ErrDuplicateEntry, pattern.CanonicalName, pattern.TenantID)
		}
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	if err := replaceAliases(ctx, tx, pattern.ID, pattern.Aliases); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern: %w", err)
	}

	p.s.invalidatePatternCache()
	return nil
}

// Update rewrites a pattern and its aliases. The pattern's Version must match
// the stored row; a mismatch means a concurrent writer won and the caller
// should re-read. On success the Version field is bumped in place.
func (p *PatternStore) Update(ctx context.Context, pattern *model.PayeePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}

	tx, err := p.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE payee_patterns
		SET canonical_name = ?, account_code = ?, account_name = ?,
			confidence_boost = ?, match_count = ?, is_recurring = ?,
			expected_amount = ?, amount_tolerance = ?,
			version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ? AND version = ?
	`, pattern.CanonicalName, pattern.AccountCode, pattern.AccountName,
		pattern.ConfidenceBoost, pattern.MatchCount, pattern.IsRecurring,
		encodeNullAmount(pattern.ExpectedAmount), encodeNullAmount(pattern.AmountTolerance),
		pattern.ID, pattern.TenantID, pattern.Version)
	if err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		// Distinguish a missing row from a stale version.
		var exists int
		checkErr := tx.QueryRowContext(ctx,
			`SELECT 1 FROM payee_patterns WHERE id = ? AND tenant_id = ?`,
			pattern.ID, pattern.TenantID).Scan(&exists)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return fmt.Errorf("%w: pattern %s", common.ErrNotFound, pattern.ID)
		}
		if checkErr != nil {
			return fmt.Errorf("failed to check pattern existence: %w", checkErr)
		}
		return fmt.Errorf("%w: pattern %s", ErrVersionConflict, pattern.ID)
	}

	if err := replaceAliases(ctx, tx, pattern.ID, pattern.Aliases); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit pattern update: %w", err)
	}

	pattern.Version++
	p.s.invalidatePatternCache()
	return nil
}

// FindByID retrieves one pattern with its aliases.
func (p *PatternStore) FindByID(ctx context.Context, tenantID, id string) (*model.PayeePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	return p.findPattern(ctx, `id = ? AND tenant_id = ?`, id, tenantID)
}

// FindByPayeeName retrieves the pattern whose canonical name matches. The
// lookup is case-insensitive; canonical names are stored uppercase.
func (p *PatternStore) FindByPayeeName(ctx context.Context, tenantID, canonicalName string) (*model.PayeePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(canonicalName, "canonicalName"); err != nil {
		return nil, err
	}

	name := strings.ToUpper(strings.TrimSpace(canonicalName))
	if cached := p.s.getCachedPattern(tenantID, name); cached != nil {
		return cached, nil
	}

	found, err := p.findPattern(ctx, `tenant_id = ? AND UPPER(canonical_name) = ?`, tenantID, name)
	if err != nil {
		return nil, err
	}
	p.s.cachePattern(found)
	return found, nil
}

func (p *PatternStore) findPattern(ctx context.Context, where string, args ...any) (*model.PayeePattern, error) {
	row := p.s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, canonical_name, account_code, account_name,
			confidence_boost, match_count, is_recurring,
			expected_amount, amount_tolerance, version, created_at, updated_at
		FROM payee_patterns
		WHERE `+where, args...)

	pattern, err := scanPattern(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: pattern", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	aliases, err := loadAliases(ctx, p.s.db, pattern.ID)
	if err != nil {
		return nil, err
	}
	pattern.Aliases = aliases
	return pattern, nil
}

// FindByTenant lists a tenant's patterns with optional filtering, ordered by
// match count so the most established patterns come first.
func (p *PatternStore) FindByTenant(ctx context.Context, tenantID string, filter service.PatternFilter) ([]model.PayeePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, tenant_id, canonical_name, account_code, account_name,
			confidence_boost, match_count, is_recurring,
			expected_amount, amount_tolerance, version, created_at, updated_at
		FROM payee_patterns
		WHERE tenant_id = ?`)
	args := []any{tenantID}

	if filter.Search != "" {
		query.WriteString(" AND canonical_name LIKE ?")
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
	}
	if filter.RecurringOnly {
		query.WriteString(" AND is_recurring = 1")
	}

	query.WriteString(" ORDER BY match_count DESC, canonical_name")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query.WriteString(" OFFSET ?")
			args = append(args, filter.Offset)
		}
	}

	rows, err := p.s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.PayeePattern
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		out = append(out, *pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patterns: %w", err)
	}

	for i := range out {
		aliases, err := loadAliases(ctx, p.s.db, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Aliases = aliases
	}

	return out, nil
}

// IncrementMatchCount bumps a pattern's match counter without touching the
// rest of the row.
func (p *PatternStore) IncrementMatchCount(ctx context.Context, tenantID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := p.s.db.ExecContext(ctx, `
		UPDATE payee_patterns
		SET match_count = match_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND tenant_id = ?
	`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to increment match count: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pattern %s", common.ErrNotFound, id)
	}

	p.s.invalidatePatternCache()
	return nil
}

// Delete removes a pattern and, via cascade, its aliases.
func (p *PatternStore) Delete(ctx context.Context, tenantID, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := p.s.db.ExecContext(ctx,
		`DELETE FROM payee_patterns WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete pattern: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: pattern %s", common.ErrNotFound, id)
	}

	p.s.invalidatePatternCache()
	return nil
}

func replaceAliases(ctx context.Context, q queryable, patternID string, aliases []string) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM pattern_aliases WHERE pattern_id = ?`, patternID); err != nil {
		return fmt.Errorf("failed to clear aliases: %w", err)
	}
	for i, alias := range aliases {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO pattern_aliases (pattern_id, alias, position)
			VALUES (?, ?, ?)
		`, patternID, alias, i); err != nil {
			return fmt.Errorf("failed to save alias %q: %w", alias, err)
		}
	}
	return nil
}

func loadAliases(ctx context.Context, q queryable, patternID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT alias FROM pattern_aliases
		WHERE pattern_id = ?
		ORDER BY position
	`, patternID)
	if err != nil {
		return nil, fmt.Errorf("failed to query aliases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var aliases []string
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, fmt.Errorf("failed to scan alias: %w", err)
		}
		aliases = append(aliases, alias)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate aliases: %w", err)
	}
	return aliases, nil
}

func scanPattern(row rowScanner) (*model.PayeePattern, error) {
	var p model.PayeePattern
	var accountCode, accountName sql.NullString
	var expected, tolerance sql.NullString

	if err := row.Scan(&p.ID, &p.TenantID, &p.CanonicalName,
		&accountCode, &accountName,
		&p.ConfidenceBoost, &p.MatchCount, &p.IsRecurring,
		&expected, &tolerance, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.AccountCode = accountCode.String
	p.AccountName = accountName.String

	var err error
	if p.ExpectedAmount, err = decodeNullAmount(expected, "expected_amount"); err != nil {
		return nil, err
	}
	if p.AmountTolerance, err = decodeNullAmount(tolerance, "amount_tolerance"); err != nil {
		return nil, err
	}

	return &p, nil
}
