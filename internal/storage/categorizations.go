package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
)

// CategorizationStore is the categorization view of SQLiteStorage.
type CategorizationStore struct {
	s *SQLiteStorage
}

// Create persists a categorization outcome.
func (c *CategorizationStore) Create(ctx context.Context, cat *model.Categorization) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategorization(cat); err != nil {
		return err
	}

	_, err := c.s.db.ExecContext(ctx, `
		INSERT INTO categorizations
			(id, transaction_id, tenant_id, account_code, account_name,
			 source, confidence, vat_type, reasoning, is_split, split_amount)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, cat.ID, cat.TransactionID, cat.TenantID, cat.AccountCode, cat.AccountName,
		string(cat.Source), cat.Confidence, string(cat.VATType), cat.Reasoning,
		cat.IsSplit, encodeNullAmount(cat.SplitAmount))
	if err != nil {
		return fmt.Errorf("failed to create categorization: %w", err)
	}
	return nil
}

// FindByTransaction lists all categorizations for one transaction. A split
// correction yields several rows; insertion order is preserved.
func (c *CategorizationStore) FindByTransaction(ctx context.Context, transactionID string) ([]model.Categorization, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return nil, err
	}

	rows, err := c.s.db.QueryContext(ctx, `
		SELECT id, transaction_id, tenant_id, account_code, account_name,
			source, confidence, vat_type, reasoning, is_split, split_amount, created_at
		FROM categorizations
		WHERE transaction_id = ?
		ORDER BY created_at, id
	`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categorizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectCategorizations(rows)
}

// Delete removes a categorization record.
func (c *CategorizationStore) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := c.s.db.ExecContext(ctx,
		`DELETE FROM categorizations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete categorization: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: categorization %s", common.ErrNotFound, id)
	}
	return nil
}

// Review stamps a categorization as human reviewed.
func (c *CategorizationStore) Review(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := c.s.db.ExecContext(ctx,
		`UPDATE categorizations SET reviewed_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark categorization reviewed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: categorization %s", common.ErrNotFound, id)
	}
	return nil
}

// FindSimilarByDescription returns recent categorizations whose transaction
// description contains the given text, newest first. Used to show reviewers
// how similar transactions were handled before.
func (c *CategorizationStore) FindSimilarByDescription(ctx context.Context, tenantID, description string, limit int) ([]model.Categorization, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}
	if err := validateString(description, "description"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := c.s.db.QueryContext(ctx, `
		SELECT c.id, c.transaction_id, c.tenant_id, c.account_code, c.account_name,
			c.source, c.confidence, c.vat_type, c.reasoning, c.is_split, c.split_amount, c.created_at
		FROM categorizations c
		JOIN transactions t ON t.id = c.transaction_id
		WHERE c.tenant_id = ? AND t.description LIKE ?
		ORDER BY c.created_at DESC
		LIMIT ?
	`, tenantID, "%"+description+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar categorizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectCategorizations(rows)
}

func collectCategorizations(rows *sql.Rows) ([]model.Categorization, error) {
	var out []model.Categorization
	for rows.Next() {
		var cat model.Categorization
		var accountCode, accountName, reasoning sql.NullString
		var source, vatType string
		var splitAmount sql.NullString

		if err := rows.Scan(&cat.ID, &cat.TransactionID, &cat.TenantID,
			&accountCode, &accountName, &source, &cat.Confidence,
			&vatType, &reasoning, &cat.IsSplit, &splitAmount, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan categorization: %w", err)
		}

		cat.AccountCode = accountCode.String
		cat.AccountName = accountName.String
		cat.Reasoning = reasoning.String
		cat.Source = model.Source(source)
		cat.VATType = model.VATType(vatType)

		split, err := decodeNullAmount(splitAmount, "split_amount")
		if err != nil {
			return nil, err
		}
		cat.SplitAmount = split

		out = append(out, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categorizations: %w", err)
	}
	return out, nil
}
