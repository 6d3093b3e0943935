package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

// TransactionStore is the transaction-facing view of SQLiteStorage.
type TransactionStore struct {
	s *SQLiteStorage
}

// Save inserts imported transactions, skipping ids that already exist so
// re-running an import is harmless.
func (t *TransactionStore) Save(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	tx, err := t.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, txn := range transactions {
		status := txn.Status
		if status == "" {
			status = model.StatusPending
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO transactions
				(id, tenant_id, date, description, payee_name, amount, is_credit, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, txn.ID, txn.TenantID, txn.Date, txn.Description, txn.PayeeName,
			txn.Amount.String(), txn.IsCredit, string(status)); err != nil {
			return fmt.Errorf("failed to save transaction %s: %w", txn.ID, err)
		}
	}

	return tx.Commit()
}

// FindByID retrieves a transaction by id.
func (t *TransactionStore) FindByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := t.s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, date, description, payee_name, amount, is_credit, status
		FROM transactions
		WHERE id = ?
	`, id)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// FindByIDs retrieves the transactions matching ids. Missing ids are simply
// absent from the result; callers that care compare lengths.
func (t *TransactionStore) FindByIDs(ctx context.Context, ids []string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := t.s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, tenant_id, date, description, payee_name, amount, is_credit, status
		FROM transactions
		WHERE id IN (%s)
		ORDER BY date, id
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

// UpdateStatus transitions a transaction's lifecycle status.
func (t *TransactionStore) UpdateStatus(ctx context.Context, id string, status model.TransactionStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	switch status {
	case model.StatusPending, model.StatusCategorized, model.StatusReviewRequired, model.StatusFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransaction, status)
	}

	result, err := t.s.db.ExecContext(ctx,
		`UPDATE transactions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: transaction %s", common.ErrNotFound, id)
	}
	return nil
}

// FindByTenant retrieves a tenant's transactions with optional filtering.
func (t *TransactionStore) FindByTenant(ctx context.Context, tenantID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	query := strings.Builder{}
	query.WriteString(`
		SELECT id, tenant_id, date, description, payee_name, amount, is_credit, status
		FROM transactions
		WHERE tenant_id = ?`)
	args := []any{tenantID}

	if filter.StartDate != nil {
		query.WriteString(" AND date >= ?")
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query.WriteString(" AND date <= ?")
		args = append(args, *filter.EndDate)
	}
	if filter.Search != "" {
		query.WriteString(" AND (description LIKE ? OR payee_name LIKE ?)")
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}

	query.WriteString(" ORDER BY date, id")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query.WriteString(" OFFSET ?")
			args = append(args, filter.Offset)
		}
	}

	rows, err := t.s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTransactions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var payee sql.NullString
	var amount string
	var status string

	if err := row.Scan(&txn.ID, &txn.TenantID, &txn.Date, &txn.Description,
		&payee, &amount, &txn.IsCredit, &status); err != nil {
		return nil, err
	}

	txn.PayeeName = payee.String
	txn.Status = model.TransactionStatus(status)

	d, err := decodeAmount(amount, "amount")
	if err != nil {
		return nil, err
	}
	txn.Amount = d

	return &txn, nil
}

func collectTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	var out []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		out = append(out, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}
