package storage

import (
	"context"
	"fmt"

	"github.com/ledgerling/ledgerling/internal/model"
)

// AccuracyMetrics is the accuracy tracking view of SQLiteStorage. It records
// categorization outcomes and later corrections so accuracy per source can be
// reported over time.
type AccuracyMetrics struct {
	s *SQLiteStorage
}

// RecordCategorization records an automated categorization outcome.
func (m *AccuracyMetrics) RecordCategorization(ctx context.Context, cat model.Categorization) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategorization(&cat); err != nil {
		return err
	}

	_, err := m.s.db.ExecContext(ctx, `
		INSERT INTO accuracy_metrics
			(tenant_id, transaction_id, event, source, account_code, confidence)
		VALUES (?, ?, 'CATEGORIZED', ?, ?, ?)
	`, cat.TenantID, cat.TransactionID, string(cat.Source), cat.AccountCode, cat.Confidence)
	if err != nil {
		return fmt.Errorf("failed to record categorization metric: %w", err)
	}
	return nil
}

// RecordCorrection records a user correction against the prior outcome. A
// correction that lands on the same account still counts; the report divides
// same-account corrections by total to estimate accuracy.
func (m *AccuracyMetrics) RecordCorrection(ctx context.Context, previous, corrected model.Categorization) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategorization(&corrected); err != nil {
		return err
	}

	_, err := m.s.db.ExecContext(ctx, `
		INSERT INTO accuracy_metrics
			(tenant_id, transaction_id, event, source, account_code, previous_account_code, confidence)
		VALUES (?, ?, 'CORRECTED', ?, ?, ?, ?)
	`, corrected.TenantID, corrected.TransactionID, string(previous.Source),
		corrected.AccountCode, previous.AccountCode, previous.Confidence)
	if err != nil {
		return fmt.Errorf("failed to record correction metric: %w", err)
	}
	return nil
}

// SourceAccuracy summarizes outcomes for one categorization source.
type SourceAccuracy struct {
	Source       string
	Categorized  int
	Corrected    int
	AccuracyRate float64
}

// Report aggregates accuracy per source for a tenant. The rate is the share
// of categorizations that were never corrected to a different account.
func (m *AccuracyMetrics) Report(ctx context.Context, tenantID string) ([]SourceAccuracy, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	rows, err := m.s.db.QueryContext(ctx, `
		SELECT source,
			SUM(CASE WHEN event = 'CATEGORIZED' THEN 1 ELSE 0 END),
			SUM(CASE WHEN event = 'CORRECTED'
				AND COALESCE(previous_account_code, '') != COALESCE(account_code, '')
				THEN 1 ELSE 0 END)
		FROM accuracy_metrics
		WHERE tenant_id = ?
		GROUP BY source
		ORDER BY source
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accuracy metrics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []SourceAccuracy
	for rows.Next() {
		var sa SourceAccuracy
		if err := rows.Scan(&sa.Source, &sa.Categorized, &sa.Corrected); err != nil {
			return nil, fmt.Errorf("failed to scan accuracy row: %w", err)
		}
		if sa.Categorized > 0 {
			sa.AccuracyRate = float64(sa.Categorized-sa.Corrected) / float64(sa.Categorized)
			if sa.AccuracyRate < 0 {
				sa.AccuracyRate = 0
			}
		}
		out = append(out, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accuracy rows: %w", err)
	}
	return out, nil
}
