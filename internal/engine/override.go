package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
)

// Split is one component of a split correction. Amounts are minor units.
type Split struct {
	AccountCode string
	AccountName string
	Amount      decimal.Decimal
	VATType     model.VATType
}

// Correction is a user override of a categorization. With Splits empty the
// correction replaces the categorization with a single account; otherwise one
// categorization per split is created and the amounts must sum to the
// transaction total within the configured tolerance.
type Correction struct {
	AccountCode      string
	AccountName      string
	Reasoning        string
	VATType          model.VATType
	Splits           []Split
	SuppressLearning bool
}

// UpdateCategorization applies a user correction: it re-enters CATEGORIZED
// with source USER_OVERRIDE, triggers pattern learning unless suppressed, and
// records the correction for accuracy metrics when a prior categorization
// existed.
func (o *Orchestrator) UpdateCategorization(ctx context.Context, transactionID, tenantID string, correction Correction) ([]model.Categorization, error) {
	txn, err := o.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, err)
	}

	if len(correction.Splits) > 0 {
		if err := o.validateSplits(txn, correction.Splits); err != nil {
			return nil, err
		}
	} else if correction.AccountCode == "" {
		return nil, common.NewValidationError("account_code", "a correction needs an account code or splits")
	}

	previous, err := o.categorizations.FindByTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prior categorizations: %w", err)
	}
	for _, prior := range previous {
		if err := o.categorizations.Delete(ctx, prior.ID); err != nil {
			return nil, fmt.Errorf("failed to replace categorization %s: %w", prior.ID, err)
		}
	}

	created := o.buildOverrides(txn, tenantID, correction)
	for i := range created {
		if err := o.categorizations.Create(ctx, &created[i]); err != nil {
			return nil, fmt.Errorf("failed to save categorization: %w", err)
		}
	}

	if err := o.transactions.UpdateStatus(ctx, transactionID, model.StatusCategorized); err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	if o.audit != nil {
		if err := o.audit.LogUpdate(ctx, tenantID, "categorization", transactionID,
			fmt.Sprintf("user override, %d record(s)", len(created))); err != nil {
			slog.Warn("Audit log write failed", "transaction_id", transactionID, "error", err)
		}
	}
	if o.metrics != nil && len(previous) > 0 {
		if err := o.metrics.RecordCorrection(ctx, previous[0], created[0]); err != nil {
			slog.Warn("Accuracy metric write failed", "transaction_id", transactionID, "error", err)
		}
	}

	// Learning happens after the categorization is stored; a conflict aborts
	// the pattern write, never the override itself, and surfaces to the caller.
	if !correction.SuppressLearning {
		learnCode, learnName := correction.AccountCode, correction.AccountName
		if len(correction.Splits) > 0 {
			learnCode, learnName = correction.Splits[0].AccountCode, correction.Splits[0].AccountName
		}
		if _, err := o.learner.LearnFromCorrection(ctx, transactionID, learnCode, learnName, tenantID); err != nil {
			return created, err
		}
	}

	return created, nil
}

func (o *Orchestrator) validateSplits(txn *model.Transaction, splits []Split) error {
	sum := decimal.Zero
	for i, s := range splits {
		if s.AccountCode == "" {
			return common.NewValidationError("splits", fmt.Sprintf("split %d is missing an account code", i))
		}
		sum = sum.Add(s.Amount)
	}

	tolerance := decimal.NewFromInt(o.cfg.SplitToleranceCents)
	diff := o.cfg.Rounding.Round(sum.Sub(txn.Amount).Abs())
	if diff.GreaterThan(tolerance) {
		return common.NewValidationError("splits",
			fmt.Sprintf("split amounts sum to %s but the transaction total is %s (tolerance %s)",
				sum.String(), txn.Amount.String(), tolerance.String()))
	}
	return nil
}

func (o *Orchestrator) buildOverrides(txn *model.Transaction, tenantID string, correction Correction) []model.Categorization {
	reasoning := correction.Reasoning
	if reasoning == "" {
		reasoning = "user correction"
	}

	if len(correction.Splits) == 0 {
		vat := correction.VATType
		if vat == "" {
			vat = model.VATStandard
		}
		return []model.Categorization{{
			ID:            uuid.NewString(),
			TransactionID: txn.ID,
			TenantID:      tenantID,
			AccountCode:   correction.AccountCode,
			AccountName:   correction.AccountName,
			Source:        model.SourceUserOverride,
			Confidence:    100,
			VATType:       vat,
			Reasoning:     reasoning,
		}}
	}

	out := make([]model.Categorization, 0, len(correction.Splits))
	for _, s := range correction.Splits {
		amount := s.Amount
		vat := s.VATType
		if vat == "" {
			vat = model.VATStandard
		}
		out = append(out, model.Categorization{
			ID:            uuid.NewString(),
			TransactionID: txn.ID,
			TenantID:      tenantID,
			AccountCode:   s.AccountCode,
			AccountName:   s.AccountName,
			Source:        model.SourceUserOverride,
			Confidence:    100,
			VATType:       vat,
			IsSplit:       true,
			SplitAmount:   &amount,
			Reasoning:     reasoning,
		})
	}
	return out
}
