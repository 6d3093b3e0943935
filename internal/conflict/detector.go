// Package conflict flags corrections that contradict an established pattern.
// The learner consults a detector before writing; a reported conflict aborts
// the write and surfaces the payload instead of silently overwriting.
package conflict

import (
	"context"
	"errors"
	"fmt"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/normalize"
	"github.com/ledgerling/ledgerling/internal/service"
)

// Confidence thresholds above which an existing pattern counts as established
// enough to defend. A freshly created pattern (one correction, base boost)
// can be overridden freely; one with corroborating history cannot.
const (
	establishedMatchCount = 3
	establishedBoost      = model.BaseConfidenceBoost + 2*model.ConfidenceIncrement
)

// Detector is the default store-backed ConflictDetector.
type Detector struct {
	patterns service.PatternStore
}

// NewDetector creates a detector over the given pattern store.
func NewDetector(patterns service.PatternStore) *Detector {
	return &Detector{patterns: patterns}
}

// DetectConflict reports a conflict when the payee already maps to a
// different account with high confidence. A nil result means the correction
// is safe to apply.
func (d *Detector) DetectConflict(ctx context.Context, tenantID, payeeName, accountCode, accountName string) (*service.Conflict, error) {
	pattern, err := d.patterns.FindByPayeeName(ctx, tenantID, normalize.Payee(payeeName))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up pattern: %w", err)
	}

	if pattern.AccountCode == "" || pattern.AccountCode == accountCode {
		return nil, nil
	}
	if pattern.MatchCount < establishedMatchCount && pattern.ConfidenceBoost < establishedBoost {
		return nil, nil
	}

	return &service.Conflict{
		PayeeName:           pattern.CanonicalName,
		ExistingAccountCode: pattern.AccountCode,
		ExistingAccountName: pattern.AccountName,
		ProposedAccountCode: accountCode,
		ProposedAccountName: accountName,
		MatchCount:          pattern.MatchCount,
		ConfidenceBoost:     pattern.ConfidenceBoost,
	}, nil
}
