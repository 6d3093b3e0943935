package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Confidence boost bounds for payee patterns. A pattern's boost is added to the
// AI confidence when the pattern matches, so these stay small relative to the
// 0-100 confidence scale.
const (
	MinConfidenceBoost  = 0.0
	BaseConfidenceBoost = 10.0
	MaxConfidenceBoost  = 25.0
	ConfidenceIncrement = 2.0
	FailurePenalty      = 5.0
)

// PayeePattern maps a payee identity to a default ledger account for one tenant.
// The canonical name is unique per tenant; aliases are alternate spellings that
// resolve to it.
type PayeePattern struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpectedAmount  *decimal.Decimal
	AmountTolerance *decimal.Decimal
	ID              string
	TenantID        string
	CanonicalName   string // Normalized uppercase
	AccountCode     string
	AccountName     string
	Aliases         []string
	ConfidenceBoost float64
	MatchCount      int
	Version         int
	IsRecurring     bool
}

// Validate ensures the pattern has valid data.
func (p *PayeePattern) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if strings.TrimSpace(p.CanonicalName) == "" {
		return fmt.Errorf("canonical name is required")
	}
	if p.ConfidenceBoost < MinConfidenceBoost || p.ConfidenceBoost > MaxConfidenceBoost {
		return fmt.Errorf("confidence boost must be between %.0f and %.0f, got %.2f",
			MinConfidenceBoost, MaxConfidenceBoost, p.ConfidenceBoost)
	}
	if p.MatchCount < 0 {
		return fmt.Errorf("match count cannot be negative")
	}
	if p.IsRecurring && p.ExpectedAmount == nil {
		return fmt.Errorf("recurring patterns must have an expected amount")
	}

	seen := make(map[string]bool, len(p.Aliases))
	canonical := strings.ToUpper(strings.TrimSpace(p.CanonicalName))
	for _, alias := range p.Aliases {
		key := strings.ToUpper(strings.TrimSpace(alias))
		if key == "" {
			return fmt.Errorf("aliases cannot be empty")
		}
		if key == canonical {
			return fmt.Errorf("alias %q duplicates the canonical name", alias)
		}
		if seen[key] {
			return fmt.Errorf("duplicate alias %q", alias)
		}
		seen[key] = true
	}
	return nil
}

// HasAlias reports whether the pattern carries the alias (case-insensitive).
func (p *PayeePattern) HasAlias(alias string) bool {
	key := strings.ToUpper(strings.TrimSpace(alias))
	for _, a := range p.Aliases {
		if strings.ToUpper(strings.TrimSpace(a)) == key {
			return true
		}
	}
	return false
}

// MatchesAmount reports whether amount falls within the pattern's recurring
// expectation. Patterns without an expectation never match.
func (p *PayeePattern) MatchesAmount(amount decimal.Decimal) bool {
	if !p.IsRecurring || p.ExpectedAmount == nil {
		return false
	}
	tolerance := decimal.Zero
	if p.AmountTolerance != nil {
		tolerance = *p.AmountTolerance
	}
	diff := amount.Abs().Sub(p.ExpectedAmount.Abs()).Abs()
	return diff.LessThanOrEqual(tolerance)
}
