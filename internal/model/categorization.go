package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Source indicates how a categorization was produced.
type Source string

// Categorization source constants.
const (
	SourceRuleBased    Source = "RULE_BASED"
	SourceAIAuto       Source = "AI_AUTO"
	SourceAISuggested  Source = "AI_SUGGESTED"
	SourceUserOverride Source = "USER_OVERRIDE"
)

// ParseSource validates a raw string against the closed set of sources.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceRuleBased, SourceAIAuto, SourceAISuggested, SourceUserOverride:
		return Source(s), nil
	}
	return "", fmt.Errorf("unknown categorization source %q", s)
}

// VATType classifies a transaction for VAT purposes.
type VATType string

// VAT classification constants.
const (
	VATStandard  VATType = "STANDARD"
	VATZeroRated VATType = "ZERO_RATED"
	VATExempt    VATType = "EXEMPT"
	VATNone      VATType = "NONE"
)

// Categorization is the outcome of categorizing a single transaction.
// A split correction produces one Categorization per component.
type Categorization struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	TenantID      string
	AccountCode   string
	AccountName   string
	Source        Source
	Reasoning     string
	VATType       VATType
	SplitAmount   *decimal.Decimal
	Confidence    float64 // 0-100
	IsSplit       bool
}

// Validate ensures the categorization has valid data.
func (c *Categorization) Validate() error {
	if c.TransactionID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if c.TenantID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if _, err := ParseSource(string(c.Source)); err != nil {
		return err
	}
	if c.Confidence < 0 || c.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100, got %.2f", c.Confidence)
	}
	if c.IsSplit && c.SplitAmount == nil {
		return fmt.Errorf("split categorizations must carry a split amount")
	}
	return nil
}
