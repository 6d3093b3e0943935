// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus tracks where a transaction sits in the categorization lifecycle.
type TransactionStatus string

// Transaction status constants.
const (
	StatusPending        TransactionStatus = "PENDING"
	StatusCategorized    TransactionStatus = "CATEGORIZED"
	StatusReviewRequired TransactionStatus = "REVIEW_REQUIRED"
	StatusFailed         TransactionStatus = "FAILED"
)

// Transaction represents a single bank transaction as imported from a statement.
// Amounts are in minor currency units (cents).
type Transaction struct {
	Date        time.Time
	ID          string
	TenantID    string
	Description string // Raw bank statement text
	PayeeName   string // Counterparty hint if the bank supplied one
	Status      TransactionStatus
	Amount      decimal.Decimal
	IsCredit    bool
}
