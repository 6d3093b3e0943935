// Package storage provides the SQLite persistence layer for the
// categorization core.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerling/ledgerling/internal/model"
)

// Validation errors.
var (
	ErrNilContext            = errors.New("context cannot be nil")
	ErrEmptyString           = errors.New("string parameter cannot be empty")
	ErrNilParameter          = errors.New("parameter cannot be nil")
	ErrEmptySlice            = errors.New("slice cannot be empty")
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrInvalidPattern        = errors.New("invalid pattern")
	ErrInvalidCategorization = errors.New("invalid categorization")
	ErrVersionConflict       = errors.New("pattern was modified concurrently")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := validateTransaction(&txn); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction is nil", ErrInvalidTransaction)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidTransaction)
	}
	if txn.TenantID == "" {
		return fmt.Errorf("%w: missing tenant id", ErrInvalidTransaction)
	}
	if txn.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	return nil
}

// validatePattern validates a payee pattern before persistence.
func validatePattern(pattern *model.PayeePattern) error {
	if pattern == nil {
		return fmt.Errorf("%w: pattern is nil", ErrInvalidPattern)
	}
	if pattern.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPattern)
	}
	if err := pattern.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return nil
}

// validateCategorization validates a categorization before persistence.
func validateCategorization(cat *model.Categorization) error {
	if cat == nil {
		return fmt.Errorf("%w: categorization is nil", ErrInvalidCategorization)
	}
	if cat.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCategorization)
	}
	if err := cat.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCategorization, err)
	}
	return nil
}
