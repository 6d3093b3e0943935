// Package testutil provides shared helpers for tests that need a real
// storage layer.
package testutil

import (
	"context"
	"testing"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/storage"
)

// SetupTestDB creates a migrated in-memory database and registers cleanup.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	db, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			t.Errorf("failed to close test database: %v", closeErr)
		}
	})

	return db
}

// SeedTransactions stores the given transactions, failing the test on error.
func SeedTransactions(t *testing.T, db *storage.SQLiteStorage, txns ...model.Transaction) {
	t.Helper()

	if err := db.Transactions().Save(context.Background(), txns); err != nil {
		t.Fatalf("failed to seed transactions: %v", err)
	}
}

// SeedPatterns stores the given payee patterns, failing the test on error.
func SeedPatterns(t *testing.T, db *storage.SQLiteStorage, patterns ...model.PayeePattern) {
	t.Helper()

	for i := range patterns {
		if err := db.Patterns().Create(context.Background(), &patterns[i]); err != nil {
			t.Fatalf("failed to seed pattern %q: %v", patterns[i].CanonicalName, err)
		}
	}
}
