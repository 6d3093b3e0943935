package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/testutil"
)

func TestNewSQLiteStorage(t *testing.T) {
	t.Run("creates the parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "ledgerling.db")
		db, err := storage.NewSQLiteStorage(path)
		if err != nil {
			t.Fatalf("NewSQLiteStorage: %v", err)
		}
		defer func() { _ = db.Close() }()

		if err := db.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
	})

	t.Run("empty path rejected", func(t *testing.T) {
		if _, err := storage.NewSQLiteStorage(""); err == nil {
			t.Error("expected an error for an empty path")
		}
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// SetupTestDB already migrated; a second run must be a no-op.
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}

	// The schema is usable after the repeat run.
	testutil.SeedTransactions(t, db, txnFixture("txn-1", 0, -100))
	if _, err := db.Transactions().FindByID(context.Background(), "txn-1"); err != nil {
		t.Errorf("FindByID after re-migrate: %v", err)
	}
}
