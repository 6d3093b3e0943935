package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/testutil"
)

func day(offset int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func txnFixture(id string, offset int, amountCents int64) model.Transaction {
	return model.Transaction{
		ID:          id,
		TenantID:    "tenant-a",
		Date:        day(offset),
		Description: "POS PURCHASE WOOLWORTHS SANDTON",
		PayeeName:   "WOOLWORTHS",
		Amount:      decimal.NewFromInt(amountCents),
	}
}

func TestTransactionSaveAndFind(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Transactions()

	credit := txnFixture("txn-2", 1, 150000)
	credit.IsCredit = true
	credit.Status = model.StatusCategorized

	if err := store.Save(ctx, []model.Transaction{txnFixture("txn-1", 0, -34500), credit}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.FindByID(ctx, "txn-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.TenantID != "tenant-a" || got.PayeeName != "WOOLWORTHS" {
		t.Errorf("unexpected row: %+v", got)
	}
	if !got.Amount.Equal(decimal.NewFromInt(-34500)) {
		t.Errorf("amount = %s, want -34500", got.Amount)
	}
	if got.Status != model.StatusPending {
		t.Errorf("status = %s, want PENDING default", got.Status)
	}
	if !got.Date.Equal(day(0)) {
		t.Errorf("date = %s, want %s", got.Date, day(0))
	}

	got, err = store.FindByID(ctx, "txn-2")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.IsCredit || got.Status != model.StatusCategorized {
		t.Errorf("explicit fields lost: %+v", got)
	}

	t.Run("resave is ignored", func(t *testing.T) {
		changed := txnFixture("txn-1", 0, -34500)
		changed.Description = "SOMETHING ELSE"
		if err := store.Save(ctx, []model.Transaction{changed}); err != nil {
			t.Fatalf("Save: %v", err)
		}
		got, err := store.FindByID(ctx, "txn-1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.Description != "POS PURCHASE WOOLWORTHS SANDTON" {
			t.Errorf("re-import overwrote the row: %q", got.Description)
		}
	})

	t.Run("missing id", func(t *testing.T) {
		_, err := store.FindByID(ctx, "no-such")
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("invalid transaction rejected", func(t *testing.T) {
		err := store.Save(ctx, []model.Transaction{{TenantID: "tenant-a", Date: day(0), Description: "x"}})
		if err == nil {
			t.Error("expected validation error for missing id")
		}
	})
}

func TestTransactionFindByIDs(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	testutil.SeedTransactions(t, db,
		txnFixture("txn-b", 2, -100),
		txnFixture("txn-a", 1, -200),
	)

	got, err := db.Transactions().FindByIDs(ctx, []string{"txn-b", "txn-a", "no-such"})
	if err != nil {
		t.Fatalf("FindByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].ID != "txn-a" || got[1].ID != "txn-b" {
		t.Errorf("expected date order [txn-a txn-b], got [%s %s]", got[0].ID, got[1].ID)
	}

	got, err = db.Transactions().FindByIDs(ctx, nil)
	if err != nil {
		t.Fatalf("FindByIDs(nil): %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for empty input, got %d rows", len(got))
	}
}

func TestTransactionUpdateStatus(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Transactions()

	testutil.SeedTransactions(t, db, txnFixture("txn-1", 0, -500))

	if err := store.UpdateStatus(ctx, "txn-1", model.StatusReviewRequired); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, err := store.FindByID(ctx, "txn-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != model.StatusReviewRequired {
		t.Errorf("status = %s, want REVIEW_REQUIRED", got.Status)
	}

	if err := store.UpdateStatus(ctx, "txn-1", "BOGUS"); !errors.Is(err, storage.ErrInvalidTransaction) {
		t.Errorf("expected ErrInvalidTransaction for unknown status, got %v", err)
	}
	if err := store.UpdateStatus(ctx, "no-such", model.StatusCategorized); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionFindByTenant(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Transactions()

	eskom := txnFixture("txn-3", 10, -60000)
	eskom.Description = "ESKOM PREPAID ELECTRICITY"
	eskom.PayeeName = "ESKOM"
	other := txnFixture("txn-4", 5, -999)
	other.TenantID = "tenant-b"

	testutil.SeedTransactions(t, db,
		txnFixture("txn-1", 0, -100),
		txnFixture("txn-2", 5, -200),
		eskom,
		other,
	)

	t.Run("tenant isolation", func(t *testing.T) {
		got, err := store.FindByTenant(ctx, "tenant-a", service.TransactionFilter{})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(got))
		}
		for _, txn := range got {
			if txn.TenantID != "tenant-a" {
				t.Errorf("foreign tenant row leaked: %s", txn.ID)
			}
		}
	})

	t.Run("date range", func(t *testing.T) {
		start, end := day(1), day(6)
		got, err := store.FindByTenant(ctx, "tenant-a", service.TransactionFilter{
			StartDate: &start,
			EndDate:   &end,
		})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 1 || got[0].ID != "txn-2" {
			t.Errorf("expected [txn-2], got %+v", got)
		}
	})

	t.Run("search matches description and payee", func(t *testing.T) {
		got, err := store.FindByTenant(ctx, "tenant-a", service.TransactionFilter{Search: "ESKOM"})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 1 || got[0].ID != "txn-3" {
			t.Errorf("expected [txn-3], got %+v", got)
		}
	})

	t.Run("limit and offset", func(t *testing.T) {
		got, err := store.FindByTenant(ctx, "tenant-a", service.TransactionFilter{Limit: 2, Offset: 1})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 2 || got[0].ID != "txn-2" {
			t.Errorf("expected page starting at txn-2, got %+v", got)
		}
	})
}
