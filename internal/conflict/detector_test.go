package conflict

import (
	"context"
	"testing"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/testutil"
)

func seedDetector(t *testing.T, patterns ...model.PayeePattern) (*Detector, *storage.SQLiteStorage) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.SeedPatterns(t, db, patterns...)
	return NewDetector(db.Patterns()), db
}

func TestDetectConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown payee is safe", func(t *testing.T) {
		d, _ := seedDetector(t)

		c, err := d.DetectConflict(ctx, "tenant-a", "BRAND NEW VENDOR", "6400", "Tuition")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c != nil {
			t.Errorf("expected no conflict, got %+v", c)
		}
	})

	t.Run("same account is safe", func(t *testing.T) {
		d, _ := seedDetector(t, model.PayeePattern{
			ID:              "pat-1",
			TenantID:        "tenant-a",
			CanonicalName:   "WOOLWORTHS",
			AccountCode:     "5100",
			MatchCount:      8,
			ConfidenceBoost: 24,
		})

		c, err := d.DetectConflict(ctx, "tenant-a", "Woolworths Sandton", "5100", "Groceries")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c != nil {
			t.Errorf("expected no conflict for matching account, got %+v", c)
		}
	})

	t.Run("pattern without an account is safe", func(t *testing.T) {
		d, _ := seedDetector(t, model.PayeePattern{
			ID:              "pat-1",
			TenantID:        "tenant-a",
			CanonicalName:   "WOOLWORTHS",
			MatchCount:      8,
			ConfidenceBoost: 24,
		})

		c, err := d.DetectConflict(ctx, "tenant-a", "WOOLWORTHS", "5100", "Groceries")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c != nil {
			t.Errorf("expected no conflict, got %+v", c)
		}
	})

	t.Run("unestablished pattern can be overridden", func(t *testing.T) {
		d, _ := seedDetector(t, model.PayeePattern{
			ID:              "pat-1",
			TenantID:        "tenant-a",
			CanonicalName:   "WOOLWORTHS",
			AccountCode:     "5100",
			MatchCount:      1,
			ConfidenceBoost: model.BaseConfidenceBoost,
		})

		c, err := d.DetectConflict(ctx, "tenant-a", "WOOLWORTHS", "6400", "Tuition")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c != nil {
			t.Errorf("single-correction pattern should not defend itself, got %+v", c)
		}
	})

	t.Run("established pattern conflicts", func(t *testing.T) {
		d, _ := seedDetector(t, model.PayeePattern{
			ID:              "pat-1",
			TenantID:        "tenant-a",
			CanonicalName:   "WOOLWORTHS",
			AccountCode:     "5100",
			AccountName:     "Groceries & Consumables",
			MatchCount:      5,
			ConfidenceBoost: 18,
		})

		c, err := d.DetectConflict(ctx, "tenant-a", "Woolworths (Pty) Ltd", "6400", "Tuition Income")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c == nil {
			t.Fatal("expected a conflict")
		}
		if c.PayeeName != "WOOLWORTHS" {
			t.Errorf("payee = %q, want WOOLWORTHS", c.PayeeName)
		}
		if c.ExistingAccountCode != "5100" || c.ProposedAccountCode != "6400" {
			t.Errorf("accounts = %q vs %q, want 5100 vs 6400", c.ExistingAccountCode, c.ProposedAccountCode)
		}
		if c.ExistingAccountName != "Groceries & Consumables" || c.ProposedAccountName != "Tuition Income" {
			t.Errorf("account names = %q vs %q", c.ExistingAccountName, c.ProposedAccountName)
		}
		if c.MatchCount != 5 || c.ConfidenceBoost != 18 {
			t.Errorf("history = count %d boost %.0f, want 5 and 18", c.MatchCount, c.ConfidenceBoost)
		}
	})

	t.Run("high boost alone establishes a pattern", func(t *testing.T) {
		d, _ := seedDetector(t, model.PayeePattern{
			ID:              "pat-1",
			TenantID:        "tenant-a",
			CanonicalName:   "ESKOM",
			AccountCode:     "5300",
			MatchCount:      2,
			ConfidenceBoost: 20,
		})

		c, err := d.DetectConflict(ctx, "tenant-a", "ESKOM", "5400", "Water")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c == nil {
			t.Error("expected a conflict for a high-boost pattern")
		}
	})

	t.Run("other tenant's pattern is invisible", func(t *testing.T) {
		d, _ := seedDetector(t, model.PayeePattern{
			ID:              "pat-1",
			TenantID:        "tenant-b",
			CanonicalName:   "WOOLWORTHS",
			AccountCode:     "5100",
			MatchCount:      9,
			ConfidenceBoost: 25,
		})

		c, err := d.DetectConflict(ctx, "tenant-a", "WOOLWORTHS", "6400", "Tuition")
		if err != nil {
			t.Fatalf("DetectConflict: %v", err)
		}
		if c != nil {
			t.Errorf("tenant isolation violated: %+v", c)
		}
	})
}
