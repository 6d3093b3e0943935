package learner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/testutil"
)

func seedPayments(t *testing.T, db *storage.SQLiteStorage, payee string, amountCents int64, dayOffsets []int) {
	t.Helper()

	base := time.Now().AddDate(0, 0, -200)
	txns := make([]model.Transaction, 0, len(dayOffsets))
	for i, offset := range dayOffsets {
		txns = append(txns, model.Transaction{
			ID:          payee + "-" + string(rune('a'+i)),
			TenantID:    testTenant,
			Date:        base.AddDate(0, 0, offset),
			PayeeName:   payee,
			Description: "DEBIT ORDER " + payee,
			Amount:      decimal.NewFromInt(-amountCents),
		})
	}
	testutil.SeedTransactions(t, db, txns...)
}

func TestDetectRecurring(t *testing.T) {
	ctx := context.Background()

	t.Run("monthly debit order", func(t *testing.T) {
		l, db := newTestLearner(t, false)
		seedPayments(t, db, "LITTLE STEPS", 50000, []int{0, 30, 61, 91})

		info, err := l.DetectRecurring(ctx, testTenant, "Little Steps")
		if err != nil {
			t.Fatalf("DetectRecurring: %v", err)
		}
		if !info.IsRecurring {
			t.Fatalf("expected recurring, got %+v", info)
		}
		if info.Frequency != model.FrequencyMonthly {
			t.Errorf("frequency = %s, want MONTHLY", info.Frequency)
		}
		if info.Occurrences != 4 {
			t.Errorf("occurrences = %d, want 4", info.Occurrences)
		}
		if info.MeanIntervalDays != 30 {
			t.Errorf("mean interval = %.0f, want 30", info.MeanIntervalDays)
		}
		if !info.AverageAmount.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("average amount = %s, want 50000", info.AverageAmount)
		}
	})

	t.Run("irregular intervals are not recurring", func(t *testing.T) {
		l, db := newTestLearner(t, false)
		seedPayments(t, db, "ODD JOBS", 20000, []int{0, 5, 20, 31, 76})

		info, err := l.DetectRecurring(ctx, testTenant, "ODD JOBS")
		if err != nil {
			t.Fatalf("DetectRecurring: %v", err)
		}
		if info.IsRecurring {
			t.Errorf("expected not recurring, got %+v", info)
		}
		if info.Occurrences != 5 {
			t.Errorf("occurrences = %d, want 5", info.Occurrences)
		}
	})

	t.Run("too few occurrences", func(t *testing.T) {
		l, db := newTestLearner(t, false)
		seedPayments(t, db, "RARE VENDOR", 10000, []int{0, 30})

		info, err := l.DetectRecurring(ctx, testTenant, "RARE VENDOR")
		if err != nil {
			t.Fatalf("DetectRecurring: %v", err)
		}
		if info.IsRecurring {
			t.Error("two payments must not establish a schedule")
		}
		if info.Occurrences != 2 {
			t.Errorf("occurrences = %d, want 2", info.Occurrences)
		}
	})

	t.Run("weekly bucket", func(t *testing.T) {
		l, db := newTestLearner(t, false)
		seedPayments(t, db, "FRESH PRODUCE", 15000, []int{0, 7, 14, 21, 28})

		info, err := l.DetectRecurring(ctx, testTenant, "FRESH PRODUCE")
		if err != nil {
			t.Fatalf("DetectRecurring: %v", err)
		}
		if !info.IsRecurring || info.Frequency != model.FrequencyWeekly {
			t.Errorf("expected WEEKLY recurring, got %+v", info)
		}
	})
}

func TestMarkRecurring(t *testing.T) {
	ctx := context.Background()

	l, db := newTestLearner(t, false)
	testutil.SeedPatterns(t, db, model.PayeePattern{
		ID:              "pat-ls",
		TenantID:        testTenant,
		CanonicalName:   "LITTLE STEPS",
		AccountCode:     "6400",
		MatchCount:      3,
		ConfidenceBoost: 14,
	})
	seedPayments(t, db, "LITTLE STEPS", 50000, []int{0, 30, 61, 91})

	info, err := l.MarkRecurring(ctx, testTenant, "LITTLE STEPS")
	if err != nil {
		t.Fatalf("MarkRecurring: %v", err)
	}
	if !info.IsRecurring {
		t.Fatalf("expected recurring verdict, got %+v", info)
	}

	stored, err := db.Patterns().FindByID(ctx, testTenant, "pat-ls")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !stored.IsRecurring {
		t.Error("pattern not marked recurring")
	}
	if stored.ExpectedAmount == nil || !stored.ExpectedAmount.Equal(decimal.NewFromInt(50000)) {
		t.Errorf("expected amount = %v, want 50000", stored.ExpectedAmount)
	}
	if stored.AmountTolerance == nil || !stored.AmountTolerance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("amount tolerance = %v, want 10000", stored.AmountTolerance)
	}
	if !stored.MatchesAmount(decimal.NewFromInt(-55000)) {
		t.Error("amount within tolerance should match")
	}
	if stored.MatchesAmount(decimal.NewFromInt(-70000)) {
		t.Error("amount outside tolerance should not match")
	}
}
