package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/testutil"
)

func patternFixture(id, canonical string) model.PayeePattern {
	return model.PayeePattern{
		ID:              id,
		TenantID:        "tenant-a",
		CanonicalName:   canonical,
		AccountCode:     "5100",
		AccountName:     "Groceries & Consumables",
		ConfidenceBoost: model.BaseConfidenceBoost,
		MatchCount:      1,
	}
}

func TestPatternCreate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Patterns()

	expected := decimal.NewFromInt(50000)
	tolerance := decimal.NewFromInt(10000)
	pattern := patternFixture("pat-1", "WOOLWORTHS")
	pattern.Aliases = []string{"WOOLIES", "WW FOOD"}
	pattern.IsRecurring = true
	pattern.ExpectedAmount = &expected
	pattern.AmountTolerance = &tolerance

	if err := store.Create(ctx, &pattern); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pattern.Version != 1 {
		t.Errorf("version = %d, want 1 on create", pattern.Version)
	}

	got, err := store.FindByID(ctx, "tenant-a", "pat-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.CanonicalName != "WOOLWORTHS" || got.AccountCode != "5100" {
		t.Errorf("unexpected row: %+v", got)
	}
	if len(got.Aliases) != 2 || got.Aliases[0] != "WOOLIES" || got.Aliases[1] != "WW FOOD" {
		t.Errorf("aliases = %v, want position order [WOOLIES, WW FOOD]", got.Aliases)
	}
	if got.ExpectedAmount == nil || !got.ExpectedAmount.Equal(expected) {
		t.Errorf("expected amount = %v, want 50000", got.ExpectedAmount)
	}
	if got.AmountTolerance == nil || !got.AmountTolerance.Equal(tolerance) {
		t.Errorf("tolerance = %v, want 10000", got.AmountTolerance)
	}

	t.Run("assigns id when empty", func(t *testing.T) {
		bare := patternFixture("", "CHECKERS")
		if err := store.Create(ctx, &bare); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if bare.ID == "" {
			t.Fatal("expected a generated id")
		}
		if _, err := store.FindByID(ctx, "tenant-a", bare.ID); err != nil {
			t.Errorf("generated id not retrievable: %v", err)
		}
	})

	t.Run("duplicate canonical per tenant", func(t *testing.T) {
		dup := patternFixture("pat-dup", "WOOLWORTHS")
		err := store.Create(ctx, &dup)
		if !errors.Is(err, common.ErrDuplicateEntry) {
			t.Errorf("expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("same canonical allowed for another tenant", func(t *testing.T) {
		other := patternFixture("pat-b", "WOOLWORTHS")
		other.TenantID = "tenant-b"
		if err := store.Create(ctx, &other); err != nil {
			t.Errorf("Create for second tenant: %v", err)
		}
	})

	t.Run("invalid boost rejected", func(t *testing.T) {
		bad := patternFixture("pat-bad", "BAD BOOST")
		bad.ConfidenceBoost = 90
		if err := store.Create(ctx, &bad); err == nil {
			t.Error("expected validation error for out-of-range boost")
		}
	})
}

func TestPatternUpdate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Patterns()

	seed := patternFixture("pat-1", "WOOLWORTHS")
	seed.Aliases = []string{"WOOLIES"}
	testutil.SeedPatterns(t, db, seed)

	t.Run("rewrites row and aliases", func(t *testing.T) {
		pattern, err := store.FindByID(ctx, "tenant-a", "pat-1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		pattern.AccountCode = "5500"
		pattern.MatchCount = 7
		pattern.Aliases = []string{"WW", "WOOLIES"}

		if err := store.Update(ctx, pattern); err != nil {
			t.Fatalf("Update: %v", err)
		}
		if pattern.Version != 2 {
			t.Errorf("version = %d, want 2 after update", pattern.Version)
		}

		got, err := store.FindByID(ctx, "tenant-a", "pat-1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.AccountCode != "5500" || got.MatchCount != 7 || got.Version != 2 {
			t.Errorf("update not persisted: %+v", got)
		}
		if len(got.Aliases) != 2 || got.Aliases[0] != "WW" {
			t.Errorf("aliases not replaced: %v", got.Aliases)
		}
	})

	t.Run("stale version loses", func(t *testing.T) {
		first, err := store.FindByID(ctx, "tenant-a", "pat-1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		second, err := store.FindByID(ctx, "tenant-a", "pat-1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}

		first.MatchCount++
		if err := store.Update(ctx, first); err != nil {
			t.Fatalf("first Update: %v", err)
		}

		second.AccountCode = "9999"
		err = store.Update(ctx, second)
		if !errors.Is(err, storage.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}

		got, err := store.FindByID(ctx, "tenant-a", "pat-1")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if got.AccountCode == "9999" {
			t.Error("stale write went through")
		}
	})

	t.Run("missing pattern", func(t *testing.T) {
		ghost := patternFixture("no-such", "GHOST")
		ghost.Version = 1
		if err := store.Update(ctx, &ghost); !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPatternFindByPayeeName(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Patterns()

	testutil.SeedPatterns(t, db, patternFixture("pat-1", "WOOLWORTHS"))

	got, err := store.FindByPayeeName(ctx, "tenant-a", "woolworths")
	if err != nil {
		t.Fatalf("FindByPayeeName: %v", err)
	}
	if got.ID != "pat-1" {
		t.Errorf("id = %s, want pat-1", got.ID)
	}

	t.Run("cache hands out copies", func(t *testing.T) {
		got.AccountCode = "mutated"

		again, err := store.FindByPayeeName(ctx, "tenant-a", "WOOLWORTHS")
		if err != nil {
			t.Fatalf("FindByPayeeName: %v", err)
		}
		if again.AccountCode != "5100" {
			t.Errorf("caller mutation leaked into the cache: %q", again.AccountCode)
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := store.FindByPayeeName(ctx, "tenant-a", "NO SUCH")
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("cache invalidated by writes", func(t *testing.T) {
		fresh, err := store.FindByPayeeName(ctx, "tenant-a", "WOOLWORTHS")
		if err != nil {
			t.Fatalf("FindByPayeeName: %v", err)
		}
		fresh.AccountCode = "5500"
		if err := store.Update(ctx, fresh); err != nil {
			t.Fatalf("Update: %v", err)
		}

		got, err := store.FindByPayeeName(ctx, "tenant-a", "WOOLWORTHS")
		if err != nil {
			t.Fatalf("FindByPayeeName: %v", err)
		}
		if got.AccountCode != "5500" {
			t.Errorf("stale cache entry survived a write: %q", got.AccountCode)
		}
	})
}

func TestPatternFindByTenant(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Patterns()

	recurring := patternFixture("pat-3", "LITTLE STEPS")
	expected := decimal.NewFromInt(50000)
	recurring.IsRecurring = true
	recurring.ExpectedAmount = &expected
	recurring.MatchCount = 9

	busy := patternFixture("pat-2", "CHECKERS")
	busy.MatchCount = 5

	testutil.SeedPatterns(t, db, patternFixture("pat-1", "WOOLWORTHS"), busy, recurring)

	t.Run("ordered by match count", func(t *testing.T) {
		got, err := store.FindByTenant(ctx, "tenant-a", service.PatternFilter{})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 patterns, got %d", len(got))
		}
		if got[0].ID != "pat-3" || got[1].ID != "pat-2" || got[2].ID != "pat-1" {
			t.Errorf("unexpected order: %s %s %s", got[0].ID, got[1].ID, got[2].ID)
		}
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		got, err := store.FindByTenant(ctx, "tenant-a", service.PatternFilter{Search: "wool"})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 1 || got[0].CanonicalName != "WOOLWORTHS" {
			t.Errorf("expected [WOOLWORTHS], got %+v", got)
		}
	})

	t.Run("recurring only", func(t *testing.T) {
		got, err := store.FindByTenant(ctx, "tenant-a", service.PatternFilter{RecurringOnly: true})
		if err != nil {
			t.Fatalf("FindByTenant: %v", err)
		}
		if len(got) != 1 || got[0].ID != "pat-3" {
			t.Errorf("expected [pat-3], got %+v", got)
		}
	})
}

func TestPatternIncrementMatchCount(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Patterns()

	testutil.SeedPatterns(t, db, patternFixture("pat-1", "WOOLWORTHS"))

	if err := store.IncrementMatchCount(ctx, "tenant-a", "pat-1"); err != nil {
		t.Fatalf("IncrementMatchCount: %v", err)
	}
	got, err := store.FindByID(ctx, "tenant-a", "pat-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.MatchCount != 2 {
		t.Errorf("match count = %d, want 2", got.MatchCount)
	}

	if err := store.IncrementMatchCount(ctx, "tenant-a", "no-such"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPatternDelete(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	store := db.Patterns()

	seed := patternFixture("pat-1", "WOOLWORTHS")
	seed.Aliases = []string{"WOOLIES"}
	testutil.SeedPatterns(t, db, seed)

	if err := store.Delete(ctx, "tenant-a", "pat-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.FindByID(ctx, "tenant-a", "pat-1"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// The alias rows cascade away; re-using the id must not resurrect them.
	fresh := patternFixture("pat-1", "WOOLWORTHS")
	testutil.SeedPatterns(t, db, fresh)
	got, err := store.FindByID(ctx, "tenant-a", "pat-1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if len(got.Aliases) != 0 {
		t.Errorf("cascade failed, stale aliases: %v", got.Aliases)
	}

	if err := store.Delete(ctx, "tenant-a", "no-such"); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
