package alias

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/storage"
	"github.com/ledgerling/ledgerling/internal/testutil"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ID
		wantErr bool
	}{
		{
			name:  "plain",
			input: "pat-1:WOOLIES",
			want:  ID{PatternID: "pat-1", Alias: "WOOLIES"},
		},
		{
			name:  "alias containing colons splits on first",
			input: "pat-1:A:B:C",
			want:  ID{PatternID: "pat-1", Alias: "A:B:C"},
		},
		{
			name:    "missing colon",
			input:   "pat-1",
			wantErr: true,
		},
		{
			name:    "empty pattern id",
			input:   ":WOOLIES",
			wantErr: true,
		},
		{
			name:    "empty alias",
			input:   "pat-1:",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseID(%q) succeeded, want error", tt.input)
				}
				if !common.IsValidation(err) {
					t.Errorf("ParseID(%q) error is not a validation error: %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseID(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseID(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("round trip: %q != %q", got.String(), tt.input)
			}
		})
	}
}

func seedResolver(t *testing.T) (*Resolver, *storage.SQLiteStorage) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.SeedPatterns(t, db,
		model.PayeePattern{
			ID:              "pat-ww",
			TenantID:        "tenant-a",
			CanonicalName:   "WOOLWORTHS",
			AccountCode:     "5100",
			ConfidenceBoost: model.BaseConfidenceBoost,
			Aliases:         []string{"WOOLIES", "WW FOOD"},
		},
	)
	return NewResolver(db.Patterns()), db
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	r, _ := seedResolver(t)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "canonical resolves to itself", input: "WOOLWORTHS", want: "WOOLWORTHS"},
		{name: "case insensitive", input: "woolies", want: "WOOLWORTHS"},
		{name: "normalization applies first", input: "Woolies (Pty) Ltd Sandton", want: "WOOLWORTHS"},
		{name: "unknown name returned verbatim", input: "Some New Vendor", want: "Some New Vendor"},
		{name: "empty resolves empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, "tenant-a", tt.input)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		once, err := r.Resolve(ctx, "tenant-a", "woolies")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		twice, err := r.Resolve(ctx, "tenant-a", once)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if once != twice {
			t.Errorf("Resolve not idempotent: %q then %q", once, twice)
		}
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches to existing pattern", func(t *testing.T) {
		r, db := seedResolver(t)

		pattern, err := r.Create(ctx, "tenant-a", "Woolworths Food Stop", "WOOLWORTHS")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if !pattern.HasAlias("WOOLWORTHS FOOD STOP") {
			t.Errorf("alias missing from pattern: %v", pattern.Aliases)
		}

		stored, err := db.Patterns().FindByPayeeName(ctx, "tenant-a", "WOOLWORTHS")
		if err != nil {
			t.Fatalf("FindByPayeeName: %v", err)
		}
		if !stored.HasAlias("WOOLWORTHS FOOD STOP") {
			t.Errorf("alias not persisted: %v", stored.Aliases)
		}
	})

	t.Run("creates bare pattern for unknown canonical", func(t *testing.T) {
		r, db := seedResolver(t)

		pattern, err := r.Create(ctx, "tenant-a", "CHKRS", "Checkers Hyper")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if pattern.CanonicalName != "CHECKERS HYPER" {
			t.Errorf("canonical = %q, want CHECKERS HYPER", pattern.CanonicalName)
		}
		if pattern.ConfidenceBoost != model.BaseConfidenceBoost {
			t.Errorf("boost = %.0f, want %.0f", pattern.ConfidenceBoost, model.BaseConfidenceBoost)
		}

		resolved, err := r.Resolve(ctx, "tenant-a", "CHKRS")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if resolved != "CHECKERS HYPER" {
			t.Errorf("resolved = %q, want CHECKERS HYPER", resolved)
		}
		_ = db
	})

	t.Run("duplicate alias rejected", func(t *testing.T) {
		r, _ := seedResolver(t)

		_, err := r.Create(ctx, "tenant-a", "woolies", "WOOLWORTHS")
		if !common.IsValidation(err) {
			t.Errorf("expected validation error for duplicate alias, got %v", err)
		}
	})

	t.Run("alias colliding with canonical rejected", func(t *testing.T) {
		r, _ := seedResolver(t)

		_, err := r.Create(ctx, "tenant-a", "WOOLWORTHS", "CHECKERS")
		if !common.IsValidation(err) {
			t.Errorf("expected validation error for canonical collision, got %v", err)
		}
	})

	t.Run("alias equal to its canonical rejected", func(t *testing.T) {
		r, _ := seedResolver(t)

		_, err := r.Create(ctx, "tenant-a", "Checkers (Pty) Ltd", "CHECKERS")
		if !common.IsValidation(err) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestAliases(t *testing.T) {
	ctx := context.Background()
	r, _ := seedResolver(t)

	entries, err := r.Aliases(ctx, "tenant-a", "WOOLWORTHS")
	if err != nil {
		t.Fatalf("Aliases: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 aliases, got %d", len(entries))
	}
	if entries[0].Alias != "WOOLIES" || entries[1].Alias != "WW FOOD" {
		t.Errorf("unexpected aliases: %+v", entries)
	}
	if entries[0].ID.PatternID != "pat-ww" {
		t.Errorf("entry id pattern = %q, want pat-ww", entries[0].ID.PatternID)
	}

	entries, err = r.Aliases(ctx, "tenant-a", "NO SUCH PAYEE")
	if err != nil {
		t.Fatalf("Aliases for unknown payee: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty list for unknown payee, got %d", len(entries))
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes one alias preserving order", func(t *testing.T) {
		r, db := seedResolver(t)

		if err := r.Delete(ctx, "tenant-a", ID{PatternID: "pat-ww", Alias: "woolies"}); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		stored, err := db.Patterns().FindByID(ctx, "tenant-a", "pat-ww")
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if len(stored.Aliases) != 1 || stored.Aliases[0] != "WW FOOD" {
			t.Errorf("remaining aliases = %v, want [WW FOOD]", stored.Aliases)
		}
	})

	t.Run("missing alias reports not found", func(t *testing.T) {
		r, _ := seedResolver(t)

		err := r.Delete(ctx, "tenant-a", ID{PatternID: "pat-ww", Alias: "NOPE"})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing pattern reports not found", func(t *testing.T) {
		r, _ := seedResolver(t)

		err := r.Delete(ctx, "tenant-a", ID{PatternID: "no-such", Alias: "WOOLIES"})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("tenant mismatch reports not found", func(t *testing.T) {
		r, _ := seedResolver(t)

		err := r.Delete(ctx, "tenant-b", ID{PatternID: "pat-ww", Alias: "WOOLIES"})
		if !errors.Is(err, common.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
