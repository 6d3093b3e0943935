// Package alias maintains the per-tenant registry mapping alternate payee
// spellings to one canonical name.
package alias

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/normalize"
	"github.com/ledgerling/ledgerling/internal/service"
)

// ID identifies one alias on one pattern. The wire format is
// "<patternID>:<alias>"; the alias itself may contain colons, so parsing
// splits on the first colon only.
type ID struct {
	PatternID string
	Alias     string
}

// ParseID decodes the composite wire format, splitting on the first colon.
func ParseID(s string) (ID, error) {
	idx := strings.Index(s, ":")
	if idx <= 0 || idx == len(s)-1 {
		return ID{}, common.NewValidationError("id", fmt.Sprintf("malformed alias id %q", s))
	}
	return ID{PatternID: s[:idx], Alias: s[idx+1:]}, nil
}

// String encodes the composite wire format.
func (id ID) String() string {
	return id.PatternID + ":" + id.Alias
}

// Entry is one alias attached to a pattern.
type Entry struct {
	ID    ID
	Alias string
}

// Resolver resolves observed payee names to their canonical form and manages
// the alias registry.
type Resolver struct {
	patterns service.PatternStore
}

// NewResolver creates a resolver over the given pattern store.
func NewResolver(patterns service.PatternStore) *Resolver {
	return &Resolver{patterns: patterns}
}

// Resolve maps an observed name to its canonical form. Empty input resolves
// to empty without touching the store. When nothing matches, the original
// unmodified input is returned so callers can use it verbatim.
func (r *Resolver) Resolve(ctx context.Context, tenantID, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}

	key := normalize.Payee(name)
	patterns, err := r.patterns.FindByTenant(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return "", fmt.Errorf("failed to load patterns: %w", err)
	}

	for _, p := range patterns {
		if normalize.Payee(p.CanonicalName) == key {
			return p.CanonicalName, nil
		}
		for _, a := range p.Aliases {
			if normalize.Payee(a) == key {
				return p.CanonicalName, nil
			}
		}
	}

	return name, nil
}

// Create attaches an alias to the pattern for canonical, creating a bare
// pattern first if the canonical name is not yet known. The alias must be
// unique across the tenant's aliases and canonical names.
func (r *Resolver) Create(ctx context.Context, tenantID, aliasName, canonical string) (*model.PayeePattern, error) {
	if strings.TrimSpace(aliasName) == "" {
		return nil, common.NewValidationError("alias", "alias cannot be empty")
	}
	if strings.TrimSpace(canonical) == "" {
		return nil, common.NewValidationError("canonical", "canonical name cannot be empty")
	}

	aliasKey := normalize.Payee(aliasName)
	canonicalKey := normalize.Payee(canonical)
	if aliasKey == canonicalKey {
		return nil, common.NewValidationError("alias", "alias cannot equal its canonical name")
	}

	patterns, err := r.patterns.FindByTenant(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	var target *model.PayeePattern
	for i := range patterns {
		p := &patterns[i]
		if normalize.Payee(p.CanonicalName) == aliasKey {
			return nil, common.NewValidationError("alias",
				fmt.Sprintf("%q is already a canonical name for this tenant", aliasName))
		}
		if p.HasAlias(aliasKey) {
			return nil, common.NewValidationError("alias",
				fmt.Sprintf("alias %q already exists on pattern %q", aliasName, p.CanonicalName))
		}
		if normalize.Payee(p.CanonicalName) == canonicalKey {
			target = p
		}
	}

	if target == nil {
		created := &model.PayeePattern{
			TenantID:        tenantID,
			CanonicalName:   canonicalKey,
			Aliases:         []string{aliasKey},
			ConfidenceBoost: model.BaseConfidenceBoost,
		}
		if err := r.patterns.Create(ctx, created); err != nil {
			return nil, fmt.Errorf("failed to create pattern for %q: %w", canonical, err)
		}
		return created, nil
	}

	target.Aliases = append(target.Aliases, aliasKey)
	if err := r.patterns.Update(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to attach alias: %w", err)
	}
	return target, nil
}

// Aliases lists the aliases attached to the pattern for canonical. A missing
// pattern or a pattern without aliases yields an empty list.
func (r *Resolver) Aliases(ctx context.Context, tenantID, canonical string) ([]Entry, error) {
	pattern, err := r.patterns.FindByPayeeName(ctx, tenantID, normalize.Payee(canonical))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to load pattern: %w", err)
	}

	entries := make([]Entry, 0, len(pattern.Aliases))
	for _, a := range pattern.Aliases {
		entries = append(entries, Entry{
			ID:    ID{PatternID: pattern.ID, Alias: a},
			Alias: a,
		})
	}
	return entries, nil
}

// Delete removes one alias from its pattern, preserving the order of the
// rest. The alias comparison is case-insensitive. Missing pattern, tenant
// mismatch, or absent alias all report not-found.
func (r *Resolver) Delete(ctx context.Context, tenantID string, id ID) error {
	pattern, err := r.patterns.FindByID(ctx, tenantID, id.PatternID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("alias %s: %w", id, common.ErrNotFound)
		}
		return fmt.Errorf("failed to load pattern: %w", err)
	}

	key := strings.ToUpper(strings.TrimSpace(id.Alias))
	idx := -1
	for i, a := range pattern.Aliases {
		if strings.ToUpper(strings.TrimSpace(a)) == key {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("alias %s: %w", id, common.ErrNotFound)
	}

	pattern.Aliases = append(pattern.Aliases[:idx], pattern.Aliases[idx+1:]...)
	if err := r.patterns.Update(ctx, pattern); err != nil {
		return fmt.Errorf("failed to remove alias: %w", err)
	}
	return nil
}
