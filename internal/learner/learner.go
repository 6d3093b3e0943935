// Package learner updates the payee pattern knowledge base from human
// corrections and scores patterns against incoming transactions. Corrections
// are the ground truth signal: every one either corroborates a pattern,
// overrides it, or creates a new one.
package learner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/ledgerling/ledgerling/internal/alias"
	"github.com/ledgerling/ledgerling/internal/common"
	"github.com/ledgerling/ledgerling/internal/config"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/normalize"
	"github.com/ledgerling/ledgerling/internal/service"
	"github.com/ledgerling/ledgerling/internal/variation"
)

// aliasLinkConfidence is the variation confidence above which a new spelling
// is automatically linked as an alias of an existing canonical name.
const aliasLinkConfidence = 85.0

// maxKeywordAliases caps how many description keywords seed a new pattern.
const maxKeywordAliases = 5

// Learner maintains payee patterns from corrections and detects recurring
// payments. The conflict detector is optional; when nil, corrections are
// applied without contradiction checks.
type Learner struct {
	transactions service.TransactionStore
	patterns     service.PatternStore
	aliases      *alias.Resolver
	variations   *variation.Detector
	conflicts    service.ConflictDetector
	rounding     config.Rounding
	tolerance    float64 // Recurring interval tolerance, fraction of the mean
}

// New creates a learner. conflicts may be nil.
func New(
	transactions service.TransactionStore,
	patterns service.PatternStore,
	aliases *alias.Resolver,
	variations *variation.Detector,
	conflicts service.ConflictDetector,
	rounding config.Rounding,
	recurringTolerance float64,
) *Learner {
	return &Learner{
		transactions: transactions,
		patterns:     patterns,
		aliases:      aliases,
		variations:   variations,
		conflicts:    conflicts,
		rounding:     rounding,
		tolerance:    recurringTolerance,
	}
}

// CalculateConfidenceBoost computes the boost a pattern earns after matchCount
// corroborating corrections. Non-decreasing in matchCount and capped.
func CalculateConfidenceBoost(matchCount int) float64 {
	if matchCount < 1 {
		matchCount = 1
	}
	boost := model.BaseConfidenceBoost + float64(matchCount-1)*model.ConfidenceIncrement
	return math.Min(model.MaxConfidenceBoost, boost)
}

// LearnFromCorrection folds a user correction into the pattern store. The
// observed spelling is resolved to its canonical name through variation
// detection and the alias registry, the conflict detector runs against that
// canonical, and a reported conflict aborts the write, surfacing the
// structured payload to the caller. A corroborating correction raises
// confidence; a changed account code overrides the pattern and resets
// confidence to base; an unknown payee creates a fresh pattern seeded with
// description keywords as aliases.
func (l *Learner) LearnFromCorrection(ctx context.Context, transactionID, accountCode, accountName, tenantID string) (*model.PayeePattern, error) {
	txn, err := l.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, err)
	}

	payee := normalize.ExtractPayee(txn.PayeeName, txn.Description)
	if payee == "" {
		return nil, common.NewValidationError("transaction", "no payee could be derived from the transaction")
	}
	keywords := normalize.Keywords(txn.Description)

	// Map the observed spelling onto the canonical name that owns it, so a
	// near-variant spelling cannot slip past the conflict check against the
	// established pattern.
	canonical := payee
	variant := ""
	if matches, verr := l.variations.DetectVariations(ctx, tenantID, payee); verr == nil && len(matches) > 0 {
		top := matches[0]
		if top.Confidence >= aliasLinkConfidence && normalize.Payee(top.Canonical) != payee {
			canonical = normalize.Payee(top.Canonical)
			variant = payee
		}
	}

	resolved, err := l.aliases.Resolve(ctx, tenantID, canonical)
	if err != nil {
		return nil, err
	}
	canonical = normalize.Payee(resolved)

	if l.conflicts != nil {
		conflict, err := l.conflicts.DetectConflict(ctx, tenantID, canonical, accountCode, accountName)
		if err != nil {
			return nil, fmt.Errorf("conflict detection failed: %w", err)
		}
		if conflict != nil {
			return nil, &common.ConflictError{Conflict: *conflict}
		}
	}

	// Alias creation is best-effort: a failure here must not abort learning.
	if variant != "" {
		if _, aerr := l.aliases.Create(ctx, tenantID, variant, canonical); aerr != nil {
			slog.Warn("Failed to create alias from variation",
				"tenant_id", tenantID,
				"alias", variant,
				"canonical", canonical,
				"error", aerr)
		}
	}

	pattern, err := l.patterns.FindByPayeeName(ctx, tenantID, canonical)
	switch {
	case err == nil:
		return l.applyCorrection(ctx, pattern, accountCode, accountName)
	case errors.Is(err, common.ErrNotFound):
		return l.createPattern(ctx, tenantID, canonical, accountCode, accountName, keywords)
	default:
		return nil, fmt.Errorf("failed to look up pattern: %w", err)
	}
}

func (l *Learner) applyCorrection(ctx context.Context, pattern *model.PayeePattern, accountCode, accountName string) (*model.PayeePattern, error) {
	if pattern.AccountCode == accountCode || pattern.AccountCode == "" {
		// Corroboration: same account (or a bare pattern gaining one).
		pattern.AccountCode = accountCode
		pattern.AccountName = accountName
		pattern.MatchCount++
		pattern.ConfidenceBoost = CalculateConfidenceBoost(pattern.MatchCount)
	} else {
		// Override: the previous mapping was wrong, restart confidence.
		slog.Info("Correction overrides pattern account",
			"payee", pattern.CanonicalName,
			"old_account", pattern.AccountCode,
			"new_account", accountCode)
		pattern.AccountCode = accountCode
		pattern.AccountName = accountName
		pattern.MatchCount = 1
		pattern.ConfidenceBoost = model.BaseConfidenceBoost
	}

	if err := l.patterns.Update(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to update pattern: %w", err)
	}
	return pattern, nil
}

func (l *Learner) createPattern(ctx context.Context, tenantID, canonical, accountCode, accountName string, keywords []string) (*model.PayeePattern, error) {
	var aliases []string
	for _, kw := range keywords {
		if kw == canonical || strings.Contains(canonical, kw) {
			continue
		}
		aliases = append(aliases, kw)
		if len(aliases) == maxKeywordAliases {
			break
		}
	}

	pattern := &model.PayeePattern{
		TenantID:        tenantID,
		CanonicalName:   canonical,
		AccountCode:     accountCode,
		AccountName:     accountName,
		Aliases:         aliases,
		ConfidenceBoost: model.BaseConfidenceBoost,
		MatchCount:      1,
	}
	if err := l.patterns.Create(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to create pattern: %w", err)
	}
	return pattern, nil
}

// UpdatePattern adjusts a pattern after a match outcome. Success increments
// the counter and recomputes the boost; failure subtracts a fixed penalty,
// floored at the minimum.
func (l *Learner) UpdatePattern(ctx context.Context, tenantID, patternID string, matchSuccess bool) error {
	pattern, err := l.patterns.FindByID(ctx, tenantID, patternID)
	if err != nil {
		return fmt.Errorf("pattern %s: %w", patternID, err)
	}

	if matchSuccess {
		pattern.MatchCount++
		pattern.ConfidenceBoost = CalculateConfidenceBoost(pattern.MatchCount)
	} else {
		pattern.ConfidenceBoost = math.Max(model.MinConfidenceBoost, pattern.ConfidenceBoost-model.FailurePenalty)
	}

	if err := l.patterns.Update(ctx, pattern); err != nil {
		return fmt.Errorf("failed to update pattern: %w", err)
	}
	return nil
}

// PatternMatch scores one pattern against a transaction.
type PatternMatch struct {
	Pattern model.PayeePattern
	Reason  string
	Score   float64
}

// FindMatchingPatterns scores every tenant pattern against the transaction.
// Scoring priority: exact payee 100, exact alias 90, partial payee overlap
// 75-80, keyword overlap against the description proportional up to 70,
// pattern name appearing inside the description 50. Results are sorted by
// descending score.
func (l *Learner) FindMatchingPatterns(ctx context.Context, txn model.Transaction, tenantID string) ([]PatternMatch, error) {
	payee := normalize.ExtractPayee(txn.PayeeName, txn.Description)
	description := strings.ToUpper(txn.Description)
	descKeywords := make(map[string]bool)
	for _, kw := range normalize.Keywords(txn.Description) {
		descKeywords[kw] = true
	}

	patterns, err := l.patterns.FindByTenant(ctx, tenantID, service.PatternFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	var matches []PatternMatch
	for _, p := range patterns {
		score, reason := scorePattern(p, payee, description, descKeywords)
		if score <= 0 {
			continue
		}
		matches = append(matches, PatternMatch{Pattern: p, Score: score, Reason: reason})
	}

	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
	return matches, nil
}

func scorePattern(p model.PayeePattern, payee, description string, descKeywords map[string]bool) (float64, string) {
	canonical := normalize.Payee(p.CanonicalName)

	if payee != "" && payee == canonical {
		return 100, "exact payee match"
	}

	for _, a := range p.Aliases {
		if payee != "" && normalize.Payee(a) == payee {
			return 90, fmt.Sprintf("alias match on %q", a)
		}
	}

	if payee != "" && (strings.Contains(canonical, payee) || strings.Contains(payee, canonical)) {
		shorter, longer := len(payee), len(canonical)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		ratio := float64(shorter) / float64(longer)
		return 75 + 5*ratio, "partial payee match"
	}

	if len(p.Aliases) > 0 {
		matched := 0
		for _, a := range p.Aliases {
			if descKeywords[normalize.Payee(a)] {
				matched++
			}
		}
		if matched > 0 {
			score := math.Min(70, 70*float64(matched)/float64(len(p.Aliases)))
			return score, fmt.Sprintf("keyword overlap %d/%d", matched, len(p.Aliases))
		}
	}

	if canonical != "" && strings.Contains(description, canonical) {
		return 50, "pattern name in description"
	}

	return 0, ""
}
