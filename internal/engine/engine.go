// Package engine implements the categorization orchestrator: it combines
// recurring-payment matches, learned payee patterns, and external AI
// suggestions into one confidence score, then decides whether to auto-apply
// an account code or escalate to human review.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/ledgerling/ledgerling/internal/alias"
	"github.com/ledgerling/ledgerling/internal/config"
	"github.com/ledgerling/ledgerling/internal/learner"
	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

// minPatternScore is the lowest pattern-match score the orchestrator acts on.
const minPatternScore = 50.0

// recurringBaseConfidence anchors the confidence of a recurring match; the
// pattern's learned boost is added on top. A pattern at base boost clears the
// default auto-apply threshold, a penalized one does not.
const recurringBaseConfidence = 75.0

// Config holds the orchestrator's tunables.
type Config struct {
	Rounding            config.Rounding
	AutoApplyThreshold  float64
	SplitToleranceCents int64
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		AutoApplyThreshold:  80,
		SplitToleranceCents: 100,
		Rounding:            config.DefaultRounding(),
	}
}

// Orchestrator coordinates categorization of transactions. The AI
// categorizer, audit logger and accuracy recorder are optional; every call
// site branches on presence.
type Orchestrator struct {
	transactions    service.TransactionStore
	categorizations service.CategorizationStore
	patterns        service.PatternStore
	aliases         *alias.Resolver
	learner         *learner.Learner
	ai              service.AICategorizer
	audit           service.AuditLogger
	metrics         service.AccuracyRecorder
	cfg             Config
}

// New creates an orchestrator. ai, audit and metrics may be nil.
func New(
	transactions service.TransactionStore,
	categorizations service.CategorizationStore,
	patterns service.PatternStore,
	aliases *alias.Resolver,
	l *learner.Learner,
	ai service.AICategorizer,
	audit service.AuditLogger,
	metrics service.AccuracyRecorder,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		transactions:    transactions,
		categorizations: categorizations,
		patterns:        patterns,
		aliases:         aliases,
		learner:         l,
		ai:              ai,
		audit:           audit,
		metrics:         metrics,
		cfg:             cfg,
	}
}

// CategorizeTransaction runs the full decision pipeline for one transaction
// and persists the outcome.
func (o *Orchestrator) CategorizeTransaction(ctx context.Context, transactionID, tenantID string) (*model.Categorization, error) {
	txn, err := o.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, err)
	}

	// A recurring expectation that fits the amount wins outright.
	if cat := o.matchRecurring(ctx, txn, tenantID); cat != nil {
		return o.finalize(ctx, txn, cat, model.StatusCategorized)
	}

	patternMatch := o.bestPatternMatch(ctx, txn, tenantID)

	suggestion := o.suggest(ctx, txn, tenantID)

	cat := &model.Categorization{
		TransactionID: txn.ID,
		TenantID:      tenantID,
		AccountCode:   suggestion.AccountCode,
		AccountName:   suggestion.AccountName,
		Reasoning:     suggestion.Reasoning,
		VATType:       suggestion.VATType,
		IsSplit:       suggestion.IsSplit,
		Confidence:    suggestion.Confidence,
		Source:        model.SourceAIAuto,
	}

	if patternMatch != nil {
		p := patternMatch.Pattern
		cat.Confidence = math.Min(100, suggestion.Confidence+p.ConfidenceBoost)
		cat.Source = model.SourceRuleBased
		if p.AccountCode != "" {
			cat.AccountCode = p.AccountCode
			cat.AccountName = p.AccountName
			cat.Reasoning = fmt.Sprintf("matched pattern %q (%s)", p.CanonicalName, patternMatch.Reason)
		}
		if err := o.patterns.IncrementMatchCount(ctx, tenantID, p.ID); err != nil {
			slog.Warn("Failed to increment pattern match count",
				"pattern_id", p.ID, "error", err)
		}
	}

	status := model.StatusCategorized
	if cat.Confidence < o.cfg.AutoApplyThreshold {
		status = model.StatusReviewRequired
		cat.Source = model.SourceAISuggested
	}

	return o.finalize(ctx, txn, cat, status)
}

// matchRecurring builds a rule-based categorization when the transaction fits
// a recurring expectation on a known pattern and the resulting confidence
// clears the auto-apply threshold. The pattern's match counter moves only
// when a categorization is returned, so a discarded candidate leaves the
// counter untouched for the pattern-match path.
func (o *Orchestrator) matchRecurring(ctx context.Context, txn *model.Transaction, tenantID string) *model.Categorization {
	resolved, err := o.aliases.Resolve(ctx, tenantID, txn.PayeeName)
	if err != nil || resolved == "" {
		return nil
	}

	pattern, err := o.patterns.FindByPayeeName(ctx, tenantID, resolved)
	if err != nil || pattern.AccountCode == "" {
		return nil
	}
	if !pattern.MatchesAmount(txn.Amount) {
		return nil
	}

	confidence := math.Min(100, recurringBaseConfidence+pattern.ConfidenceBoost)
	if confidence < o.cfg.AutoApplyThreshold {
		return nil
	}
	if err := o.patterns.IncrementMatchCount(ctx, tenantID, pattern.ID); err != nil {
		slog.Warn("Failed to increment pattern match count",
			"pattern_id", pattern.ID, "error", err)
	}

	return &model.Categorization{
		TransactionID: txn.ID,
		TenantID:      tenantID,
		AccountCode:   pattern.AccountCode,
		AccountName:   pattern.AccountName,
		Source:        model.SourceRuleBased,
		Confidence:    confidence,
		VATType:       model.VATStandard,
		Reasoning: fmt.Sprintf("recurring payment to %q matching expected amount",
			pattern.CanonicalName),
	}
}

func (o *Orchestrator) bestPatternMatch(ctx context.Context, txn *model.Transaction, tenantID string) *learner.PatternMatch {
	matches, err := o.learner.FindMatchingPatterns(ctx, *txn, tenantID)
	if err != nil {
		slog.Warn("Pattern matching failed", "transaction_id", txn.ID, "error", err)
		return nil
	}
	if len(matches) == 0 || matches[0].Score < minPatternScore {
		return nil
	}
	return &matches[0]
}

// suggest obtains an account suggestion from the AI collaborator, falling
// back to the deterministic keyword table when the collaborator is unset or
// failing. It never returns an error.
func (o *Orchestrator) suggest(ctx context.Context, txn *model.Transaction, tenantID string) service.AISuggestion {
	if o.ai != nil {
		suggestion, err := o.ai.Categorize(ctx, *txn, tenantID)
		if err == nil && suggestion != nil {
			return *suggestion
		}
		if err != nil {
			slog.Warn("AI categorizer failed, using keyword fallback",
				"transaction_id", txn.ID, "error", err)
		}
	}
	return fallbackSuggestion(txn)
}

// finalize persists the categorization, transitions the transaction, and
// fires best-effort audit and metrics records.
func (o *Orchestrator) finalize(ctx context.Context, txn *model.Transaction, cat *model.Categorization, status model.TransactionStatus) (*model.Categorization, error) {
	cat.ID = uuid.NewString()

	if err := o.categorizations.Create(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to save categorization: %w", err)
	}
	if err := o.transactions.UpdateStatus(ctx, txn.ID, status); err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	if o.audit != nil {
		if err := o.audit.LogCreate(ctx, cat.TenantID, "categorization", cat.ID,
			fmt.Sprintf("account %s, confidence %.0f, source %s", cat.AccountCode, cat.Confidence, cat.Source)); err != nil {
			slog.Warn("Audit log write failed", "categorization_id", cat.ID, "error", err)
		}
	}
	if o.metrics != nil {
		if err := o.metrics.RecordCategorization(ctx, *cat); err != nil {
			slog.Warn("Accuracy metric write failed", "categorization_id", cat.ID, "error", err)
		}
	}

	slog.Info("Transaction categorized",
		"transaction_id", txn.ID,
		"account_code", cat.AccountCode,
		"confidence", cat.Confidence,
		"source", cat.Source,
		"status", status)

	return cat, nil
}
