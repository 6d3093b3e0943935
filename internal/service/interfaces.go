// Package service defines the contracts between the categorization core and
// its collaborators. Stores and sinks are consumed through these interfaces;
// the AI categorizer, conflict detector, audit and metrics sinks may be absent
// in some deployments and are injected as nilable references.
package service

import (
	"context"
	"time"

	"github.com/ledgerling/ledgerling/internal/model"
)

// TransactionFilter defines filtering options for tenant transaction queries.
type TransactionFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Search    string // Matched against description and payee name
	Limit     int
	Offset    int
}

// PatternFilter defines filtering options for pattern queries.
type PatternFilter struct {
	Search        string
	RecurringOnly bool
	Limit         int
	Offset        int
}

// TransactionStore provides read access to imported transactions plus the
// status transition owned by this core.
type TransactionStore interface {
	FindByID(ctx context.Context, id string) (*model.Transaction, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status model.TransactionStatus) error
	FindByTenant(ctx context.Context, tenantID string, filter TransactionFilter) ([]model.Transaction, error)
}

// CategorizationStore persists categorization outcomes.
type CategorizationStore interface {
	Create(ctx context.Context, categorization *model.Categorization) error
	FindByTransaction(ctx context.Context, transactionID string) ([]model.Categorization, error)
	Delete(ctx context.Context, id string) error
	Review(ctx context.Context, id string) error
	FindSimilarByDescription(ctx context.Context, tenantID, description string, limit int) ([]model.Categorization, error)
}

// PatternStore persists per-tenant payee patterns and their aliases.
type PatternStore interface {
	Create(ctx context.Context, pattern *model.PayeePattern) error
	Update(ctx context.Context, pattern *model.PayeePattern) error
	FindByID(ctx context.Context, tenantID, id string) (*model.PayeePattern, error)
	FindByTenant(ctx context.Context, tenantID string, filter PatternFilter) ([]model.PayeePattern, error)
	FindByPayeeName(ctx context.Context, tenantID, canonicalName string) (*model.PayeePattern, error)
	IncrementMatchCount(ctx context.Context, tenantID, id string) error
	Delete(ctx context.Context, tenantID, id string) error
}

// AISuggestion is the external categorizer's answer for one transaction.
type AISuggestion struct {
	AccountCode string
	AccountName string
	Reasoning   string
	VATType     model.VATType
	Confidence  float64 // 0-100
	IsSplit     bool
}

// AICategorizer is the external AI suggestion source. It has unbounded
// latency; callers wrap it with their own timeout or retry policy.
type AICategorizer interface {
	Categorize(ctx context.Context, txn model.Transaction, tenantID string) (*AISuggestion, error)
}

// Conflict describes a correction that contradicts an established pattern.
type Conflict struct {
	PayeeName           string
	ExistingAccountCode string
	ExistingAccountName string
	ProposedAccountCode string
	ProposedAccountName string
	MatchCount          int
	ConfidenceBoost     float64
}

// ConflictDetector flags corrections that would contradict an existing
// high-confidence pattern. A nil conflict means the correction is safe.
type ConflictDetector interface {
	DetectConflict(ctx context.Context, tenantID, payeeName, accountCode, accountName string) (*Conflict, error)
}

// AuditLogger records create/update events. Fire-and-forget: failures are
// logged by the caller and never propagated.
type AuditLogger interface {
	LogCreate(ctx context.Context, tenantID, entity, entityID, detail string) error
	LogUpdate(ctx context.Context, tenantID, entity, entityID, detail string) error
}

// AccuracyRecorder captures categorization outcomes and corrections for
// accuracy tracking. Best-effort: failures never block categorization.
type AccuracyRecorder interface {
	RecordCategorization(ctx context.Context, categorization model.Categorization) error
	RecordCorrection(ctx context.Context, previous, corrected model.Categorization) error
}

// RetryOptions configures retry behavior for operations outside the core,
// such as the CLI wrapping the AI categorizer.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
