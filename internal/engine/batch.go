package engine

import (
	"context"
	"log/slog"

	"github.com/ledgerling/ledgerling/internal/model"
)

// BatchItem is the outcome for one transaction in a batch run.
type BatchItem struct {
	TransactionID string
	Status        model.TransactionStatus
	Error         string
	Confidence    float64
	PatternMatch  bool
}

// BatchResult aggregates a batch categorization run.
type BatchResult struct {
	Items             []BatchItem
	Total             int
	Categorized       int
	ReviewRequired    int
	Failed            int
	AverageConfidence float64
	PatternMatchRate  float64
}

// CategorizeBatch processes transaction ids sequentially. A missing or
// failing transaction becomes a FAILED item without affecting the rest;
// sequential processing keeps one bad item from corrupting the aggregate.
// onProgress, if non-nil, is invoked after each item for progress reporting.
func (o *Orchestrator) CategorizeBatch(ctx context.Context, tenantID string, transactionIDs []string, onProgress func(BatchItem)) (*BatchResult, error) {
	result := &BatchResult{Total: len(transactionIDs)}

	var confidenceSum float64
	var patternMatches int

	for _, id := range transactionIDs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cat, err := o.CategorizeTransaction(ctx, id, tenantID)
		if err != nil {
			slog.Warn("Batch item failed", "transaction_id", id, "error", err)
			result.Failed++
			failed := BatchItem{
				TransactionID: id,
				Status:        model.StatusFailed,
				Error:         err.Error(),
			}
			result.Items = append(result.Items, failed)
			if onProgress != nil {
				onProgress(failed)
			}
			continue
		}

		item := BatchItem{
			TransactionID: id,
			Confidence:    cat.Confidence,
			PatternMatch:  cat.Source == model.SourceRuleBased,
		}
		if cat.Confidence >= o.cfg.AutoApplyThreshold {
			item.Status = model.StatusCategorized
			result.Categorized++
		} else {
			item.Status = model.StatusReviewRequired
			result.ReviewRequired++
		}

		confidenceSum += cat.Confidence
		if item.PatternMatch {
			patternMatches++
		}
		result.Items = append(result.Items, item)
		if onProgress != nil {
			onProgress(item)
		}
	}

	processed := result.Total - result.Failed
	if processed > 0 {
		result.AverageConfidence = confidenceSum / float64(processed)
		result.PatternMatchRate = float64(patternMatches) / float64(processed)
	}

	return result, nil
}
