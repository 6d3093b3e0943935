package learner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/normalize"
	"github.com/ledgerling/ledgerling/internal/service"
)

// minRecurringOccurrences is the fewest payments that can establish a schedule.
const minRecurringOccurrences = 3

// recurringWindow is how far back detection scans.
const recurringWindow = 365 * 24 * time.Hour

// Frequency bucket boundaries on the mean interval, in days.
const (
	weeklyMaxInterval    = 10
	monthlyMaxInterval   = 35
	quarterlyMaxInterval = 100
)

// DetectRecurring infers whether a payee is paid on a regular schedule from
// the tenant's trailing 12 months of transactions. The verdict compares the
// population standard deviation of consecutive payment intervals against a
// fraction of the mean interval: tight spacing means a schedule. The scan is
// a full pass over the window; hot-path callers should cache the result.
func (l *Learner) DetectRecurring(ctx context.Context, tenantID, payeeName string) (*model.RecurringInfo, error) {
	key := normalize.Payee(payeeName)
	if key == "" {
		return nil, fmt.Errorf("payee name is required")
	}

	start := time.Now().Add(-recurringWindow)
	txns, err := l.transactions.FindByTenant(ctx, tenantID, service.TransactionFilter{
		StartDate: &start,
		Search:    key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	var hits []model.Transaction
	for _, txn := range txns {
		candidate := normalize.ExtractPayee(txn.PayeeName, txn.Description)
		if candidate == key || strings.Contains(candidate, key) || strings.Contains(key, candidate) {
			hits = append(hits, txn)
		}
	}

	info := &model.RecurringInfo{
		PayeeName:   key,
		Occurrences: len(hits),
	}
	if len(hits) < minRecurringOccurrences {
		return info, nil
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Date.Before(hits[j].Date) })

	intervals := make([]float64, 0, len(hits)-1)
	total := decimal.Zero
	for i, txn := range hits {
		total = total.Add(txn.Amount.Abs())
		if i > 0 {
			intervals = append(intervals, hits[i].Date.Sub(hits[i-1].Date).Hours()/24)
		}
	}

	mean := 0.0
	for _, iv := range intervals {
		mean += iv
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, iv := range intervals {
		variance += (iv - mean) * (iv - mean)
	}
	stddev := math.Sqrt(variance / float64(len(intervals)))

	info.LastDate = hits[len(hits)-1].Date
	info.MeanIntervalDays = math.Round(mean)
	info.StdDevDays = math.Round(stddev)
	info.AverageAmount = l.rounding.Round(total.Div(decimal.NewFromInt(int64(len(hits)))))
	info.IsRecurring = stddev < mean*l.tolerance
	info.Frequency = bucketFrequency(mean)

	return info, nil
}

func bucketFrequency(meanIntervalDays float64) model.RecurringFrequency {
	switch {
	case meanIntervalDays <= weeklyMaxInterval:
		return model.FrequencyWeekly
	case meanIntervalDays <= monthlyMaxInterval:
		return model.FrequencyMonthly
	case meanIntervalDays <= quarterlyMaxInterval:
		return model.FrequencyQuarterly
	default:
		return model.FrequencyAnnual
	}
}

// MarkRecurring persists a recurring expectation on the payee's pattern so the
// orchestrator can short-circuit future categorizations.
func (l *Learner) MarkRecurring(ctx context.Context, tenantID, payeeName string) (*model.RecurringInfo, error) {
	info, err := l.DetectRecurring(ctx, tenantID, payeeName)
	if err != nil {
		return nil, err
	}
	if !info.IsRecurring {
		return info, nil
	}

	pattern, err := l.patterns.FindByPayeeName(ctx, tenantID, info.PayeeName)
	if err != nil {
		return nil, fmt.Errorf("pattern for %q: %w", info.PayeeName, err)
	}

	tolerance := l.rounding.Round(info.AverageAmount.Mul(decimal.NewFromFloat(l.tolerance)))
	pattern.IsRecurring = true
	pattern.ExpectedAmount = &info.AverageAmount
	pattern.AmountTolerance = &tolerance
	if err := l.patterns.Update(ctx, pattern); err != nil {
		return nil, fmt.Errorf("failed to store recurring expectation: %w", err)
	}
	return info, nil
}
