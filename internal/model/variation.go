package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SimilarityMethod names the heuristic that produced a similarity score.
type SimilarityMethod string

// Similarity method constants, in evaluation precedence order.
const (
	MethodExact        SimilarityMethod = "exact"
	MethodAbbreviation SimilarityMethod = "abbreviation"
	MethodSuffix       SimilarityMethod = "suffix"
	MethodPhonetic     SimilarityMethod = "phonetic"
	MethodJaroWinkler  SimilarityMethod = "jaro_winkler"
	MethodLevenshtein  SimilarityMethod = "levenshtein"
)

// VariationMatch pairs an observed payee spelling with a known name it resembles.
type VariationMatch struct {
	Name       string // Observed spelling
	Candidate  string // Known canonical name or alias
	Canonical  string // Canonical name the candidate belongs to
	Method     SimilarityMethod
	Score      float64 // 0-1
	Confidence float64 // 0-100, monotonic in Score
}

// VariationMatches supports sorting by descending confidence.
type VariationMatches []VariationMatch

// Sort orders matches by confidence descending, candidate name as tie-break.
func (v VariationMatches) Sort() {
	sort.SliceStable(v, func(i, j int) bool {
		if v[i].Confidence != v[j].Confidence {
			return v[i].Confidence > v[j].Confidence
		}
		return v[i].Candidate < v[j].Candidate
	})
}

// VariationGroup is a connected cluster of mutually similar payee names.
type VariationGroup struct {
	Names      []string
	Confidence float64 // Mean pairwise confidence of the linking matches
}

// SuggestedAlias recommends attaching an observed spelling to a canonical name.
type SuggestedAlias struct {
	PayeeName          string
	SuggestedCanonical string
	Reason             string
	Examples           []string
	Confidence         float64
}

// RecurringFrequency buckets the mean interval between payments.
type RecurringFrequency string

// Recurring frequency constants.
const (
	FrequencyWeekly    RecurringFrequency = "WEEKLY"
	FrequencyMonthly   RecurringFrequency = "MONTHLY"
	FrequencyQuarterly RecurringFrequency = "QUARTERLY"
	FrequencyAnnual    RecurringFrequency = "ANNUAL"
)

// RecurringInfo is the result of statistical recurring-payment detection.
type RecurringInfo struct {
	LastDate         time.Time
	PayeeName        string
	Frequency        RecurringFrequency
	AverageAmount    decimal.Decimal
	Occurrences      int
	MeanIntervalDays float64
	StdDevDays       float64
	IsRecurring      bool
}
