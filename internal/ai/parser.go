package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

// ParseSuggestion extracts an AISuggestion from a model response. Models
// occasionally wrap the JSON in markdown fences or surrounding prose despite
// instructions, so the parser locates the outermost object before decoding.
func ParseSuggestion(content string) (*service.AISuggestion, error) {
	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var payload struct {
		AccountCode string  `json:"account_code"`
		AccountName string  `json:"account_name"`
		Reasoning   string  `json:"reasoning"`
		VATType     string  `json:"vat_type"`
		Confidence  float64 `json:"confidence"`
		IsSplit     bool    `json:"is_split"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if payload.AccountCode == "" {
		return nil, fmt.Errorf("response missing account_code")
	}
	if payload.Confidence < 0 {
		payload.Confidence = 0
	}
	if payload.Confidence > 100 {
		payload.Confidence = 100
	}

	vat := model.VATType(strings.ToUpper(strings.TrimSpace(payload.VATType)))
	switch vat {
	case model.VATStandard, model.VATZeroRated, model.VATExempt, model.VATNone:
	default:
		vat = model.VATStandard
	}

	return &service.AISuggestion{
		AccountCode: payload.AccountCode,
		AccountName: payload.AccountName,
		Confidence:  payload.Confidence,
		Reasoning:   payload.Reasoning,
		VATType:     vat,
		IsSplit:     payload.IsSplit,
	}, nil
}

// extractJSON returns the outermost {...} object in content, tolerating
// markdown fences and leading or trailing prose.
func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
