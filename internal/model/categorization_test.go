package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSource(t *testing.T) {
	for _, valid := range []string{"RULE_BASED", "AI_AUTO", "AI_SUGGESTED", "USER_OVERRIDE"} {
		if _, err := ParseSource(valid); err != nil {
			t.Errorf("ParseSource(%q): %v", valid, err)
		}
	}
	if _, err := ParseSource("MANUAL"); err == nil {
		t.Error("expected an error for an unknown source")
	}
}

func TestCategorizationValidate(t *testing.T) {
	valid := func() Categorization {
		return Categorization{
			ID:            "cat-1",
			TransactionID: "txn-1",
			TenantID:      "tenant-a",
			AccountCode:   "5100",
			Source:        SourceRuleBased,
			Confidence:    85,
			VATType:       VATStandard,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Categorization)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Categorization) {}},
		{name: "missing transaction", mutate: func(c *Categorization) { c.TransactionID = "" }, wantErr: true},
		{name: "missing tenant", mutate: func(c *Categorization) { c.TenantID = "" }, wantErr: true},
		{name: "unknown source", mutate: func(c *Categorization) { c.Source = "MANUAL" }, wantErr: true},
		{name: "confidence over 100", mutate: func(c *Categorization) { c.Confidence = 101 }, wantErr: true},
		{name: "negative confidence", mutate: func(c *Categorization) { c.Confidence = -1 }, wantErr: true},
		{name: "split without amount", mutate: func(c *Categorization) { c.IsSplit = true }, wantErr: true},
		{name: "split with amount", mutate: func(c *Categorization) {
			amount := decimal.NewFromInt(-30000)
			c.IsSplit = true
			c.SplitAmount = &amount
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
