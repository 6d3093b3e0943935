package engine

import (
	"strings"

	"github.com/ledgerling/ledgerling/internal/model"
	"github.com/ledgerling/ledgerling/internal/service"
)

// fallbackRule maps description keywords to a ledger account. The table is
// the deterministic last resort when no AI collaborator is available; its
// confidences sit below the auto-apply threshold so fallback categorizations
// land in review unless a learned pattern boosts them.
type fallbackRule struct {
	account    string
	name       string
	vat        model.VATType
	keywords   []string
	confidence float64
}

var fallbackRules = []fallbackRule{
	{
		account:    "5100",
		name:       "Groceries & Consumables",
		vat:        model.VATStandard,
		confidence: 60,
		keywords:   []string{"WOOLWORTHS", "CHECKERS", "PICK N PAY", "SPAR", "FOOD", "GROCER", "SUPERMARKET"},
	},
	{
		account:    "5200",
		name:       "Utilities",
		vat:        model.VATStandard,
		confidence: 60,
		keywords:   []string{"ESKOM", "ELECTRICITY", "MUNICIPAL", "WATER", "PREPAID ELEC", "RATES"},
	},
	{
		account:    "6000",
		name:       "Salaries & Wages",
		vat:        model.VATNone,
		confidence: 65,
		keywords:   []string{"SALARY", "SALARIES", "PAYROLL", "WAGES", "STAFF PAY"},
	},
	{
		account:    "5900",
		name:       "Bank Charges",
		vat:        model.VATExempt,
		confidence: 60,
		keywords:   []string{"FEE", "SERVICE CHARGE", "ADMIN CHARGE", "BANK COST", "COMMISSION"},
	},
}

// fallbackSuggestion categorizes by keyword table. When nothing matches it
// returns a zero-confidence suggestion, which always escalates to review.
func fallbackSuggestion(txn *model.Transaction) service.AISuggestion {
	haystack := strings.ToUpper(txn.Description + " " + txn.PayeeName)

	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return service.AISuggestion{
					AccountCode: rule.account,
					AccountName: rule.name,
					Confidence:  rule.confidence,
					VATType:     rule.vat,
					Reasoning:   "keyword rule match: " + kw,
				}
			}
		}
	}

	return service.AISuggestion{
		VATType:   model.VATStandard,
		Reasoning: "no rule matched; manual review required",
	}
}
