// Package normalize canonicalizes raw bank-statement payee text into
// comparable keys. Bank descriptions are noisy: the same counterparty shows up
// with legal-entity suffixes, branch names, and per-payment reference codes
// bolted on, and every matching heuristic upstream depends on those being
// stripped consistently.
package normalize

import (
	"regexp"
	"strings"
)

var (
	// Company-form suffixes, matched at the end of the name. Applied
	// repeatedly so stacked forms like "(PTY) LTD" reduce fully.
	legalSuffixRes = []*regexp.Regexp{
		regexp.MustCompile(`\(\s*(?:PTY|PVT|EDMS)\.?\s*\)\s*(?:LTD|LIMITED|BPK)?\.?\s*$`),
		regexp.MustCompile(`\b(?:PTY|PVT)\.?\s+(?:LTD|LIMITED)\.?\s*$`),
		regexp.MustCompile(`\b(?:LTD|LIMITED|INC|INCORPORATED|LLC|LLP|PLC|GMBH|NPC|BV|CC|BPK)\.?\s*$`),
		regexp.MustCompile(`\bT/?A\s*$`),
	}

	// Trailing reference and payment codes: -REF123, /PMT456, *789, #1001.
	refCodeRe = regexp.MustCompile(`(?:\s*[-/*#]\s*[A-Z]{0,6}\d+[A-Z0-9]*)+\s*$`)

	punctRe = regexp.MustCompile(`[^A-Z0-9 ]+`)
	spaceRe = regexp.MustCompile(`\s+`)

	// Leading date/reference tokens in descriptions: "20240301", "03/01", "12-44".
	numericTokenRe = regexp.MustCompile(`^\d[\d/\-:.]*$`)
)

// Trailing city/branch qualifiers seen on card transactions.
var locationTokens = map[string]bool{
	"SANDTON": true, "ROSEBANK": true, "MIDRAND": true, "CENTURION": true,
	"RANDBURG": true, "FOURWAYS": true, "MENLYN": true, "CLAREMONT": true,
	"BELLVILLE": true, "DURBANVILLE": true, "GATEWAY": true, "CANAL": true,
	"WALK": true, "CBD": true, "JHB": true, "JOHANNESBURG": true,
	"PRETORIA": true, "PTA": true, "CPT": true, "CAPE": true, "TOWN": true,
	"DURBAN": true, "DBN": true, "BRANCH": true,
}

// Transaction-type prefixes banks prepend to descriptions.
var descriptionPrefixes = []string{
	"POS PURCHASE", "POS", "CARD PURCHASE", "EFT PAYMENT", "EFT",
	"DEBIT ORDER", "STOP ORDER", "ACB DEBIT", "ACB", "ATM", "INTERNET PMT",
	"PAYMENT TO", "PAYMENT FROM", "TFR", "IB PAYMENT",
}

var stopWords = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "VIA": true, "REF": true,
	"PMT": true, "PAYMENT": true, "FROM": true, "INTO": true, "ACC": true,
}

// Payee canonicalizes a raw payee or description string into an uppercase
// comparable key. The rule set runs to a fixed point, so the function is
// idempotent: Payee(Payee(x)) == Payee(x).
func Payee(raw string) string {
	s := raw
	for range [4]struct{}{} {
		next := pass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func pass(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))

	for _, re := range legalSuffixRes {
		s = strings.TrimSpace(re.ReplaceAllString(s, ""))
	}
	s = trimLocations(s)
	s = strings.TrimSpace(refCodeRe.ReplaceAllString(s, ""))
	s = punctRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

func trimLocations(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 1 && locationTokens[strings.Trim(fields[len(fields)-1], ".,")] {
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

// ExtractPayee derives a candidate payee name from a transaction. The payee
// field wins when the bank supplied one; otherwise the description is stripped
// of transaction-type prefixes and leading date/reference tokens, and the
// first three significant tokens become the candidate.
func ExtractPayee(payeeName, description string) string {
	if strings.TrimSpace(payeeName) != "" {
		return Payee(payeeName)
	}

	s := strings.ToUpper(strings.TrimSpace(description))

	stripped := true
	for stripped {
		stripped = false
		for _, prefix := range descriptionPrefixes {
			if strings.HasPrefix(s, prefix+" ") || s == prefix {
				s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
				stripped = true
			}
		}
	}

	tokens := strings.Fields(punctReKeepSlash(s))
	var kept []string
	for _, tok := range tokens {
		if len(kept) == 0 && numericTokenRe.MatchString(tok) {
			continue
		}
		if stopWords[tok] || numericTokenRe.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
		if len(kept) == 3 {
			break
		}
	}

	return Payee(strings.Join(kept, " "))
}

// punctReKeepSlash collapses punctuation but keeps slashes and dashes intact
// long enough for the leading date-token check to see them.
func punctReKeepSlash(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ', r == '/', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// Keywords extracts matchable tokens from a full description: uppercase,
// punctuation stripped, length >= 3, stop words and pure numbers removed,
// de-duplicated in order of first appearance.
func Keywords(description string) []string {
	s := strings.ToUpper(description)
	s = punctRe.ReplaceAllString(s, " ")

	seen := make(map[string]bool)
	var keywords []string
	for _, tok := range strings.Fields(s) {
		if len(tok) < 3 || stopWords[tok] || numericTokenRe.MatchString(tok) {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		keywords = append(keywords, tok)
	}
	return keywords
}
