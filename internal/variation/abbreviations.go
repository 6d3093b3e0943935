package variation

// abbreviations maps common merchant and bank short codes to the full names
// they stand for. Both directions count as a match: a statement may carry
// either form. Keys and values are normalized form.
var abbreviations = map[string]string{
	"PNP":      "PICK N PAY",
	"WW":       "WOOLWORTHS",
	"KFC":      "KENTUCKY FRIED CHICKEN",
	"MCD":      "MCDONALDS",
	"FNB":      "FIRST NATIONAL BANK",
	"SBSA":     "STANDARD BANK",
	"ABSA":     "AMALGAMATED BANKS OF SOUTH AFRICA",
	"SARS":     "SOUTH AFRICAN REVENUE SERVICE",
	"UIF":      "UNEMPLOYMENT INSURANCE FUND",
	"COJ":      "CITY OF JOHANNESBURG",
	"COCT":     "CITY OF CAPE TOWN",
	"VODACOM":  "VODACOM SERVICE PROVIDER",
	"MTN":      "MOBILE TELEPHONE NETWORKS",
	"DISCHEM":  "DIS CHEM PHARMACIES",
	"BUILDERS": "BUILDERS WAREHOUSE",
}

// abbreviationMatch reports whether a and b are linked by the dictionary.
func abbreviationMatch(a, b string) bool {
	if full, ok := abbreviations[a]; ok && full == b {
		return true
	}
	if full, ok := abbreviations[b]; ok && full == a {
		return true
	}
	return false
}
