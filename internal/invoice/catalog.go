package invoice

import "strings"

// Supported currencies. Anything else falls back to the configured default.
var Currencies = []string{"EUR", "USD", "GBP", "CHF", "PLN"}

var ServiceTypes = []string{
	"Translation",
	"Proofreading",
	"Editing",
	"Post-editing",
	"Transcreation",
	"Interpreting",
	"Transcription",
	"DTP",
	"Localization",
	"Other",
}

var UnitTypes = []string{"Words", "Characters", "Pages", "Documents", "Hours", "Minutes"}

const UnitsWords = "Words"

var documentUnits = map[string]bool{
	"pages":     true,
	"documents": true,
}

// CanonicalCurrency returns the supported currency code for s.
func CanonicalCurrency(s string) (string, bool) {
	return canonical(Currencies, s)
}

// CanonicalService returns the recognised service type for s.
func CanonicalService(s string) (string, bool) {
	return canonical(ServiceTypes, s)
}

// CanonicalUnits returns the recognised unit type for s.
func CanonicalUnits(s string) (string, bool) {
	return canonical(UnitTypes, s)
}

// IsDocumentUnit reports whether units are counted per document rather than per word.
func IsDocumentUnit(units string) bool {
	return documentUnits[strings.ToLower(strings.TrimSpace(units))]
}

func canonical(set []string, s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, v := range set {
		if strings.EqualFold(v, s) {
			return v, true
		}
	}
	return "", false
}
