package invoice

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var leadingNumber = regexp.MustCompile(`^[-+]?(\d+\.?\d*|\.\d+)`)

// parseDecimal reads the leading number of s. Currency symbols and spaces are
// ignored. Anything unparsable is zero; absent and garbage values are not told
// apart.
func parseDecimal(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '€', '$', '£':
			return -1
		}
		return r
	}, strings.TrimSpace(s))

	match := leadingNumber.FindString(separators(cleaned))
	if match == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSuffix(match, "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// separators rewrites s to use a dot as the only decimal point. A comma
// followed by exactly three digits groups thousands ("1,250.75"); any other
// comma is a decimal comma, and dots before it group thousands ("1.234,56").
func separators(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == ',' && !thousandsGroup(s[i+1:]) {
			head := strings.NewReplacer(",", "", ".", "").Replace(s[:i])
			return head + "." + s[i+1:]
		}
	}
	return strings.ReplaceAll(s, ",", "")
}

func thousandsGroup(rest string) bool {
	if len(rest) < 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if !isDigit(rest[i]) {
			return false
		}
	}
	return len(rest) == 3 || !isDigit(rest[3])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// parseInt reads the leading integer part of s, zero when there is none.
func parseInt(s string) int {
	return int(parseDecimal(s).IntPart())
}
