package validation

import (
	"regexp"
	"strings"
)

var taxIDPattern = regexp.MustCompile(`^\d{2}-\d{8}-\d$`)

const taxIDDigits = 11

// FormatTaxID groups the digits of a partially typed tax id as 2-8-1,
// dropping anything that is not a digit and anything past the eleventh digit.
//
//	"201234567"   -> "20-1234567"
//	"20123456789" -> "20-12345678-9"
func FormatTaxID(input string) string {
	digits := make([]rune, 0, taxIDDigits)
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
			if len(digits) == taxIDDigits {
				break
			}
		}
	}

	var b strings.Builder
	for i, r := range digits {
		if i == 2 || i == 10 {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsTaxID reports whether s is a complete, grouped tax id.
func IsTaxID(s string) bool {
	return taxIDPattern.MatchString(s)
}
