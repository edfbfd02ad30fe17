// Package money renders amounts in West African CFA francs.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Suffix is appended to every formatted amount.
const Suffix = "F CFA"

// Format renders amount rounded to a whole franc (half to even), thousands
// grouped with spaces: 1234567 -> "1 234 567 F CFA". The output never depends
// on the host locale.
func Format(amount decimal.Decimal) string {
	digits := amount.RoundBank(0).StringFixed(0)
	sign := ""
	if strings.HasPrefix(digits, "-") {
		sign, digits = "-", digits[1:]
	}
	if digits == "0" {
		sign = ""
	}
	return sign + group(digits) + " " + Suffix
}

// FormatFloat is Format for float inputs.
func FormatFloat(amount float64) string {
	return Format(decimal.NewFromFloat(amount))
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Sum adds rent and charges.
func Sum(values ...float64) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total
}
