// Package money formats decimal amounts for operator-facing text (alert
// e-mails, logs). Arithmetic stays in decimal.Decimal everywhere else.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders d with two decimals and comma thousands separators,
// e.g. -1234567.5 → "-1,234,567.50".
func Format(d decimal.Decimal) string {
	s := d.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}

// Signed is Format with an explicit "+" on surpluses.
func Signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + Format(d)
	}
	return Format(d)
}

// Percent renders a percentage rounded to two places: "4.17%".
func Percent(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
