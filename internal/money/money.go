// Package money holds decimal helpers shared by tax, ledger and billing code.
// Amounts are kept in rupees with paise precision.
package money

import "github.com/shopspring/decimal"

// Hundred is the percentage divisor.
var Hundred = decimal.NewFromInt(100)

// Zero is the additive identity, kept for readability at call sites.
var Zero = decimal.Zero

// Percent returns base*rate/100 without rounding.
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() || base.IsZero() {
		return decimal.Zero
	}
	return base.Mul(rate).Div(Hundred)
}

// Round2 rounds to paise, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundRupee rounds to whole rupees, half away from zero.
func RoundRupee(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// FromString parses a decimal literal and panics on malformed input. Intended for constants and tests.
func FromString(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
