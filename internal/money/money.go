package money

import "github.com/shopspring/decimal"

// Paise represents a monetary value stored in minor units (1/100 rupee).
type Paise = int64

// PaisePerRupee is the number of minor units in one whole currency unit.
const PaisePerRupee Paise = 100

// FromPaise converts a minor-unit amount to a decimal rupee value.
func FromPaise(p Paise) decimal.Decimal {
	return decimal.New(p, -2)
}

// ToPaise converts a decimal rupee value to minor units, rounding half-up to
// the nearest paisa. Sums persisted to storage always pass through here so a
// fractional intermediate (for example a tax split on a weighed quantity)
// never leaks into a stored total.
func ToPaise(d decimal.Decimal) Paise {
	return d.Shift(2).Round(0).IntPart()
}

// RoundRupee rounds a decimal rupee value half-up to the nearest whole rupee.
// This is the grand-total rounding rule: 0.50 and above rounds away from
// zero, matching cash-drawer rounding on printed invoices.
func RoundRupee(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// RoundOff returns the signed residual between the rounded grand total and
// the raw total. The magnitude never exceeds half a rupee.
func RoundOff(raw decimal.Decimal) decimal.Decimal {
	return RoundRupee(raw).Sub(raw)
}
