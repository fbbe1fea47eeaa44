package money

import "github.com/shopspring/decimal"

// Milli is a quantity in thousandths of a unit. Weighed goods sell in
// fractional quantities, so stock and line quantities persist with three
// decimal places of fixed-point precision.
type Milli = int64

// FromMilli converts a fixed-point quantity to its decimal value.
func FromMilli(m Milli) decimal.Decimal {
	return decimal.New(m, -3)
}

// ToMilli converts a decimal quantity to fixed-point thousandths, rounding
// half-up. Quantities persisted to storage always pass through here.
func ToMilli(d decimal.Decimal) Milli {
	return d.Shift(3).Round(0).IntPart()
}
