package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// LineItem describes a single cart or voucher line. UnitPrice is the
// tax-inclusive sticker price in paise; UnitDiscount is a per-unit discount
// in paise. Quantity may be fractional for weighed goods.
type LineItem struct {
	ProductRef   string
	UnitPrice    money.Paise
	Quantity     decimal.Decimal
	TaxRate      decimal.Decimal // percent, e.g. 18 for 18% GST
	UnitDiscount money.Paise
}

// LinePricing carries the derived per-line amounts in decimal rupees.
// BaseUnit and TaxUnit keep full precision; persisted values are rounded to
// the paisa at the storage boundary, never inside the engine.
type LinePricing struct {
	NetUnit      decimal.Decimal // unit price after per-unit discount, tax inclusive
	BaseUnit     decimal.Decimal // tax-exclusive unit price
	TaxUnit      decimal.Decimal // tax portion of the net unit price
	LineTotal    decimal.Decimal // NetUnit x Quantity
	LineTax      decimal.Decimal // TaxUnit x Quantity
	LineDiscount decimal.Decimal // UnitDiscount x Quantity
}

// PriceLine derives the tax split and totals for one line. The unit price is
// tax inclusive, so the base price is recovered by dividing the discounted
// unit price by (1 + rate/100). A zero tax rate yields an exactly zero tax.
func PriceLine(it LineItem) (LinePricing, error) {
	if it.UnitPrice < 0 {
		return LinePricing{}, fmt.Errorf("%w: %d", ErrInvalidPrice, it.UnitPrice)
	}
	if it.UnitDiscount < 0 || it.UnitDiscount > it.UnitPrice {
		return LinePricing{}, fmt.Errorf("%w: unit discount %d on price %d", ErrInvalidDiscount, it.UnitDiscount, it.UnitPrice)
	}
	if !it.Quantity.IsPositive() {
		return LinePricing{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, it.Quantity)
	}
	if it.TaxRate.IsNegative() {
		return LinePricing{}, fmt.Errorf("%w: %s", ErrInvalidTaxRate, it.TaxRate)
	}

	net := money.FromPaise(it.UnitPrice - it.UnitDiscount)
	base := net
	if !it.TaxRate.IsZero() {
		base = net.Div(one.Add(it.TaxRate.Div(hundred)))
	}
	tax := net.Sub(base)

	return LinePricing{
		NetUnit:      net,
		BaseUnit:     base,
		TaxUnit:      tax,
		LineTotal:    net.Mul(it.Quantity),
		LineTax:      tax.Mul(it.Quantity),
		LineDiscount: money.FromPaise(it.UnitDiscount).Mul(it.Quantity),
	}, nil
}
