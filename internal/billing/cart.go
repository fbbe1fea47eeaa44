package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// Cart is the transient aggregate a checkout operates on. It is an explicit
// value passed through the workflow; nothing in this package holds state
// between calls.
type Cart struct {
	Items        []LineItem
	BillDiscount money.Paise // bill-level discount on top of per-unit discounts
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool { return len(c.Items) == 0 }

// Totals aggregates the priced lines and the bill-level discount.
type Totals struct {
	Lines         []LinePricing
	SubTotal      decimal.Decimal // tax-exclusive sum of base prices
	TotalTax      decimal.Decimal
	ItemDiscount  decimal.Decimal
	BillDiscount  decimal.Decimal
	TotalDiscount decimal.Decimal
	RawTotal      decimal.Decimal // sum of net line totals minus bill discount
	GrandTotal    money.Paise     // RawTotal rounded half-up to a whole rupee
	RoundOff      decimal.Decimal // GrandTotal - RawTotal, signed
}

// Aggregate prices every line and folds in the bill-level discount. An empty
// cart yields all-zero totals; rejecting an empty checkout is the caller's
// concern. The bill discount must not exceed the net cart total.
func Aggregate(c Cart) (Totals, error) {
	if c.BillDiscount < 0 {
		return Totals{}, fmt.Errorf("%w: bill discount %d", ErrInvalidDiscount, c.BillDiscount)
	}

	t := Totals{
		Lines:         make([]LinePricing, 0, len(c.Items)),
		SubTotal:      decimal.Zero,
		TotalTax:      decimal.Zero,
		ItemDiscount:  decimal.Zero,
		TotalDiscount: decimal.Zero,
		RawTotal:      decimal.Zero,
		RoundOff:      decimal.Zero,
	}
	cartTotal := decimal.Zero
	for _, it := range c.Items {
		lp, err := PriceLine(it)
		if err != nil {
			return Totals{}, err
		}
		t.Lines = append(t.Lines, lp)
		t.SubTotal = t.SubTotal.Add(lp.BaseUnit.Mul(it.Quantity))
		t.TotalTax = t.TotalTax.Add(lp.LineTax)
		t.ItemDiscount = t.ItemDiscount.Add(lp.LineDiscount)
		cartTotal = cartTotal.Add(lp.LineTotal)
	}

	t.BillDiscount = money.FromPaise(c.BillDiscount)
	if t.BillDiscount.GreaterThan(cartTotal) {
		return Totals{}, fmt.Errorf("%w: bill discount %s exceeds cart total %s", ErrInvalidDiscount, t.BillDiscount, cartTotal)
	}
	t.TotalDiscount = t.ItemDiscount.Add(t.BillDiscount)
	t.RawTotal = cartTotal.Sub(t.BillDiscount)
	grand := money.RoundRupee(t.RawTotal)
	t.GrandTotal = money.ToPaise(grand)
	t.RoundOff = grand.Sub(t.RawTotal)
	return t, nil
}
