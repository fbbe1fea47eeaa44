package billing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPriceLineTaxInclusiveSplit(t *testing.T) {
	// price 100.00, qty 2, discount 10.00/unit, 18% GST
	lp, err := PriceLine(LineItem{UnitPrice: 10000, Quantity: qty("2"), TaxRate: qty("18"), UnitDiscount: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lp.NetUnit.String() != "90" {
		t.Fatalf("expected net unit 90, got %s", lp.NetUnit)
	}
	if got := lp.BaseUnit.Round(2).String(); got != "76.27" {
		t.Fatalf("expected base 76.27, got %s", got)
	}
	if got := lp.TaxUnit.Round(2).String(); got != "13.73" {
		t.Fatalf("expected tax/unit 13.73, got %s", got)
	}
	if lp.LineTotal.String() != "180" {
		t.Fatalf("expected line total 180, got %s", lp.LineTotal)
	}
	if got := lp.LineTax.Round(2).String(); got != "27.46" {
		t.Fatalf("expected line tax 27.46, got %s", got)
	}
	if lp.LineDiscount.String() != "20" {
		t.Fatalf("expected line discount 20, got %s", lp.LineDiscount)
	}
}

func TestPriceLineZeroRateHasZeroTax(t *testing.T) {
	lp, err := PriceLine(LineItem{UnitPrice: 5500, Quantity: qty("3"), TaxRate: decimal.Zero})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lp.TaxUnit.IsZero() || !lp.LineTax.IsZero() {
		t.Fatalf("expected exactly zero tax, got %s / %s", lp.TaxUnit, lp.LineTax)
	}
	if !lp.BaseUnit.Equal(lp.NetUnit) {
		t.Fatalf("base must equal net unit at zero rate")
	}
}

func TestPriceLineFractionalQuantity(t *testing.T) {
	// 1.250 kg at 80.00/kg, 5% GST
	lp, err := PriceLine(LineItem{UnitPrice: 8000, Quantity: qty("1.250"), TaxRate: qty("5")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lp.LineTotal.String() != "100" {
		t.Fatalf("expected line total 100, got %s", lp.LineTotal)
	}
}

func TestPriceLineRejectsDiscountAbovePrice(t *testing.T) {
	_, err := PriceLine(LineItem{UnitPrice: 1000, Quantity: qty("1"), UnitDiscount: 1001})
	if !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestPriceLineRejectsNonPositiveQuantity(t *testing.T) {
	_, err := PriceLine(LineItem{UnitPrice: 1000, Quantity: decimal.Zero})
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}
