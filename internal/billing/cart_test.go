package billing

import (
	"errors"
	"testing"

	"github.com/noah-isme/backend-kasir/internal/money"
)

func TestAggregateEmptyCartIsZero(t *testing.T) {
	tt, err := Aggregate(Cart{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tt.GrandTotal != 0 || !tt.RawTotal.IsZero() || !tt.TotalTax.IsZero() {
		t.Fatalf("expected all-zero totals, got %+v", tt)
	}
}

func TestAggregateWithBillDiscount(t *testing.T) {
	// line totals sum to 500.00, bill discount 20.00
	cart := Cart{
		Items: []LineItem{
			{UnitPrice: 30000, Quantity: qty("1"), TaxRate: qty("18")},
			{UnitPrice: 10000, Quantity: qty("2"), TaxRate: qty("5")},
		},
		BillDiscount: 2000,
	}
	tt, err := Aggregate(cart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tt.RawTotal.String() != "480" {
		t.Fatalf("expected raw total 480, got %s", tt.RawTotal)
	}
	if tt.GrandTotal != 48000 {
		t.Fatalf("expected grand total 48000 paise, got %d", tt.GrandTotal)
	}
	if !tt.RoundOff.IsZero() {
		t.Fatalf("expected zero round-off, got %s", tt.RoundOff)
	}
	if tt.TotalDiscount.String() != "20" {
		t.Fatalf("expected total discount 20, got %s", tt.TotalDiscount)
	}
}

func TestAggregateRoundOffResidual(t *testing.T) {
	// 3 x 33.35 = 100.05 -> grand 100, round-off -0.05
	cart := Cart{Items: []LineItem{{UnitPrice: 3335, Quantity: qty("3")}}}
	tt, err := Aggregate(cart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tt.GrandTotal != 10000 {
		t.Fatalf("expected grand 10000 paise, got %d", tt.GrandTotal)
	}
	if tt.RoundOff.String() != "-0.05" {
		t.Fatalf("expected round-off -0.05, got %s", tt.RoundOff)
	}
	// grand total is always a whole rupee
	if tt.GrandTotal%money.PaisePerRupee != 0 {
		t.Fatalf("grand total %d is not a whole rupee", tt.GrandTotal)
	}
}

func TestAggregateIsStableUnderRecomputation(t *testing.T) {
	cart := Cart{
		Items: []LineItem{
			{UnitPrice: 9999, Quantity: qty("1.333"), TaxRate: qty("12"), UnitDiscount: 250},
			{UnitPrice: 45000, Quantity: qty("2"), TaxRate: qty("28"), UnitDiscount: 0},
		},
		BillDiscount: 1500,
	}
	first, err := Aggregate(cart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Aggregate(cart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.GrandTotal != second.GrandTotal || !first.RawTotal.Equal(second.RawTotal) {
		t.Fatalf("re-aggregation diverged: %d vs %d", first.GrandTotal, second.GrandTotal)
	}
	if !money.RoundRupee(first.RawTotal).Sub(first.RawTotal).Equal(first.RoundOff) {
		t.Fatalf("round-off does not reconcile against raw total")
	}
}

func TestAggregateRejectsBillDiscountAboveCartTotal(t *testing.T) {
	cart := Cart{
		Items:        []LineItem{{UnitPrice: 1000, Quantity: qty("1")}},
		BillDiscount: 2000,
	}
	if _, err := Aggregate(cart); !errors.Is(err, ErrInvalidDiscount) {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}

func TestAggregateSubTotalIsTaxExclusive(t *testing.T) {
	cart := Cart{Items: []LineItem{{UnitPrice: 11800, Quantity: qty("1"), TaxRate: qty("18")}}}
	tt, err := Aggregate(cart)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tt.SubTotal.Round(2).String(); got != "100" {
		t.Fatalf("expected tax-exclusive subtotal 100, got %s", got)
	}
	sum := tt.SubTotal.Add(tt.TotalTax)
	if sum.Round(2).String() != "118" {
		t.Fatalf("base+tax should reproduce the net total, got %s", sum)
	}
}
