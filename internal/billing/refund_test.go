package billing

import (
	"errors"
	"testing"
)

func TestComputeRefundMirrorsNetPrice(t *testing.T) {
	// sold 5 at 100.00 with 10.00/unit discount, returning 2
	r, err := ComputeRefund([]ReturnLine{{
		UnitPrice:    10000,
		UnitDiscount: 1000,
		Transacted:   qty("5"),
		Quantity:     qty("2"),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Total != 18000 {
		t.Fatalf("expected refund 18000 paise, got %d", r.Total)
	}
	if RefundLedgerDelta(r.Total, RefundLedger) != -18000 {
		t.Fatalf("expected ledger delta -18000")
	}
	if RefundLedgerDelta(r.Total, RefundCash) != 0 {
		t.Fatalf("cash refunds must not touch the ledger")
	}
}

func TestComputeRefundHonoursCumulativeBound(t *testing.T) {
	_, err := ComputeRefund([]ReturnLine{{
		UnitPrice:       10000,
		Transacted:      qty("5"),
		AlreadyReturned: qty("4"),
		Quantity:        qty("2"),
	}})
	if !errors.Is(err, ErrExcessReturn) {
		t.Fatalf("expected ErrExcessReturn, got %v", err)
	}
}

func TestComputeRefundRejectsEmptyReturn(t *testing.T) {
	_, err := ComputeRefund([]ReturnLine{
		{UnitPrice: 10000, Transacted: qty("5"), Quantity: qty("0")},
		{UnitPrice: 2000, Transacted: qty("1"), Quantity: qty("0")},
	})
	if !errors.Is(err, ErrEmptyReturn) {
		t.Fatalf("expected ErrEmptyReturn, got %v", err)
	}
}

func TestComputeRefundSkipsZeroLines(t *testing.T) {
	r, err := ComputeRefund([]ReturnLine{
		{UnitPrice: 10000, Transacted: qty("5"), Quantity: qty("0")},
		{UnitPrice: 2500, Transacted: qty("4"), Quantity: qty("4")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.LineAmounts[0] != 0 {
		t.Fatalf("expected zero refund on skipped line")
	}
	if r.Total != 10000 {
		t.Fatalf("expected refund 10000 paise, got %d", r.Total)
	}
}

func TestComputeRefundFractionalQuantity(t *testing.T) {
	// 0.750 kg back out of 2.000 kg at 80.00/kg
	r, err := ComputeRefund([]ReturnLine{{
		UnitPrice:  8000,
		Transacted: qty("2.000"),
		Quantity:   qty("0.750"),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Total != 6000 {
		t.Fatalf("expected refund 6000 paise, got %d", r.Total)
	}
}
