package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// RefundMode is the disposition of a computed refund. Ledger routes the
// amount through the party's running balance; everything else is recorded
// for audit only.
type RefundMode string

const (
	RefundLedger RefundMode = "Ledger"
	RefundCash   RefundMode = "Cash"
	RefundUPI    RefundMode = "UPI"
	RefundBank   RefundMode = "Bank"
)

// Known reports whether the refund mode is accepted.
func (m RefundMode) Known() bool {
	switch m {
	case RefundLedger, RefundCash, RefundUPI, RefundBank:
		return true
	}
	return false
}

// ReturnLine describes one origin line of a bill or purchase voucher along
// with the quantity requested back. Transacted is the originally sold or
// bought quantity; AlreadyReturned is the cumulative quantity of prior
// returns against the same origin line.
type ReturnLine struct {
	ProductRef      string
	UnitPrice       money.Paise // sale price for sales returns, purchase price for purchase returns
	UnitDiscount    money.Paise // per-unit discount actually charged (zero for purchases)
	Transacted      decimal.Decimal
	AlreadyReturned decimal.Decimal
	Quantity        decimal.Decimal // requested now, may be zero to skip the line
}

// Refund is the computed outcome of a return.
type Refund struct {
	LineAmounts []money.Paise
	Total       money.Paise
}

// ComputeRefund mirrors the net unit price actually charged on the origin
// document: qty x (price - discount). The cumulative return bound is
// enforced per line; a return with no quantity at all is rejected.
func ComputeRefund(lines []ReturnLine) (Refund, error) {
	r := Refund{LineAmounts: make([]money.Paise, 0, len(lines))}
	total := decimal.Zero
	any := false
	for i, ln := range lines {
		if ln.Quantity.IsNegative() {
			return Refund{}, fmt.Errorf("%w: line %d", ErrInvalidQuantity, i)
		}
		if ln.UnitDiscount < 0 || ln.UnitDiscount > ln.UnitPrice {
			return Refund{}, fmt.Errorf("%w: line %d", ErrInvalidDiscount, i)
		}
		remaining := ln.Transacted.Sub(ln.AlreadyReturned)
		if ln.Quantity.GreaterThan(remaining) {
			return Refund{}, fmt.Errorf("%w: line %d requests %s of remaining %s", ErrExcessReturn, i, ln.Quantity, remaining)
		}
		amount := money.FromPaise(ln.UnitPrice - ln.UnitDiscount).Mul(ln.Quantity)
		r.LineAmounts = append(r.LineAmounts, money.ToPaise(amount))
		total = total.Add(amount)
		if ln.Quantity.IsPositive() {
			any = true
		}
	}
	if !any {
		return Refund{}, ErrEmptyReturn
	}
	r.Total = money.ToPaise(total)
	return r, nil
}

// RefundLedgerDelta returns the signed ledger delta a refund applies to the
// origin party. Only the Ledger disposition touches the running balance; the
// sign is opposite to the original sale or purchase delta, so the party is
// owed the refunded amount.
func RefundLedgerDelta(total money.Paise, mode RefundMode) money.Paise {
	if mode != RefundLedger {
		return 0
	}
	return -total
}
