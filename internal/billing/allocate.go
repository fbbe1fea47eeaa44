package billing

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// Mode identifies how a payment entry was received.
type Mode string

const (
	ModeCash Mode = "Cash"
	ModeUPI  Mode = "UPI"
	ModeCard Mode = "Card"
	ModeBank Mode = "Bank"
	// ModeCredit is a deferred-collection acknowledgment: the amount is
	// accounted against the bill but posted to the party's ledger instead of
	// being collected now.
	ModeCredit Mode = "Credit"
)

// Known reports whether the mode is one of the accepted payment modes.
func (m Mode) Known() bool {
	switch m {
	case ModeCash, ModeUPI, ModeCard, ModeBank, ModeCredit:
		return true
	}
	return false
}

// NeedsReference reports whether an instrument reference must accompany a
// non-zero payment in this mode.
func (m Mode) NeedsReference() bool {
	switch m {
	case ModeUPI, ModeCard, ModeBank:
		return true
	}
	return false
}

// Payment is a single settlement entry against a bill or voucher.
type Payment struct {
	Mode      Mode
	Amount    money.Paise
	Reference string
}

// Allocation is the result of matching payment entries against a target
// amount. Cash-equivalent receipts and Credit deferrals are kept as two
// distinct sums; folding them together is the classic way this bookkeeping
// goes wrong.
type Allocation struct {
	CashPaid    money.Paise // sum of non-Credit entries, money actually received
	CreditTotal money.Paise // sum of Credit entries, deferred to the ledger
	Accounted   money.Paise // CashPaid + CreditTotal
	Balance     money.Paise // target - Accounted; positive = due, negative = overpaid
}

// Allocate validates the payment list against the target amount and computes
// the allocation. hasParty reports whether an identified customer or vendor
// is attached; Credit entries and any positive remaining balance require one.
func Allocate(target money.Paise, payments []Payment, hasParty bool) (Allocation, error) {
	if target < 0 {
		return Allocation{}, fmt.Errorf("%w: negative target %d", ErrInvalidPayment, target)
	}
	if len(payments) == 0 && target > 0 {
		return Allocation{}, fmt.Errorf("%w: no payment entries", ErrInvalidPayment)
	}

	var a Allocation
	for i, p := range payments {
		if !p.Mode.Known() {
			return Allocation{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidPayment, p.Mode)
		}
		if p.Amount < 0 {
			return Allocation{}, fmt.Errorf("%w: negative amount in entry %d", ErrInvalidPayment, i)
		}
		if p.Amount > 0 && p.Mode.NeedsReference() && strings.TrimSpace(p.Reference) == "" {
			return Allocation{}, fmt.Errorf("%w: %s payment requires a reference", ErrInvalidPayment, p.Mode)
		}
		if p.Mode == ModeCredit {
			if !hasParty {
				return Allocation{}, fmt.Errorf("%w: credit entry without a party", ErrLedgerPartyRequired)
			}
			a.CreditTotal += p.Amount
		} else {
			a.CashPaid += p.Amount
		}
	}
	a.Accounted = a.CashPaid + a.CreditTotal
	a.Balance = target - a.Accounted

	if a.Balance > 0 && !hasParty {
		return Allocation{}, fmt.Errorf("%w: balance of %d remains", ErrLedgerPartyRequired, a.Balance)
	}
	return a, nil
}
