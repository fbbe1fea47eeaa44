package billing

import (
	"fmt"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// Status is the terminal settlement state of a bill or voucher.
type Status string

const (
	StatusUnsettled        Status = "Unsettled"
	StatusPartiallySettled Status = "Partially Settled"
	StatusFullySettled     Status = "Fully Settled"
)

// OverpaymentAction chooses what happens to money received beyond the grand
// total. The wire values match the settlement dialog.
type OverpaymentAction string

const (
	ReturnCash  OverpaymentAction = "return"
	AddToLedger OverpaymentAction = "ledger"
)

// Settlement is the resolved outcome of one checkout or voucher settlement.
// LedgerDelta is signed in the party's ledger convention: positive increases
// what the party owes the business (or what the business owes a vendor).
type Settlement struct {
	Status         Status
	PaidAmount     money.Paise // cash-equivalent received now
	ReturnedAmount money.Paise // change handed back on overpayment
	BalanceAmount  money.Paise // outstanding due carried on the document, >= 0
	LedgerDelta    money.Paise
}

// Settle resolves an allocation into its terminal outcome.
//
// Any Credit-mode sum always posts to the ledger regardless of the balance
// sign: Credit is a deferred-collection promise, not settlement, so the
// receivable must survive even on an otherwise fully paid bill.
func Settle(a Allocation, action OverpaymentAction, hasParty bool) (Settlement, error) {
	s := Settlement{
		Status:      StatusFullySettled,
		PaidAmount:  a.CashPaid,
		LedgerDelta: a.CreditTotal,
	}
	if a.CreditTotal > 0 && !hasParty {
		return Settlement{}, fmt.Errorf("%w: credit amount with no party", ErrLedgerPartyRequired)
	}

	switch {
	case a.Balance > 0:
		if !hasParty {
			return Settlement{}, fmt.Errorf("%w: balance of %d remains", ErrLedgerPartyRequired, a.Balance)
		}
		s.BalanceAmount = a.Balance
		s.LedgerDelta += a.Balance
		if a.Accounted == 0 {
			s.Status = StatusUnsettled
		} else {
			s.Status = StatusPartiallySettled
		}

	case a.Balance < 0:
		if action == "" || !hasParty {
			action = ReturnCash
		}
		switch action {
		case ReturnCash:
			s.ReturnedAmount = -a.Balance
		case AddToLedger:
			if !hasParty {
				return Settlement{}, fmt.Errorf("%w: cannot post overpayment to ledger", ErrLedgerPartyRequired)
			}
			s.LedgerDelta += a.Balance // negative: builds an advance
		default:
			return Settlement{}, fmt.Errorf("%w: unknown overpayment action %q", ErrInvalidPayment, action)
		}
	}
	return s, nil
}
