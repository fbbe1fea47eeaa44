package billing

import "errors"

var (
	// ErrInvalidDiscount is returned when a discount exceeds the amount it applies to.
	ErrInvalidDiscount = errors.New("discount exceeds the discountable amount")
	// ErrInvalidQuantity is returned for zero or negative quantities.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrInvalidPrice is returned for negative unit prices.
	ErrInvalidPrice = errors.New("unit price must not be negative")
	// ErrInvalidTaxRate is returned for negative tax rates.
	ErrInvalidTaxRate = errors.New("tax rate must not be negative")
	// ErrInvalidPayment is returned for malformed payment entries.
	ErrInvalidPayment = errors.New("invalid payment")
	// ErrEmptyCart is returned when checkout is attempted on a cart with no items.
	ErrEmptyCart = errors.New("cart has no items")
	// ErrEmptyReturn is returned when a return requests no quantity at all.
	ErrEmptyReturn = errors.New("return requests no quantity")
	// ErrExcessReturn is returned when a return exceeds the remaining returnable quantity.
	ErrExcessReturn = errors.New("returned quantity exceeds remaining quantity")
	// ErrLedgerPartyRequired is returned when a deferred or outstanding amount
	// has no customer or vendor to attach to.
	ErrLedgerPartyRequired = errors.New("an identified ledger party is required")
)
