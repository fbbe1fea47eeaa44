package billing

import (
	"errors"
	"net/http"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// AsAppError maps an engine rejection onto the canonical API error shape.
// Non-engine errors pass through unchanged.
func AsAppError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrLedgerPartyRequired):
		return common.NewAppError(common.CodeLedgerPartyRequired, err.Error(), http.StatusUnprocessableEntity, err)
	case errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrInvalidTaxRate),
		errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrEmptyReturn),
		errors.Is(err, ErrExcessReturn):
		return common.Validation(err.Error(), err)
	}
	return err
}
