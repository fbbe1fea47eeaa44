package party

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Party is a customer or a vendor with a running ledger balance. The sign
// convention is fixed per party type: for customers positive means the
// customer owes the business, for vendors positive means the business owes
// the vendor.
type Party struct {
	ID             uuid.UUID        `json:"id"`
	Type           ledger.PartyType `json:"type"`
	Name           string           `json:"name"`
	Phone          string           `json:"phone,omitempty"`
	Email          string           `json:"email,omitempty"`
	Address        string           `json:"address,omitempty"`
	OpeningBalance money.Paise      `json:"openingBalance"`
	LedgerBalance  money.Paise      `json:"ledgerBalance"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// CreateInput is the decoded create payload.
type CreateInput struct {
	Name           string      `json:"name" validate:"required,min=1,max=200"`
	Phone          string      `json:"phone" validate:"max=32"`
	Email          string      `json:"email" validate:"omitempty,email"`
	Address        string      `json:"address" validate:"max=500"`
	OpeningBalance money.Paise `json:"openingBalance"`
}

// UpdateInput is the decoded update payload. Balances are never edited
// directly; they only move through bills, vouchers, returns and receipts.
type UpdateInput struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
}
