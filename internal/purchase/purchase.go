package purchase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Item is one received voucher line. NewSellingPrice, when present, updates
// the product's sticker price as part of the same transaction.
type Item struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"productId"`
	Quantity        decimal.Decimal `json:"quantity"`
	PurchasePrice   money.Paise     `json:"purchasePrice"`
	NewSellingPrice *money.Paise    `json:"newSellingPrice,omitempty"`
	Total           money.Paise     `json:"total"`
}

// PaymentEntry is one settlement layer on a voucher.
type PaymentEntry struct {
	Mode      billing.Mode `json:"mode"`
	Amount    money.Paise  `json:"amount"`
	Reference string       `json:"reference,omitempty"`
}

// Purchase is a received vendor voucher.
type Purchase struct {
	ID           uuid.UUID      `json:"id"`
	Number       string         `json:"number"`
	VendorID     uuid.UUID      `json:"vendorId"`
	Total        money.Paise    `json:"total"`
	Paid         money.Paise    `json:"paid"`
	Credit       money.Paise    `json:"credit"`
	Balance      money.Paise    `json:"balance"`
	Status       billing.Status `json:"status"`
	BalanceAfter *money.Paise   `json:"ledgerBalanceAfter,omitempty"`
	Items        []Item         `json:"items"`
	Payments     []PaymentEntry `json:"payments"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// ItemInput is one requested voucher line.
type ItemInput struct {
	ProductID       uuid.UUID       `json:"productId" validate:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	PurchasePrice   money.Paise     `json:"purchasePrice" validate:"gte=0"`
	NewSellingPrice *money.Paise    `json:"newSellingPrice"`
}

// CreateInput is the decoded voucher payload. A vendor is mandatory: unlike a
// walk-in sale, goods always arrive from somewhere.
type CreateInput struct {
	VendorID          uuid.UUID                 `json:"vendorId" validate:"required"`
	Items             []ItemInput               `json:"items" validate:"required,min=1,dive"`
	Payments          []PaymentEntry            `json:"payments" validate:"dive"`
	OverpaymentAction billing.OverpaymentAction `json:"overpaymentAction" validate:"omitempty,oneof=return ledger"`
}
