package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// Product is one sellable item. Prices are tax-inclusive: the listed price
// is what the customer pays per unit before discounts, and the GST portion
// is derived from it at billing time.
type Product struct {
	ID            uuid.UUID       `json:"id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode,omitempty"`
	HSN           string          `json:"hsn,omitempty"`
	Price         money.Paise     `json:"price"`
	PurchasePrice money.Paise     `json:"purchasePrice"`
	GSTRate       decimal.Decimal `json:"gstRate"`
	Stock         decimal.Decimal `json:"stock"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// CreateInput is the decoded product create payload.
type CreateInput struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Barcode       string          `json:"barcode" validate:"max=64"`
	HSN           string          `json:"hsn" validate:"max=16"`
	Price         money.Paise     `json:"price" validate:"gte=0"`
	PurchasePrice money.Paise     `json:"purchasePrice" validate:"gte=0"`
	GSTRate       decimal.Decimal `json:"gstRate"`
	Stock         decimal.Decimal `json:"stock"`
}

// UpdateInput is the decoded product update payload. Stock is absent on
// purpose: stock only moves through checkouts, purchase vouchers, returns
// and explicit adjustments, never a plain edit.
type UpdateInput struct {
	Name          string          `json:"name" validate:"required,min=1,max=200"`
	Barcode       string          `json:"barcode" validate:"max=64"`
	HSN           string          `json:"hsn" validate:"max=16"`
	Price         money.Paise     `json:"price" validate:"gte=0"`
	PurchasePrice money.Paise     `json:"purchasePrice" validate:"gte=0"`
	GSTRate       decimal.Decimal `json:"gstRate"`
}

// AdjustStockInput applies a signed stock correction outside the document flow
// (damage, shrinkage, count fixes).
type AdjustStockInput struct {
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason" validate:"required,min=1,max=200"`
}
