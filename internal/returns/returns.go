package returns

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Kind distinguishes goods coming back from a customer (sales) from goods
// going back to a vendor (purchase).
type Kind string

const (
	KindSales    Kind = "sales"
	KindPurchase Kind = "purchase"
)

// Item is one processed return line. Unit amounts are copied from the origin
// document, never re-read from the catalog.
type Item struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    money.Paise     `json:"unitPrice"`
	UnitDiscount money.Paise     `json:"unitDiscount"`
	Refund       money.Paise     `json:"refund"`
}

// Return is a processed return against one origin document.
type Return struct {
	ID              uuid.UUID          `json:"id"`
	Number          string             `json:"number"`
	Kind            Kind               `json:"kind"`
	BillID          *uuid.UUID         `json:"billId,omitempty"`
	PurchaseID      *uuid.UUID         `json:"purchaseId,omitempty"`
	RefundTotal     money.Paise        `json:"refundTotal"`
	RefundMode      billing.RefundMode `json:"refundMode"`
	RefundReference string             `json:"refundReference,omitempty"`
	Reason          string             `json:"reason,omitempty"`
	BalanceAfter    *money.Paise       `json:"ledgerBalanceAfter,omitempty"`
	Items           []Item             `json:"items"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// ItemInput requests a quantity back for one product on the origin document.
type ItemInput struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateInput is the decoded return payload. OriginID is the bill for sales
// returns and the purchase voucher for purchase returns.
type CreateInput struct {
	OriginID        uuid.UUID          `json:"originId" validate:"required"`
	Items           []ItemInput        `json:"items" validate:"required,min=1,dive"`
	RefundMode      billing.RefundMode `json:"refundMode" validate:"required"`
	RefundReference string             `json:"refundReference" validate:"max=128"`
	Reason          string             `json:"reason" validate:"max=500"`
}
