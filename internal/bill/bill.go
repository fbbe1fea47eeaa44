package bill

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Item is one finalized bill line. Name and prices are denormalized at
// checkout time so later catalog edits never rewrite history.
type Item struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    money.Paise     `json:"unitPrice"`
	Quantity     decimal.Decimal `json:"quantity"`
	GSTRate      decimal.Decimal `json:"gstRate"`
	UnitDiscount money.Paise     `json:"unitDiscount"`
	Total        money.Paise     `json:"total"`
}

// PaymentEntry is one settlement layer on a bill.
type PaymentEntry struct {
	Mode      billing.Mode `json:"mode"`
	Amount    money.Paise  `json:"amount"`
	Reference string       `json:"reference,omitempty"`
}

// Bill is a finalized sale.
type Bill struct {
	ID                uuid.UUID                 `json:"id"`
	Number            string                    `json:"number"`
	CustomerID        *uuid.UUID                `json:"customerId,omitempty"`
	CashierID         *uuid.UUID                `json:"cashierId,omitempty"`
	SubTotal          money.Paise               `json:"subTotal"`
	Tax               money.Paise               `json:"tax"`
	ItemDiscount      money.Paise               `json:"itemDiscount"`
	BillDiscount      money.Paise               `json:"billDiscount"`
	TotalDiscount     money.Paise               `json:"totalDiscount"`
	GrandTotal        money.Paise               `json:"grandTotal"`
	RoundOff          money.Paise               `json:"roundOff"`
	Paid              money.Paise               `json:"paid"`
	Returned          money.Paise               `json:"returned"`
	Credit            money.Paise               `json:"credit"`
	Balance           money.Paise               `json:"balance"`
	Status            billing.Status            `json:"status"`
	OverpaymentAction billing.OverpaymentAction `json:"overpaymentAction"`
	BalanceAfter      *money.Paise              `json:"ledgerBalanceAfter,omitempty"`
	Items             []Item                    `json:"items"`
	Payments          []PaymentEntry            `json:"payments"`
	CreatedAt         time.Time                 `json:"createdAt"`
}

// CheckoutItemInput is one requested cart line. Price, name and tax rate are
// resolved from the catalog under lock, never trusted from the client.
type CheckoutItemInput struct {
	ProductID    uuid.UUID       `json:"productId" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitDiscount money.Paise     `json:"unitDiscount" validate:"gte=0"`
}

// CheckoutInput is the decoded checkout payload.
type CheckoutInput struct {
	CustomerID        *uuid.UUID                `json:"customerId"`
	Items             []CheckoutItemInput       `json:"items" validate:"dive"`
	BillDiscount      money.Paise               `json:"billDiscount" validate:"gte=0"`
	Payments          []PaymentEntry            `json:"payments" validate:"dive"`
	OverpaymentAction billing.OverpaymentAction `json:"overpaymentAction" validate:"omitempty,oneof=return ledger"`
}
