package bill

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
)

// Service runs checkouts end to end: pricing, settlement, stock movement and
// the ledger posting, all inside one transaction.
type Service struct {
	Store   Store
	Bus     *events.Bus
	Catalog *catalog.Service
	Log     zerolog.Logger
}

// Checkout finalizes a sale. Product prices and tax rates are read from the
// catalog under row locks, never from the request; the request only names
// products, quantities, discounts and payments.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (Bill, error) {
	if len(in.Items) == 0 {
		return Bill{}, billing.AsAppError(billing.ErrEmptyCart)
	}
	if err := common.ValidateStruct(in); err != nil {
		return Bill{}, err
	}
	hasParty := in.CustomerID != nil && *in.CustomerID != uuid.Nil

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Bill{}, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return Bill{}, err
	}

	cart := billing.Cart{BillDiscount: in.BillDiscount}
	for _, it := range in.Items {
		p := products[it.ProductID]
		cart.Items = append(cart.Items, billing.LineItem{
			ProductRef:   p.ID.String(),
			UnitPrice:    p.Price,
			Quantity:     it.Quantity,
			TaxRate:      p.GSTRate,
			UnitDiscount: it.UnitDiscount,
		})
	}
	totals, err := billing.Aggregate(cart)
	if err != nil {
		return Bill{}, billing.AsAppError(err)
	}

	pays := make([]billing.Payment, len(in.Payments))
	for i, p := range in.Payments {
		pays[i] = billing.Payment{Mode: p.Mode, Amount: p.Amount, Reference: p.Reference}
	}
	alloc, err := billing.Allocate(totals.GrandTotal, pays, hasParty)
	if err != nil {
		return Bill{}, billing.AsAppError(err)
	}
	settlement, err := billing.Settle(alloc, in.OverpaymentAction, hasParty)
	if err != nil {
		return Bill{}, billing.AsAppError(err)
	}

	// Stock moves after pricing so an invalid cart never locks rows longer
	// than needed. Aggregated per product: the same item may appear on two
	// lines of one bill.
	required := map[uuid.UUID]money.Milli{}
	for _, it := range in.Items {
		required[it.ProductID] += money.ToMilli(it.Quantity)
	}
	for id, qtyMilli := range required {
		p := products[id]
		if p.StockMilli < qtyMilli {
			if obs.StockConflictsTotal != nil {
				obs.StockConflictsTotal.Inc()
			}
			return Bill{}, common.NewAppError(common.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %s", p.Name), http.StatusConflict, nil)
		}
	}
	remaining := map[uuid.UUID]money.Milli{}
	for id, qtyMilli := range required {
		left, err := tx.DeductStock(ctx, id, qtyMilli)
		if err != nil {
			return Bill{}, err
		}
		remaining[id] = left
	}

	number, err := tx.NextBillNumber(ctx)
	if err != nil {
		return Bill{}, err
	}

	b := Bill{
		Number:            number,
		CustomerID:        in.CustomerID,
		CashierID:         cashierID(ctx),
		SubTotal:          money.ToPaise(totals.SubTotal),
		Tax:               money.ToPaise(totals.TotalTax),
		ItemDiscount:      money.ToPaise(totals.ItemDiscount),
		BillDiscount:      in.BillDiscount,
		TotalDiscount:     money.ToPaise(totals.TotalDiscount),
		GrandTotal:        totals.GrandTotal,
		RoundOff:          money.ToPaise(totals.RoundOff),
		Paid:              settlement.PaidAmount,
		Returned:          settlement.ReturnedAmount,
		Credit:            alloc.CreditTotal,
		Balance:           settlement.BalanceAmount,
		Status:            settlement.Status,
		OverpaymentAction: overpaymentOrDefault(in.OverpaymentAction),
		Payments:          in.Payments,
	}
	for i, it := range in.Items {
		p := products[it.ProductID]
		b.Items = append(b.Items, Item{
			ProductID:    p.ID,
			Name:         p.Name,
			UnitPrice:    p.Price,
			Quantity:     it.Quantity,
			GSTRate:      p.GSTRate,
			UnitDiscount: it.UnitDiscount,
			Total:        money.ToPaise(totals.Lines[i].LineTotal),
		})
	}
	if err := tx.InsertBill(ctx, &b); err != nil {
		return Bill{}, err
	}

	if settlement.LedgerDelta != 0 {
		after, err := tx.ApplyLedger(ctx, *in.CustomerID, b.ID, settlement.LedgerDelta, number)
		if err != nil {
			if appErr, ok := err.(*common.AppError); ok && appErr.Code == common.CodeFatalInconsistency && obs.LedgerInconsistencyTotal != nil {
				obs.LedgerInconsistencyTotal.Inc()
			}
			return Bill{}, err
		}
		b.BalanceAfter = &after
	}

	if err := tx.Commit(ctx); err != nil {
		return Bill{}, err
	}

	if obs.BillsCreatedTotal != nil {
		obs.BillsCreatedTotal.WithLabelValues(string(b.Status)).Inc()
	}
	s.Log.Info().
		Str("bill", b.Number).
		Int64("grand_total", b.GrandTotal).
		Str("status", string(b.Status)).
		Int64("ledger_delta", settlement.LedgerDelta).
		Msg("checkout finalized")

	if s.Bus != nil {
		if _, emitErr := s.Bus.Emit(ctx, events.TopicBillCreated, b.ID, b); emitErr != nil {
			s.Log.Warn().Err(emitErr).Str("bill", b.Number).Msg("bill event fan-out failed")
		}
	}
	if s.Catalog != nil {
		for id, left := range remaining {
			p := products[id]
			s.Catalog.FlagIfLow(ctx, catalog.Product{ID: p.ID, Name: p.Name, Stock: money.FromMilli(left)})
		}
	}
	return b, nil
}

// Get loads one bill with lines and payments.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Bill, error) {
	return s.Store.Get(ctx, id)
}

// List pages bills newest first, optionally for one customer.
func (s *Service) List(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Bill, int, error) {
	return s.Store.List(ctx, customerID, limit, offset)
}

func overpaymentOrDefault(a billing.OverpaymentAction) billing.OverpaymentAction {
	if a == "" {
		return billing.ReturnCash
	}
	return a
}

func cashierID(ctx context.Context) *uuid.UUID {
	raw, ok := common.UserID(ctx)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
