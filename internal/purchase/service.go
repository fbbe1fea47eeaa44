package purchase

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
)

// Service records vendor vouchers: stock in, purchase prices refreshed, the
// vendor ledger carrying whatever is not paid on the spot.
type Service struct {
	Store Store
	Bus   *events.Bus
	Log   zerolog.Logger
}

// Create records a voucher. Voucher totals are plain sums of line totals;
// purchase prices are entered, not derived, so there is no tax split or
// rupee rounding here.
func (s *Service) Create(ctx context.Context, in CreateInput) (Purchase, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Purchase{}, err
	}

	total := decimal.Zero
	lineTotals := make([]money.Paise, len(in.Items))
	for i, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return Purchase{}, billing.AsAppError(billing.ErrInvalidQuantity)
		}
		if it.PurchasePrice < 0 {
			return Purchase{}, billing.AsAppError(billing.ErrInvalidPrice)
		}
		amount := money.FromPaise(it.PurchasePrice).Mul(it.Quantity)
		lineTotals[i] = money.ToPaise(amount)
		total = total.Add(amount)
	}
	grand := money.ToPaise(total)

	pays := make([]billing.Payment, len(in.Payments))
	for i, p := range in.Payments {
		pays[i] = billing.Payment{Mode: p.Mode, Amount: p.Amount, Reference: p.Reference}
	}
	// A vendor is always attached, so hasParty is unconditionally true.
	alloc, err := billing.Allocate(grand, pays, true)
	if err != nil {
		return Purchase{}, billing.AsAppError(err)
	}
	settlement, err := billing.Settle(alloc, in.OverpaymentAction, true)
	if err != nil {
		return Purchase{}, billing.AsAppError(err)
	}

	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Purchase{}, err
	}
	defer tx.Rollback(ctx)

	for _, it := range in.Items {
		if err := tx.ReceiveStock(ctx, it.ProductID, money.ToMilli(it.Quantity), it.PurchasePrice, it.NewSellingPrice); err != nil {
			return Purchase{}, err
		}
	}

	number, err := tx.NextVoucherNumber(ctx)
	if err != nil {
		return Purchase{}, err
	}

	p := Purchase{
		Number:   number,
		VendorID: in.VendorID,
		Total:    grand,
		Paid:     settlement.PaidAmount,
		Credit:   alloc.CreditTotal,
		Balance:  settlement.BalanceAmount,
		Status:   settlement.Status,
		Payments: in.Payments,
	}
	for i, it := range in.Items {
		p.Items = append(p.Items, Item{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			PurchasePrice:   it.PurchasePrice,
			NewSellingPrice: it.NewSellingPrice,
			Total:           lineTotals[i],
		})
	}
	if err := tx.InsertPurchase(ctx, &p); err != nil {
		return Purchase{}, err
	}

	if settlement.LedgerDelta != 0 {
		after, err := tx.ApplyLedger(ctx, in.VendorID, p.ID, settlement.LedgerDelta, number)
		if err != nil {
			return Purchase{}, err
		}
		p.BalanceAfter = &after
	}

	if err := tx.Commit(ctx); err != nil {
		return Purchase{}, err
	}

	if obs.PurchasesCreatedTotal != nil {
		obs.PurchasesCreatedTotal.WithLabelValues(string(p.Status)).Inc()
	}
	s.Log.Info().
		Str("voucher", p.Number).
		Int64("total", p.Total).
		Str("status", string(p.Status)).
		Msg("purchase voucher recorded")

	if s.Bus != nil {
		if _, emitErr := s.Bus.Emit(ctx, events.TopicPurchaseCreated, p.ID, p); emitErr != nil {
			s.Log.Warn().Err(emitErr).Str("voucher", p.Number).Msg("purchase event fan-out failed")
		}
	}
	return p, nil
}

// Get loads one voucher with lines and payments.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	return s.Store.Get(ctx, id)
}

// List pages vouchers newest first, optionally for one vendor.
func (s *Service) List(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]Purchase, int, error) {
	return s.Store.List(ctx, vendorID, limit, offset)
}
