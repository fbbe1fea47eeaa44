package returns

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/lock"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
)

// Service processes returns. The per-origin Redis lock brackets the whole
// read-check-write so two concurrent returns against the same document are
// serialized before either reads the cumulative returned quantities.
type Service struct {
	Store   Store
	Locker  lock.Locker
	Bus     *events.Bus
	Log     zerolog.Logger
	LockTTL time.Duration
}

// CreateSales processes goods coming back from a customer: refunds mirror the
// net price actually charged on the bill, stock goes back up and a Ledger
// disposition credits the customer's balance.
func (s *Service) CreateSales(ctx context.Context, in CreateInput) (Return, error) {
	return s.create(ctx, KindSales, in)
}

// CreatePurchase processes goods going back to a vendor: refunds mirror the
// voucher's purchase price, stock goes down and a Ledger disposition reduces
// what the business owes the vendor.
func (s *Service) CreatePurchase(ctx context.Context, in CreateInput) (Return, error) {
	return s.create(ctx, KindPurchase, in)
}

func (s *Service) create(ctx context.Context, kind Kind, in CreateInput) (Return, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Return{}, err
	}
	if !in.RefundMode.Known() {
		return Return{}, common.Validation(fmt.Sprintf("unknown refund mode %q", in.RefundMode), nil)
	}
	if needsReference(in.RefundMode) && strings.TrimSpace(in.RefundReference) == "" {
		return Return{}, common.Validation(fmt.Sprintf("%s refund requires a reference", in.RefundMode), nil)
	}

	var ret Return
	err := s.Locker.WithLock(ctx, lock.ReturnKey(string(kind), in.OriginID), s.LockTTL, func(ctx context.Context) error {
		var err error
		ret, err = s.createLocked(ctx, kind, in)
		return err
	})
	if err != nil {
		return Return{}, err
	}

	if obs.ReturnsCreatedTotal != nil {
		obs.ReturnsCreatedTotal.WithLabelValues(string(kind)).Inc()
	}
	s.Log.Info().
		Str("return", ret.Number).
		Str("kind", string(kind)).
		Int64("refund_total", ret.RefundTotal).
		Str("refund_mode", string(ret.RefundMode)).
		Msg("return processed")

	if s.Bus != nil {
		if _, emitErr := s.Bus.Emit(ctx, events.TopicReturnCreated, ret.ID, ret); emitErr != nil {
			s.Log.Warn().Err(emitErr).Str("return", ret.Number).Msg("return event fan-out failed")
		}
	}
	return ret, nil
}

func (s *Service) createLocked(ctx context.Context, kind Kind, in CreateInput) (Return, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return Return{}, err
	}
	defer tx.Rollback(ctx)

	var origin Origin
	if kind == KindSales {
		origin, err = tx.LoadSalesOrigin(ctx, in.OriginID)
	} else {
		origin, err = tx.LoadPurchaseOrigin(ctx, in.OriginID)
	}
	if err != nil {
		return Return{}, err
	}

	items := mergeLines(in.Items)
	lines := make([]billing.ReturnLine, len(items))
	for i, it := range items {
		ln, ok := origin.Lines[it.ProductID]
		if !ok {
			return Return{}, common.Validation(fmt.Sprintf("product %s is not on the origin document", it.ProductID), nil)
		}
		lines[i] = billing.ReturnLine{
			ProductRef:      it.ProductID.String(),
			UnitPrice:       ln.UnitPrice,
			UnitDiscount:    ln.UnitDiscount,
			Transacted:      money.FromMilli(ln.TransactedMilli),
			AlreadyReturned: money.FromMilli(ln.ReturnedMilli),
			Quantity:        it.Quantity,
		}
	}
	refund, err := billing.ComputeRefund(lines)
	if err != nil {
		return Return{}, billing.AsAppError(err)
	}

	if in.RefundMode == billing.RefundLedger && origin.PartyID == nil {
		return Return{}, common.NewAppError(common.CodeLedgerPartyRequired,
			"ledger refund requires an identified party on the origin document", 422, nil)
	}

	// Sales returns bring goods back in; purchase returns send them out.
	sign := money.Milli(1)
	if kind == KindPurchase {
		sign = -1
	}
	for _, it := range items {
		if !it.Quantity.IsPositive() {
			continue
		}
		if err := tx.AdjustStock(ctx, it.ProductID, sign*money.ToMilli(it.Quantity)); err != nil {
			return Return{}, err
		}
	}

	number, err := tx.NextReturnNumber(ctx)
	if err != nil {
		return Return{}, err
	}

	ret := Return{
		Number:          number,
		Kind:            kind,
		RefundTotal:     refund.Total,
		RefundMode:      in.RefundMode,
		RefundReference: strings.TrimSpace(in.RefundReference),
		Reason:          in.Reason,
	}
	originID := in.OriginID
	if kind == KindSales {
		ret.BillID = &originID
	} else {
		ret.PurchaseID = &originID
	}
	for i, it := range items {
		if !it.Quantity.IsPositive() {
			continue
		}
		ln := origin.Lines[it.ProductID]
		ret.Items = append(ret.Items, Item{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			UnitPrice:    ln.UnitPrice,
			UnitDiscount: ln.UnitDiscount,
			Refund:       refund.LineAmounts[i],
		})
	}
	if err := tx.InsertReturn(ctx, &ret); err != nil {
		return Return{}, err
	}

	if delta := billing.RefundLedgerDelta(refund.Total, in.RefundMode); delta != 0 {
		pt := ledger.PartyCustomer
		if kind == KindPurchase {
			pt = ledger.PartyVendor
		}
		after, err := tx.ApplyLedger(ctx, pt, *origin.PartyID, ret.ID, delta, number)
		if err != nil {
			return Return{}, err
		}
		ret.BalanceAfter = &after
	}

	if err := tx.Commit(ctx); err != nil {
		return Return{}, err
	}
	return ret, nil
}

// Get loads one return with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Return, error) {
	return s.Store.Get(ctx, id)
}

// List pages returns newest first, optionally filtered by kind.
func (s *Service) List(ctx context.Context, kind Kind, limit, offset int) ([]Return, int, error) {
	if kind != "" && kind != KindSales && kind != KindPurchase {
		return nil, 0, common.Validation("unknown return kind", nil)
	}
	return s.Store.List(ctx, kind, limit, offset)
}

func needsReference(m billing.RefundMode) bool {
	return m == billing.RefundUPI || m == billing.RefundBank
}

// mergeLines collapses repeated products onto one line. The cumulative bound
// is per product, so a quantity split across request lines must be checked
// as one.
func mergeLines(items []ItemInput) []ItemInput {
	merged := make([]ItemInput, 0, len(items))
	at := make(map[uuid.UUID]int, len(items))
	for _, it := range items {
		if i, ok := at[it.ProductID]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(it.Quantity)
			continue
		}
		at[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}
