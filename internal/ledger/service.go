package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
)

// ReceiptPayment is one settlement layer of a ledger receipt.
type ReceiptPayment struct {
	Mode      billing.Mode `json:"mode"`
	Amount    money.Paise  `json:"amount"`
	Reference string       `json:"reference,omitempty"`
}

// Receipt is a standalone payment against a party's running balance,
// independent of any single bill or voucher.
type Receipt struct {
	ID           uuid.UUID        `json:"id"`
	Number       string           `json:"number"`
	PartyType    PartyType        `json:"partyType"`
	PartyID      uuid.UUID        `json:"partyId"`
	TotalPaid    money.Paise      `json:"totalPaid"`
	Discount     money.Paise      `json:"discount"`
	BalanceAfter money.Paise      `json:"balanceAfter"`
	Note         string           `json:"note,omitempty"`
	Payments     []ReceiptPayment `json:"payments"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// ReceiptDraft is a validated receipt ready to be persisted atomically with
// its ledger delta.
type ReceiptDraft struct {
	PartyType PartyType
	PartyID   uuid.UUID
	TotalPaid money.Paise
	Discount  money.Paise
	Delta     money.Paise
	Note      string
	Payments  []ReceiptPayment
}

// Store abstracts receipt and journal persistence.
type Store interface {
	CreateReceipt(ctx context.Context, draft ReceiptDraft) (Receipt, error)
	GetReceipt(ctx context.Context, id uuid.UUID) (Receipt, error)
	ListReceipts(ctx context.Context, pt PartyType, partyID uuid.UUID, limit, offset int) ([]Receipt, int, error)
	ListEntries(ctx context.Context, pt PartyType, partyID uuid.UUID, limit, offset int) ([]Entry, int, error)
}

// Service validates receipt submissions and posts them to the ledger.
type Service struct {
	Store Store
	Bus   *events.Bus
	Log   zerolog.Logger
}

// CreateReceiptInput is the decoded receipt submission.
type CreateReceiptInput struct {
	PartyType string           `json:"partyType" validate:"required,oneof=customer vendor"`
	PartyID   uuid.UUID        `json:"partyId" validate:"required"`
	TotalPaid money.Paise      `json:"totalPaid" validate:"required,gt=0"`
	Discount  money.Paise      `json:"discount" validate:"gte=0"`
	Note      string           `json:"note" validate:"max=500"`
	Payments  []ReceiptPayment `json:"payments" validate:"required,min=1,dive"`
}

// CreateReceipt posts a payment receipt. The payment layers must cover the
// paid amount exactly and Credit is not a valid mode here: a receipt is the
// collection of credit, not the extension of it. A settlement discount
// (waived dues) reduces the balance alongside the money received, so the
// ledger delta is -(totalPaid + discount).
func (s *Service) CreateReceipt(ctx context.Context, in CreateReceiptInput) (Receipt, error) {
	if err := common.ValidateStruct(in); err != nil {
		return Receipt{}, err
	}
	pt := PartyType(in.PartyType)

	pays := make([]billing.Payment, len(in.Payments))
	for i, p := range in.Payments {
		if p.Mode == billing.ModeCredit {
			return Receipt{}, common.Validation("credit is not a valid receipt payment mode", nil)
		}
		pays[i] = billing.Payment{Mode: p.Mode, Amount: p.Amount, Reference: p.Reference}
	}
	alloc, err := billing.Allocate(in.TotalPaid, pays, true)
	if err != nil {
		return Receipt{}, common.Validation(err.Error(), err)
	}
	if alloc.Balance != 0 {
		return Receipt{}, common.Validation("payment layers must sum to the paid amount", nil)
	}

	rec, err := s.Store.CreateReceipt(ctx, ReceiptDraft{
		PartyType: pt,
		PartyID:   in.PartyID,
		TotalPaid: in.TotalPaid,
		Discount:  in.Discount,
		Delta:     -(in.TotalPaid + in.Discount),
		Note:      in.Note,
		Payments:  in.Payments,
	})
	if err != nil {
		return Receipt{}, err
	}

	if obs.ReceiptsCreatedTotal != nil {
		obs.ReceiptsCreatedTotal.WithLabelValues(string(pt)).Inc()
	}
	if s.Bus != nil {
		if _, emitErr := s.Bus.Emit(ctx, events.TopicReceiptCreated, rec.ID, rec); emitErr != nil {
			s.Log.Warn().Err(emitErr).Str("receipt", rec.Number).Msg("receipt event fan-out failed")
		}
	}
	s.Log.Info().
		Str("receipt", rec.Number).
		Str("party_type", string(rec.PartyType)).
		Int64("total_paid", rec.TotalPaid).
		Int64("balance_after", rec.BalanceAfter).
		Msg("receipt created")
	return rec, nil
}

// GetReceipt loads a single receipt with its payment layers.
func (s *Service) GetReceipt(ctx context.Context, id uuid.UUID) (Receipt, error) {
	return s.Store.GetReceipt(ctx, id)
}

// ListReceipts returns receipts, optionally filtered to one party.
func (s *Service) ListReceipts(ctx context.Context, pt PartyType, partyID uuid.UUID, limit, offset int) ([]Receipt, int, error) {
	if pt != "" && !pt.Known() {
		return nil, 0, common.Validation("unknown party type", nil)
	}
	return s.Store.ListReceipts(ctx, pt, partyID, limit, offset)
}

// ListEntries returns a party's journal, newest first.
func (s *Service) ListEntries(ctx context.Context, pt PartyType, partyID uuid.UUID, limit, offset int) ([]Entry, int, error) {
	if !pt.Known() {
		return nil, 0, common.Validation("unknown party type", nil)
	}
	return s.Store.ListEntries(ctx, pt, partyID, limit, offset)
}
