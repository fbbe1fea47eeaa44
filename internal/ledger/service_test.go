package ledger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/money"
)

type stubStore struct {
	lastDraft ledger.ReceiptDraft
	receipt   ledger.Receipt
	entries   []ledger.Entry
}

func (s *stubStore) CreateReceipt(_ context.Context, draft ledger.ReceiptDraft) (ledger.Receipt, error) {
	s.lastDraft = draft
	rec := s.receipt
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	rec.Number = "RCP-000001"
	rec.PartyType = draft.PartyType
	rec.PartyID = draft.PartyID
	rec.TotalPaid = draft.TotalPaid
	rec.Discount = draft.Discount
	rec.Payments = draft.Payments
	return rec, nil
}

func (s *stubStore) GetReceipt(_ context.Context, id uuid.UUID) (ledger.Receipt, error) {
	if s.receipt.ID != id {
		return ledger.Receipt{}, common.NotFound("receipt not found")
	}
	return s.receipt, nil
}

func (s *stubStore) ListReceipts(context.Context, ledger.PartyType, uuid.UUID, int, int) ([]ledger.Receipt, int, error) {
	return []ledger.Receipt{s.receipt}, 1, nil
}

func (s *stubStore) ListEntries(context.Context, ledger.PartyType, uuid.UUID, int, int) ([]ledger.Entry, int, error) {
	return s.entries, len(s.entries), nil
}

func newService(store *stubStore) *ledger.Service {
	return &ledger.Service{Store: store, Log: zerolog.Nop()}
}

func TestCreateReceiptPostsNegativeDelta(t *testing.T) {
	store := &stubStore{}
	svc := newService(store)

	rec, err := svc.CreateReceipt(context.Background(), ledger.CreateReceiptInput{
		PartyType: "customer",
		PartyID:   uuid.New(),
		TotalPaid: 50000,
		Discount:  2000,
		Payments: []ledger.ReceiptPayment{
			{Mode: billing.ModeCash, Amount: 30000},
			{Mode: billing.ModeUPI, Amount: 20000, Reference: "upi-123"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, money.Paise(-52000), store.lastDraft.Delta, "delta covers paid amount plus waived discount")
	require.Equal(t, "RCP-000001", rec.Number)
}

func TestCreateReceiptRejectsCreditMode(t *testing.T) {
	svc := newService(&stubStore{})
	_, err := svc.CreateReceipt(context.Background(), ledger.CreateReceiptInput{
		PartyType: "customer",
		PartyID:   uuid.New(),
		TotalPaid: 10000,
		Payments:  []ledger.ReceiptPayment{{Mode: billing.ModeCredit, Amount: 10000}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
}

func TestCreateReceiptRejectsLayerMismatch(t *testing.T) {
	svc := newService(&stubStore{})
	_, err := svc.CreateReceipt(context.Background(), ledger.CreateReceiptInput{
		PartyType: "vendor",
		PartyID:   uuid.New(),
		TotalPaid: 10000,
		Payments:  []ledger.ReceiptPayment{{Mode: billing.ModeCash, Amount: 9000}},
	})
	require.Error(t, err)
}

func TestCreateReceiptRequiresReference(t *testing.T) {
	svc := newService(&stubStore{})
	_, err := svc.CreateReceipt(context.Background(), ledger.CreateReceiptInput{
		PartyType: "customer",
		PartyID:   uuid.New(),
		TotalPaid: 10000,
		Payments:  []ledger.ReceiptPayment{{Mode: billing.ModeBank, Amount: 10000}},
	})
	require.Error(t, err)
}

func TestCreateReceiptHandler(t *testing.T) {
	store := &stubStore{}
	h := &ledger.Handler{Svc: newService(store)}
	r := chi.NewRouter()
	r.Route("/ledger", h.Routes)

	body, err := json.Marshal(map[string]any{
		"partyType": "customer",
		"partyId":   uuid.New(),
		"totalPaid": 11800,
		"payments":  []map[string]any{{"mode": "Cash", "amount": 11800}},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/ledger/receipts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data ledger.Receipt `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, money.Paise(11800), resp.Data.TotalPaid)
	require.Equal(t, "RCP-000001", resp.Data.Number)
}

func TestCreateReceiptHandlerValidationStatus(t *testing.T) {
	h := &ledger.Handler{Svc: newService(&stubStore{})}
	r := chi.NewRouter()
	r.Route("/ledger", h.Routes)

	req := httptest.NewRequest(http.MethodPost, "/ledger/receipts", bytes.NewReader([]byte(`{"partyType":"customer"}`)))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
