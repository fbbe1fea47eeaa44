package bill_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/bill"
	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
)

type fakeTx struct {
	store      *fakeStore
	committed  bool
	rolledBack bool
	deductions map[uuid.UUID]money.Milli
	ledger     []money.Paise
	inserted   *bill.Bill
}

type fakeStore struct {
	products map[uuid.UUID]bill.ProductRow
	balance  money.Paise
	seq      int64
	lastTx   *fakeTx
}

func (s *fakeStore) Begin(context.Context) (bill.Tx, error) {
	tx := &fakeTx{store: s, deductions: map[uuid.UUID]money.Milli{}}
	s.lastTx = tx
	return tx, nil
}

func (s *fakeStore) Get(context.Context, uuid.UUID) (bill.Bill, error) {
	return bill.Bill{}, common.NotFound("bill not found")
}

func (s *fakeStore) List(context.Context, uuid.UUID, int, int) ([]bill.Bill, int, error) {
	return nil, 0, nil
}

func (t *fakeTx) LockProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bill.ProductRow, error) {
	out := map[uuid.UUID]bill.ProductRow{}
	for _, id := range ids {
		row, ok := t.store.products[id]
		if !ok {
			return nil, common.NotFound("product not found")
		}
		out[id] = row
	}
	return out, nil
}

func (t *fakeTx) DeductStock(_ context.Context, productID uuid.UUID, qtyMilli money.Milli) (money.Milli, error) {
	row := t.store.products[productID]
	row.StockMilli -= qtyMilli
	t.store.products[productID] = row
	t.deductions[productID] += qtyMilli
	return row.StockMilli, nil
}

func (t *fakeTx) NextBillNumber(context.Context) (string, error) {
	t.store.seq++
	return fmt.Sprintf("INV-%06d", t.store.seq), nil
}

func (t *fakeTx) InsertBill(_ context.Context, b *bill.Bill) error {
	b.ID = uuid.New()
	t.inserted = b
	return nil
}

func (t *fakeTx) ApplyLedger(_ context.Context, _ uuid.UUID, _ uuid.UUID, delta money.Paise, _ string) (money.Paise, error) {
	t.store.balance += delta
	t.ledger = append(t.ledger, delta)
	return t.store.balance, nil
}

func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) {
	if !t.committed {
		t.rolledBack = true
	}
}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newFixture() (*bill.Service, *fakeStore, uuid.UUID) {
	productID := uuid.New()
	store := &fakeStore{products: map[uuid.UUID]bill.ProductRow{
		productID: {
			ID:         productID,
			Name:       "Ghee 500ml",
			Price:      10000, // 100.00 tax inclusive
			GSTRate:    decimal.NewFromInt(18),
			StockMilli: 10_000, // 10 units
		},
	}}
	svc := &bill.Service{Store: store, Log: zerolog.Nop()}
	return svc, store, productID
}

func TestCheckoutFullySettled(t *testing.T) {
	svc, store, productID := newFixture()

	b, err := svc.Checkout(context.Background(), bill.CheckoutInput{
		Items: []bill.CheckoutItemInput{
			{ProductID: productID, Quantity: qty("2"), UnitDiscount: 1000},
		},
		Payments: []bill.PaymentEntry{{Mode: billing.ModeCash, Amount: 18000}},
	})
	require.NoError(t, err)
	require.Equal(t, "INV-000001", b.Number)
	require.EqualValues(t, 18000, b.GrandTotal)
	require.EqualValues(t, 18000, b.Paid)
	require.Equal(t, billing.StatusFullySettled, b.Status)
	require.EqualValues(t, 8000, store.products[productID].StockMilli, "stock drops by the sold quantity")
	require.True(t, store.lastTx.committed)
	require.Empty(t, store.lastTx.ledger, "a settled cash sale must not touch the ledger")
}

func TestCheckoutCreditPostsLedgerDelta(t *testing.T) {
	svc, store, productID := newFixture()
	customerID := uuid.New()

	b, err := svc.Checkout(context.Background(), bill.CheckoutInput{
		CustomerID: &customerID,
		Items: []bill.CheckoutItemInput{
			{ProductID: productID, Quantity: qty("1")},
		},
		Payments: []bill.PaymentEntry{
			{Mode: billing.ModeCash, Amount: 4000},
			{Mode: billing.ModeCredit, Amount: 6000},
		},
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusFullySettled, b.Status)
	require.EqualValues(t, 6000, b.Credit)
	require.Equal(t, []money.Paise{6000}, store.lastTx.ledger, "credit posts even on a fully accounted bill")
	require.NotNil(t, b.BalanceAfter)
	require.EqualValues(t, 6000, *b.BalanceAfter)
}

func TestCheckoutPartialWithoutCustomerFails(t *testing.T) {
	svc, store, productID := newFixture()

	_, err := svc.Checkout(context.Background(), bill.CheckoutInput{
		Items: []bill.CheckoutItemInput{
			{ProductID: productID, Quantity: qty("1")},
		},
		Payments: []bill.PaymentEntry{{Mode: billing.ModeCash, Amount: 5000}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeLedgerPartyRequired, appErr.Code)
	require.True(t, store.lastTx.rolledBack)
	require.EqualValues(t, 10_000, store.products[productID].StockMilli, "stock must be untouched on rejection")
}

func TestCheckoutInsufficientStock(t *testing.T) {
	svc, store, productID := newFixture()

	_, err := svc.Checkout(context.Background(), bill.CheckoutInput{
		Items: []bill.CheckoutItemInput{
			{ProductID: productID, Quantity: qty("11")},
		},
		Payments: []bill.PaymentEntry{{Mode: billing.ModeCash, Amount: 110000}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeInsufficientStock, appErr.Code)
	require.True(t, store.lastTx.rolledBack)
}

func TestCheckoutOverpaymentToLedgerBuildsAdvance(t *testing.T) {
	svc, store, productID := newFixture()
	customerID := uuid.New()

	b, err := svc.Checkout(context.Background(), bill.CheckoutInput{
		CustomerID: &customerID,
		Items: []bill.CheckoutItemInput{
			{ProductID: productID, Quantity: qty("1")},
		},
		Payments:          []bill.PaymentEntry{{Mode: billing.ModeCash, Amount: 12000}},
		OverpaymentAction: billing.AddToLedger,
	})
	require.NoError(t, err)
	require.EqualValues(t, 0, b.Returned)
	require.Equal(t, []money.Paise{-2000}, store.lastTx.ledger, "overpayment becomes a negative balance (advance)")
}

func TestCheckoutFractionalQuantity(t *testing.T) {
	svc, _, productID := newFixture()

	// 1.5 x 100.00 = 150.00, already whole; no round-off.
	b, err := svc.Checkout(context.Background(), bill.CheckoutInput{
		Items: []bill.CheckoutItemInput{
			{ProductID: productID, Quantity: qty("1.5")},
		},
		Payments: []bill.PaymentEntry{{Mode: billing.ModeCash, Amount: 15000}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 15000, b.GrandTotal)
	require.EqualValues(t, 0, b.RoundOff)
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	svc, _, _ := newFixture()
	_, err := svc.Checkout(context.Background(), bill.CheckoutInput{})
	require.ErrorIs(t, err, billing.ErrEmptyCart)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
}
