package purchase_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/purchase"
)

type receivedStock struct {
	productID       uuid.UUID
	qtyMilli        money.Milli
	purchasePrice   money.Paise
	newSellingPrice *money.Paise
}

type fakeTx struct {
	store     *fakeStore
	committed bool
	received  []receivedStock
	ledger    []money.Paise
}

type fakeStore struct {
	balance money.Paise
	seq     int64
	lastTx  *fakeTx
}

func (s *fakeStore) Begin(context.Context) (purchase.Tx, error) {
	tx := &fakeTx{store: s}
	s.lastTx = tx
	return tx, nil
}

func (s *fakeStore) Get(context.Context, uuid.UUID) (purchase.Purchase, error) {
	return purchase.Purchase{}, common.NotFound("purchase not found")
}

func (s *fakeStore) List(context.Context, uuid.UUID, int, int) ([]purchase.Purchase, int, error) {
	return nil, 0, nil
}

func (t *fakeTx) ReceiveStock(_ context.Context, productID uuid.UUID, qtyMilli money.Milli, price money.Paise, newSelling *money.Paise) error {
	t.received = append(t.received, receivedStock{productID, qtyMilli, price, newSelling})
	return nil
}

func (t *fakeTx) NextVoucherNumber(context.Context) (string, error) {
	t.store.seq++
	return fmt.Sprintf("PUR-%06d", t.store.seq), nil
}

func (t *fakeTx) InsertPurchase(_ context.Context, p *purchase.Purchase) error {
	p.ID = uuid.New()
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

func (t *fakeTx) Rollback(context.Context) {}

func qty(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateVoucherOnFullCredit(t *testing.T) {
	store := &fakeStore{}
	svc := &purchase.Service{Store: store, Log: zerolog.Nop()}
	vendorID := uuid.New()
	productID := uuid.New()
	newPrice := money.Paise(6500)

	p, err := svc.Create(context.Background(), purchase.CreateInput{
		VendorID: vendorID,
		Items: []purchase.ItemInput{
			{ProductID: productID, Quantity: qty("10"), PurchasePrice: 5000, NewSellingPrice: &newPrice},
		},
		Payments: []purchase.PaymentEntry{{Mode: billing.ModeCredit, Amount: 50000}},
	})
	require.NoError(t, err)
	require.Equal(t, "PUR-000001", p.Number)
	require.EqualValues(t, 50000, p.Total)
	require.EqualValues(t, 50000, p.Credit)
	require.Equal(t, billing.StatusFullySettled, p.Status)
	require.Equal(t, []money.Paise{50000}, store.lastTx.ledger, "full credit owes the vendor the whole total")

	require.Len(t, store.lastTx.received, 1)
	got := store.lastTx.received[0]
	require.EqualValues(t, 10_000, got.qtyMilli)
	require.NotNil(t, got.newSellingPrice)
	require.EqualValues(t, 6500, *got.newSellingPrice)
}

func TestCreateVoucherPartiallyPaid(t *testing.T) {
	store := &fakeStore{}
	svc := &purchase.Service{Store: store, Log: zerolog.Nop()}

	p, err := svc.Create(context.Background(), purchase.CreateInput{
		VendorID: uuid.New(),
		Items: []purchase.ItemInput{
			{ProductID: uuid.New(), Quantity: qty("4"), PurchasePrice: 2500},
		},
		Payments: []purchase.PaymentEntry{{Mode: billing.ModeCash, Amount: 6000}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 10000, p.Total)
	require.EqualValues(t, 6000, p.Paid)
	require.EqualValues(t, 4000, p.Balance)
	require.Equal(t, billing.StatusPartiallySettled, p.Status)
	require.Equal(t, []money.Paise{4000}, store.lastTx.ledger)
}

func TestCreateVoucherFractionalQuantity(t *testing.T) {
	store := &fakeStore{}
	svc := &purchase.Service{Store: store, Log: zerolog.Nop()}

	// 2.5 kg at 40.00/kg = 100.00
	p, err := svc.Create(context.Background(), purchase.CreateInput{
		VendorID: uuid.New(),
		Items: []purchase.ItemInput{
			{ProductID: uuid.New(), Quantity: qty("2.5"), PurchasePrice: 4000},
		},
		Payments: []purchase.PaymentEntry{{Mode: billing.ModeCash, Amount: 10000}},
	})
	require.NoError(t, err)
	require.EqualValues(t, 10000, p.Total)
	require.Equal(t, billing.StatusFullySettled, p.Status)
}

func TestCreateVoucherOverpaymentToLedgerBuildsAdvance(t *testing.T) {
	store := &fakeStore{}
	svc := &purchase.Service{Store: store, Log: zerolog.Nop()}

	p, err := svc.Create(context.Background(), purchase.CreateInput{
		VendorID: uuid.New(),
		Items: []purchase.ItemInput{
			{ProductID: uuid.New(), Quantity: qty("2"), PurchasePrice: 5000},
		},
		Payments:          []purchase.PaymentEntry{{Mode: billing.ModeCash, Amount: 12000}},
		OverpaymentAction: billing.AddToLedger,
	})
	require.NoError(t, err)
	require.EqualValues(t, 10000, p.Total)
	require.Equal(t, billing.StatusFullySettled, p.Status)
	require.Equal(t, []money.Paise{-2000}, store.lastTx.ledger, "advance reduces what is owed to the vendor")
}

func TestCreateVoucherOverpaymentDefaultsToCashReturn(t *testing.T) {
	store := &fakeStore{}
	svc := &purchase.Service{Store: store, Log: zerolog.Nop()}

	p, err := svc.Create(context.Background(), purchase.CreateInput{
		VendorID: uuid.New(),
		Items: []purchase.ItemInput{
			{ProductID: uuid.New(), Quantity: qty("2"), PurchasePrice: 5000},
		},
		Payments: []purchase.PaymentEntry{{Mode: billing.ModeCash, Amount: 12000}},
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusFullySettled, p.Status)
	require.Empty(t, store.lastTx.ledger, "change handed back, nothing posts to the ledger")
}

func TestCreateVoucherRejectsZeroQuantity(t *testing.T) {
	svc := &purchase.Service{Store: &fakeStore{}, Log: zerolog.Nop()}
	_, err := svc.Create(context.Background(), purchase.CreateInput{
		VendorID: uuid.New(),
		Items: []purchase.ItemInput{
			{ProductID: uuid.New(), Quantity: decimal.Zero, PurchasePrice: 4000},
		},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
}

func TestCreateVoucherRequiresVendor(t *testing.T) {
	svc := &purchase.Service{Store: &fakeStore{}, Log: zerolog.Nop()}
	_, err := svc.Create(context.Background(), purchase.CreateInput{
		Items: []purchase.ItemInput{
			{ProductID: uuid.New(), Quantity: qty("1"), PurchasePrice: 4000},
		},
	})
	require.Error(t, err)
}
