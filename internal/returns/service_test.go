package returns_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/billing"
	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/lock"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/returns"
)

type fakeTx struct {
	store      *fakeStore
	committed  bool
	rolledBack bool
	stockMoves map[uuid.UUID]money.Milli
	ledger     []money.Paise
	ledgerType ledger.PartyType
}

type fakeStore struct {
	salesOrigin    returns.Origin
	purchaseOrigin returns.Origin
	balance        money.Paise
	seq            int64
	lastTx         *fakeTx
}

func (s *fakeStore) Begin(context.Context) (returns.Tx, error) {
	tx := &fakeTx{store: s, stockMoves: map[uuid.UUID]money.Milli{}}
	s.lastTx = tx
	return tx, nil
}

func (s *fakeStore) Get(context.Context, uuid.UUID) (returns.Return, error) {
	return returns.Return{}, common.NotFound("return not found")
}

func (s *fakeStore) List(context.Context, returns.Kind, int, int) ([]returns.Return, int, error) {
	return nil, 0, nil
}

func (t *fakeTx) LoadSalesOrigin(context.Context, uuid.UUID) (returns.Origin, error) {
	return t.store.salesOrigin, nil
}

func (t *fakeTx) LoadPurchaseOrigin(context.Context, uuid.UUID) (returns.Origin, error) {
	return t.store.purchaseOrigin, nil
}

func (t *fakeTx) AdjustStock(_ context.Context, productID uuid.UUID, deltaMilli money.Milli) error {
	t.stockMoves[productID] += deltaMilli
	return nil
}

func (t *fakeTx) NextReturnNumber(context.Context) (string, error) {
	t.store.seq++
	return fmt.Sprintf("RET-%06d", t.store.seq), nil
}

func (t *fakeTx) InsertReturn(_ context.Context, ret *returns.Return) error {
	ret.ID = uuid.New()
	return nil
}

func (t *fakeTx) ApplyLedger(_ context.Context, pt ledger.PartyType, _ uuid.UUID, _ uuid.UUID, delta money.Paise, _ string) (money.Paise, error) {
	t.ledgerType = pt
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

func newService(t *testing.T, store *fakeStore) *returns.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return &returns.Service{
		Store:   store,
		Locker:  lock.Locker{R: client, RetryBackoff: time.Millisecond},
		Log:     zerolog.Nop(),
		LockTTL: time.Second,
	}
}

func TestSalesReturnLedgerRefund(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: &customerID,
		Lines: map[uuid.UUID]returns.OriginLine{
			productID: {ProductID: productID, UnitPrice: 10000, UnitDiscount: 1000, TransactedMilli: 5000},
		},
	}}
	svc := newService(t, store)

	ret, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: productID, Quantity: qty("2")}},
		RefundMode: billing.RefundLedger,
		Reason:     "wrong size",
	})
	require.NoError(t, err)
	require.Equal(t, "RET-000001", ret.Number)
	require.EqualValues(t, 18000, ret.RefundTotal, "2 x (100.00 - 10.00)")
	require.Equal(t, []money.Paise{-18000}, store.lastTx.ledger, "ledger refund credits the customer")
	require.Equal(t, ledger.PartyCustomer, store.lastTx.ledgerType)
	require.EqualValues(t, 2000, store.lastTx.stockMoves[productID], "sold goods come back into stock")
	require.True(t, store.lastTx.committed)
}

func TestSalesReturnCashLeavesLedgerAlone(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: &customerID,
		Lines: map[uuid.UUID]returns.OriginLine{
			productID: {ProductID: productID, UnitPrice: 5000, TransactedMilli: 3000},
		},
	}}
	svc := newService(t, store)

	ret, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: productID, Quantity: qty("1")}},
		RefundMode: billing.RefundCash,
	})
	require.NoError(t, err)
	require.EqualValues(t, 5000, ret.RefundTotal)
	require.Empty(t, store.lastTx.ledger)
}

func TestSalesReturnCumulativeBound(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: &customerID,
		Lines: map[uuid.UUID]returns.OriginLine{
			// Sold 5, already returned 4: at most 1 more may come back.
			productID: {ProductID: productID, UnitPrice: 5000, TransactedMilli: 5000, ReturnedMilli: 4000},
		},
	}}
	svc := newService(t, store)

	_, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: productID, Quantity: qty("2")}},
		RefundMode: billing.RefundCash,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
	require.True(t, store.lastTx.rolledBack)
}

func TestSalesReturnSplitAcrossLinesSharesBound(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: &customerID,
		Lines: map[uuid.UUID]returns.OriginLine{
			// Sold 5, already returned 4: at most 1 more may come back.
			productID: {ProductID: productID, UnitPrice: 5000, TransactedMilli: 5000, ReturnedMilli: 4000},
		},
	}}
	svc := newService(t, store)

	// Each line alone is within the remaining quantity; together they are not.
	_, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID: uuid.New(),
		Items: []returns.ItemInput{
			{ProductID: productID, Quantity: qty("1")},
			{ProductID: productID, Quantity: qty("1")},
		},
		RefundMode: billing.RefundCash,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
	require.True(t, store.lastTx.rolledBack)
	require.Empty(t, store.lastTx.stockMoves)
}

func TestSalesReturnMergesDuplicateLines(t *testing.T) {
	customerID := uuid.New()
	productID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: &customerID,
		Lines: map[uuid.UUID]returns.OriginLine{
			productID: {ProductID: productID, UnitPrice: 5000, TransactedMilli: 5000},
		},
	}}
	svc := newService(t, store)

	ret, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID: uuid.New(),
		Items: []returns.ItemInput{
			{ProductID: productID, Quantity: qty("1")},
			{ProductID: productID, Quantity: qty("2")},
		},
		RefundMode: billing.RefundCash,
	})
	require.NoError(t, err)
	require.EqualValues(t, 15000, ret.RefundTotal, "3 x 50.00 refunded once")
	require.Len(t, ret.Items, 1, "duplicate lines collapse onto one")
	require.True(t, ret.Items[0].Quantity.Equal(qty("3")))
	require.EqualValues(t, 3000, store.lastTx.stockMoves[productID], "stock restored once")
}

func TestPurchaseReturnSendsStockOut(t *testing.T) {
	vendorID := uuid.New()
	productID := uuid.New()
	store := &fakeStore{purchaseOrigin: returns.Origin{
		PartyID: &vendorID,
		Lines: map[uuid.UUID]returns.OriginLine{
			productID: {ProductID: productID, UnitPrice: 4000, TransactedMilli: 10_000},
		},
	}}
	svc := newService(t, store)

	ret, err := svc.CreatePurchase(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: productID, Quantity: qty("3")}},
		RefundMode: billing.RefundLedger,
		Reason:     "damaged batch",
	})
	require.NoError(t, err)
	require.EqualValues(t, 12000, ret.RefundTotal, "3 x purchase price 40.00")
	require.Equal(t, []money.Paise{-12000}, store.lastTx.ledger, "reduces what the business owes the vendor")
	require.Equal(t, ledger.PartyVendor, store.lastTx.ledgerType)
	require.EqualValues(t, -3000, store.lastTx.stockMoves[productID], "returned goods leave stock")
}

func TestLedgerRefundWithoutPartyFails(t *testing.T) {
	productID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: nil, // walk-in sale
		Lines: map[uuid.UUID]returns.OriginLine{
			productID: {ProductID: productID, UnitPrice: 5000, TransactedMilli: 2000},
		},
	}}
	svc := newService(t, store)

	_, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: productID, Quantity: qty("1")}},
		RefundMode: billing.RefundLedger,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeLedgerPartyRequired, appErr.Code)
}

func TestReturnRequiresReferenceForUPI(t *testing.T) {
	svc := newService(t, &fakeStore{})
	_, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: uuid.New(), Quantity: qty("1")}},
		RefundMode: billing.RefundUPI,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
}

func TestReturnUnknownProductRejected(t *testing.T) {
	customerID := uuid.New()
	store := &fakeStore{salesOrigin: returns.Origin{
		PartyID: &customerID,
		Lines:   map[uuid.UUID]returns.OriginLine{},
	}}
	svc := newService(t, store)

	_, err := svc.CreateSales(context.Background(), returns.CreateInput{
		OriginID:   uuid.New(),
		Items:      []returns.ItemInput{{ProductID: uuid.New(), Quantity: qty("1")}},
		RefundMode: billing.RefundCash,
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, common.CodeValidation, appErr.Code)
}
