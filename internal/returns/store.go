package returns

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// OriginLine is one product's position on the origin document: what was
// transacted and how much has already gone back.
type OriginLine struct {
	ProductID       uuid.UUID
	UnitPrice       money.Paise
	UnitDiscount    money.Paise
	TransactedMilli money.Milli
	ReturnedMilli   money.Milli
}

// Origin is the resolved origin document.
type Origin struct {
	PartyID *uuid.UUID
	Lines   map[uuid.UUID]OriginLine
}

// Tx is one in-flight return transaction.
type Tx interface {
	LoadSalesOrigin(ctx context.Context, billID uuid.UUID) (Origin, error)
	LoadPurchaseOrigin(ctx context.Context, purchaseID uuid.UUID) (Origin, error)
	// AdjustStock applies a signed stock movement; draining below zero is an
	// insufficient-stock rejection.
	AdjustStock(ctx context.Context, productID uuid.UUID, deltaMilli money.Milli) error
	NextReturnNumber(ctx context.Context) (string, error)
	InsertReturn(ctx context.Context, ret *Return) error
	ApplyLedger(ctx context.Context, pt ledger.PartyType, partyID, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// Store abstracts return persistence.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, id uuid.UUID) (Return, error)
	List(ctx context.Context, kind Kind, limit, offset int) ([]Return, int, error)
}

// PGStore is the Postgres-backed return store.
type PGStore struct {
	Pool         *pgxpool.Pool
	ReturnPrefix string
}

type pgTx struct {
	tx     pgx.Tx
	prefix string
}

func (s *PGStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, common.Transient(err)
	}
	return &pgTx{tx: tx, prefix: s.ReturnPrefix}, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return common.Transient(err)
	}
	return nil
}

func (t *pgTx) Rollback(ctx context.Context) {
	_ = t.tx.Rollback(ctx)
}

func (t *pgTx) LoadSalesOrigin(ctx context.Context, billID uuid.UUID) (Origin, error) {
	o := Origin{Lines: map[uuid.UUID]OriginLine{}}
	if err := t.tx.QueryRow(ctx, "SELECT customer_id FROM bills WHERE id = $1", billID).Scan(&o.PartyID); err != nil {
		if err == pgx.ErrNoRows {
			return Origin{}, common.NotFound("bill not found")
		}
		return Origin{}, err
	}

	rows, err := t.tx.Query(ctx,
		"SELECT product_id, unit_price_paise, unit_discount_paise, qty_milli FROM bill_items WHERE bill_id = $1", billID)
	if err != nil {
		return Origin{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id          uuid.UUID
			price, disc money.Paise
			qtyMilli    money.Milli
		)
		if err := rows.Scan(&id, &price, &disc, &qtyMilli); err != nil {
			return Origin{}, err
		}
		ln := o.Lines[id]
		ln.ProductID = id
		ln.UnitPrice = price
		ln.UnitDiscount = disc
		ln.TransactedMilli += qtyMilli
		o.Lines[id] = ln
	}
	if err := rows.Err(); err != nil {
		return Origin{}, err
	}
	return o, t.loadReturned(ctx, "bill_id", billID, o.Lines)
}

func (t *pgTx) LoadPurchaseOrigin(ctx context.Context, purchaseID uuid.UUID) (Origin, error) {
	o := Origin{Lines: map[uuid.UUID]OriginLine{}}
	var vendorID uuid.UUID
	if err := t.tx.QueryRow(ctx, "SELECT vendor_id FROM purchases WHERE id = $1", purchaseID).Scan(&vendorID); err != nil {
		if err == pgx.ErrNoRows {
			return Origin{}, common.NotFound("purchase not found")
		}
		return Origin{}, err
	}
	o.PartyID = &vendorID

	rows, err := t.tx.Query(ctx,
		"SELECT product_id, purchase_price_paise, qty_milli FROM purchase_items WHERE purchase_id = $1", purchaseID)
	if err != nil {
		return Origin{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id       uuid.UUID
			price    money.Paise
			qtyMilli money.Milli
		)
		if err := rows.Scan(&id, &price, &qtyMilli); err != nil {
			return Origin{}, err
		}
		ln := o.Lines[id]
		ln.ProductID = id
		ln.UnitPrice = price
		ln.TransactedMilli += qtyMilli
		o.Lines[id] = ln
	}
	if err := rows.Err(); err != nil {
		return Origin{}, err
	}
	return o, t.loadReturned(ctx, "purchase_id", purchaseID, o.Lines)
}

func (t *pgTx) loadReturned(ctx context.Context, originCol string, originID uuid.UUID, lines map[uuid.UUID]OriginLine) error {
	q := fmt.Sprintf(`SELECT ri.product_id, COALESCE(SUM(ri.qty_milli), 0)
FROM return_items ri
JOIN returns r ON r.id = ri.return_id
WHERE r.%s = $1
GROUP BY ri.product_id`, originCol)
	rows, err := t.tx.Query(ctx, q, originID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id       uuid.UUID
			qtyMilli money.Milli
		)
		if err := rows.Scan(&id, &qtyMilli); err != nil {
			return err
		}
		ln := lines[id]
		ln.ReturnedMilli = qtyMilli
		lines[id] = ln
	}
	return rows.Err()
}

func (t *pgTx) AdjustStock(ctx context.Context, productID uuid.UUID, deltaMilli money.Milli) error {
	const q = `UPDATE products SET stock_milli = stock_milli + $1, updated_at = now()
WHERE id = $2 AND stock_milli + $1 >= 0`
	tag, err := t.tx.Exec(ctx, q, deltaMilli, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NewAppError(common.CodeInsufficientStock, "stock cannot go negative", 409, nil)
	}
	return nil
}

func (t *pgTx) NextReturnNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, "SELECT nextval('return_number_seq')").Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", t.prefix, seq), nil
}

func (t *pgTx) InsertReturn(ctx context.Context, ret *Return) error {
	const insert = `INSERT INTO returns (return_number, kind, bill_id, purchase_id, refund_total_paise, refund_mode, refund_reference, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at`
	if err := t.tx.QueryRow(ctx, insert,
		ret.Number, string(ret.Kind), ret.BillID, ret.PurchaseID, ret.RefundTotal, string(ret.RefundMode), ret.RefundReference, ret.Reason,
	).Scan(&ret.ID, &ret.CreatedAt); err != nil {
		return fmt.Errorf("insert return: %w", err)
	}

	const insertItem = `INSERT INTO return_items (return_id, product_id, qty_milli, unit_price_paise, unit_discount_paise, refund_paise)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	for i := range ret.Items {
		it := &ret.Items[i]
		if err := t.tx.QueryRow(ctx, insertItem,
			ret.ID, it.ProductID, money.ToMilli(it.Quantity), it.UnitPrice, it.UnitDiscount, it.Refund,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert return item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) ApplyLedger(ctx context.Context, pt ledger.PartyType, partyID, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error) {
	return ledger.Apply(ctx, t.tx, pt, partyID, "return", refID, delta, note)
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Return, error) {
	const q = `SELECT id, return_number, kind, bill_id, purchase_id, refund_total_paise, refund_mode, refund_reference, reason, created_at
FROM returns WHERE id = $1`
	ret, err := scanReturn(s.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return Return{}, err
	}

	const itemsQ = `SELECT id, product_id, qty_milli, unit_price_paise, unit_discount_paise, refund_paise
FROM return_items WHERE return_id = $1`
	rows, err := s.Pool.Query(ctx, itemsQ, id)
	if err != nil {
		return Return{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it       Item
			qtyMilli money.Milli
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &qtyMilli, &it.UnitPrice, &it.UnitDiscount, &it.Refund); err != nil {
			return Return{}, err
		}
		it.Quantity = money.FromMilli(qtyMilli)
		ret.Items = append(ret.Items, it)
	}
	return ret, rows.Err()
}

func (s *PGStore) List(ctx context.Context, kind Kind, limit, offset int) ([]Return, int, error) {
	where := ""
	args := []any{}
	if kind != "" {
		where = "WHERE kind = $1"
		args = append(args, string(kind))
	}

	var total int
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM returns "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := fmt.Sprintf(`SELECT id, return_number, kind, bill_id, purchase_id, refund_total_paise, refund_mode, refund_reference, reason, created_at
FROM returns %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Return
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ret)
	}
	return out, total, rows.Err()
}

func scanReturn(row pgx.Row) (Return, error) {
	var ret Return
	err := row.Scan(&ret.ID, &ret.Number, &ret.Kind, &ret.BillID, &ret.PurchaseID, &ret.RefundTotal, &ret.RefundMode, &ret.RefundReference, &ret.Reason, &ret.CreatedAt)
	if err == pgx.ErrNoRows {
		return Return{}, common.NotFound("return not found")
	}
	if err != nil {
		return Return{}, err
	}
	return ret, nil
}
