package bill

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// ProductRow is a product snapshot read under row lock during checkout.
type ProductRow struct {
	ID         uuid.UUID
	Name       string
	Price      money.Paise
	GSTRate    decimal.Decimal
	StockMilli money.Milli
}

// Tx is one in-flight checkout transaction. Everything between Begin and
// Commit shares one Postgres transaction so stock, the bill and the ledger
// move together or not at all.
type Tx interface {
	// LockProducts reads the listed products FOR UPDATE in a deterministic
	// order. Missing ids surface as a not-found error.
	LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductRow, error)
	DeductStock(ctx context.Context, productID uuid.UUID, qtyMilli money.Milli) (money.Milli, error)
	NextBillNumber(ctx context.Context) (string, error)
	InsertBill(ctx context.Context, b *Bill) error
	ApplyLedger(ctx context.Context, partyID uuid.UUID, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// Store abstracts bill persistence.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, id uuid.UUID) (Bill, error)
	List(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Bill, int, error)
}

// PGStore is the Postgres-backed bill store.
type PGStore struct {
	Pool       *pgxpool.Pool
	BillPrefix string
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
	return &pgTx{tx: tx, prefix: s.BillPrefix}, nil
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

func (t *pgTx) LockProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ProductRow, error) {
	// Deterministic lock order keeps two concurrent checkouts over the same
	// products from deadlocking each other.
	sorted := append([]uuid.UUID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].String() < sorted[j].String() })

	out := make(map[uuid.UUID]ProductRow, len(sorted))
	const q = `SELECT id, name, price_paise, gst_rate, stock_milli FROM products WHERE id = $1 FOR UPDATE`
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		var row ProductRow
		if err := t.tx.QueryRow(ctx, q, id).Scan(&row.ID, &row.Name, &row.Price, &row.GSTRate, &row.StockMilli); err != nil {
			if err == pgx.ErrNoRows {
				return nil, common.NotFound(fmt.Sprintf("product %s not found", id))
			}
			return nil, err
		}
		out[id] = row
	}
	return out, nil
}

func (t *pgTx) DeductStock(ctx context.Context, productID uuid.UUID, qtyMilli money.Milli) (money.Milli, error) {
	var remaining money.Milli
	const q = `UPDATE products SET stock_milli = stock_milli - $1, updated_at = now() WHERE id = $2 RETURNING stock_milli`
	if err := t.tx.QueryRow(ctx, q, qtyMilli, productID).Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

func (t *pgTx) NextBillNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, "SELECT nextval('bill_number_seq')").Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", t.prefix, seq), nil
}

func (t *pgTx) InsertBill(ctx context.Context, b *Bill) error {
	const insertBill = `INSERT INTO bills (bill_number, customer_id, cashier_id, sub_total_paise, tax_paise, item_discount_paise, bill_discount_paise, total_discount_paise, grand_total_paise, round_off_paise, paid_paise, returned_paise, credit_paise, balance_paise, status, overpayment_action)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
RETURNING id, created_at`
	if err := t.tx.QueryRow(ctx, insertBill,
		b.Number, b.CustomerID, b.CashierID, b.SubTotal, b.Tax, b.ItemDiscount, b.BillDiscount, b.TotalDiscount,
		b.GrandTotal, b.RoundOff, b.Paid, b.Returned, b.Credit, b.Balance, string(b.Status), string(b.OverpaymentAction),
	).Scan(&b.ID, &b.CreatedAt); err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}

	const insertItem = `INSERT INTO bill_items (bill_id, product_id, name, unit_price_paise, qty_milli, gst_rate, unit_discount_paise, total_paise)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`
	for i := range b.Items {
		it := &b.Items[i]
		if err := t.tx.QueryRow(ctx, insertItem,
			b.ID, it.ProductID, it.Name, it.UnitPrice, money.ToMilli(it.Quantity), it.GSTRate, it.UnitDiscount, it.Total,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert bill item: %w", err)
		}
	}

	const insertPayment = `INSERT INTO bill_payments (bill_id, mode, amount_paise, reference) VALUES ($1, $2, $3, $4)`
	for _, p := range b.Payments {
		if _, err := t.tx.Exec(ctx, insertPayment, b.ID, string(p.Mode), p.Amount, p.Reference); err != nil {
			return fmt.Errorf("insert bill payment: %w", err)
		}
	}
	return nil
}

func (t *pgTx) ApplyLedger(ctx context.Context, partyID, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error) {
	return ledger.Apply(ctx, t.tx, ledger.PartyCustomer, partyID, "bill", refID, delta, note)
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Bill, error) {
	const q = `SELECT id, bill_number, customer_id, cashier_id, sub_total_paise, tax_paise, item_discount_paise, bill_discount_paise, total_discount_paise, grand_total_paise, round_off_paise, paid_paise, returned_paise, credit_paise, balance_paise, status, overpayment_action, created_at
FROM bills WHERE id = $1`
	b, err := scanBill(s.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return Bill{}, err
	}

	const itemsQ = `SELECT id, product_id, name, unit_price_paise, qty_milli, gst_rate, unit_discount_paise, total_paise
FROM bill_items WHERE bill_id = $1`
	rows, err := s.Pool.Query(ctx, itemsQ, id)
	if err != nil {
		return Bill{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it       Item
			qtyMilli money.Milli
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Name, &it.UnitPrice, &qtyMilli, &it.GSTRate, &it.UnitDiscount, &it.Total); err != nil {
			return Bill{}, err
		}
		it.Quantity = money.FromMilli(qtyMilli)
		b.Items = append(b.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Bill{}, err
	}

	const paysQ = `SELECT mode, amount_paise, reference FROM bill_payments WHERE bill_id = $1`
	prows, err := s.Pool.Query(ctx, paysQ, id)
	if err != nil {
		return Bill{}, err
	}
	defer prows.Close()
	for prows.Next() {
		var p PaymentEntry
		if err := prows.Scan(&p.Mode, &p.Amount, &p.Reference); err != nil {
			return Bill{}, err
		}
		b.Payments = append(b.Payments, p)
	}
	return b, prows.Err()
}

func (s *PGStore) List(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]Bill, int, error) {
	where := ""
	args := []any{}
	if customerID != uuid.Nil {
		where = "WHERE customer_id = $1"
		args = append(args, customerID)
	}

	var total int
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM bills "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := fmt.Sprintf(`SELECT id, bill_number, customer_id, cashier_id, sub_total_paise, tax_paise, item_discount_paise, bill_discount_paise, total_discount_paise, grand_total_paise, round_off_paise, paid_paise, returned_paise, credit_paise, balance_paise, status, overpayment_action, created_at
FROM bills %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.Number, &b.CustomerID, &b.CashierID, &b.SubTotal, &b.Tax, &b.ItemDiscount, &b.BillDiscount,
		&b.TotalDiscount, &b.GrandTotal, &b.RoundOff, &b.Paid, &b.Returned, &b.Credit, &b.Balance, &b.Status, &b.OverpaymentAction, &b.CreatedAt)
	if err == pgx.ErrNoRows {
		return Bill{}, common.NotFound("bill not found")
	}
	if err != nil {
		return Bill{}, err
	}
	return b, nil
}
