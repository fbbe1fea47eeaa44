package purchase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Tx is one in-flight voucher transaction.
type Tx interface {
	// ReceiveStock increments stock and refreshes the product's purchase
	// price; newSellingPrice additionally updates the sticker price.
	ReceiveStock(ctx context.Context, productID uuid.UUID, qtyMilli money.Milli, purchasePrice money.Paise, newSellingPrice *money.Paise) error
	NextVoucherNumber(ctx context.Context) (string, error)
	InsertPurchase(ctx context.Context, p *Purchase) error
	ApplyLedger(ctx context.Context, vendorID, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// Store abstracts voucher persistence.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	Get(ctx context.Context, id uuid.UUID) (Purchase, error)
	List(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]Purchase, int, error)
}

// PGStore is the Postgres-backed voucher store.
type PGStore struct {
	Pool          *pgxpool.Pool
	VoucherPrefix string
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
	return &pgTx{tx: tx, prefix: s.VoucherPrefix}, nil
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

func (t *pgTx) ReceiveStock(ctx context.Context, productID uuid.UUID, qtyMilli money.Milli, purchasePrice money.Paise, newSellingPrice *money.Paise) error {
	const base = `UPDATE products SET stock_milli = stock_milli + $1, purchase_price_paise = $2, updated_at = now() WHERE id = $3`
	const withPrice = `UPDATE products SET stock_milli = stock_milli + $1, purchase_price_paise = $2, price_paise = $4, updated_at = now() WHERE id = $3`
	var (
		tag pgconn.CommandTag
		err error
	)
	if newSellingPrice != nil {
		tag, err = t.tx.Exec(ctx, withPrice, qtyMilli, purchasePrice, productID, *newSellingPrice)
	} else {
		tag, err = t.tx.Exec(ctx, base, qtyMilli, purchasePrice, productID)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound(fmt.Sprintf("product %s not found", productID))
	}
	return nil
}

func (t *pgTx) NextVoucherNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, "SELECT nextval('voucher_number_seq')").Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", t.prefix, seq), nil
}

func (t *pgTx) InsertPurchase(ctx context.Context, p *Purchase) error {
	const insert = `INSERT INTO purchases (voucher_number, vendor_id, total_paise, paid_paise, credit_paise, balance_paise, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, created_at`
	if err := t.tx.QueryRow(ctx, insert,
		p.Number, p.VendorID, p.Total, p.Paid, p.Credit, p.Balance, string(p.Status),
	).Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	const insertItem = `INSERT INTO purchase_items (purchase_id, product_id, qty_milli, purchase_price_paise, new_selling_price_paise, total_paise)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	for i := range p.Items {
		it := &p.Items[i]
		if err := t.tx.QueryRow(ctx, insertItem,
			p.ID, it.ProductID, money.ToMilli(it.Quantity), it.PurchasePrice, it.NewSellingPrice, it.Total,
		).Scan(&it.ID); err != nil {
			return fmt.Errorf("insert purchase item: %w", err)
		}
	}

	const insertPayment = `INSERT INTO purchase_payments (purchase_id, mode, amount_paise, reference) VALUES ($1, $2, $3, $4)`
	for _, pay := range p.Payments {
		if _, err := t.tx.Exec(ctx, insertPayment, p.ID, string(pay.Mode), pay.Amount, pay.Reference); err != nil {
			return fmt.Errorf("insert purchase payment: %w", err)
		}
	}
	return nil
}

func (t *pgTx) ApplyLedger(ctx context.Context, vendorID, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error) {
	return ledger.Apply(ctx, t.tx, ledger.PartyVendor, vendorID, "purchase", refID, delta, note)
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Purchase, error) {
	const q = `SELECT id, voucher_number, vendor_id, total_paise, paid_paise, credit_paise, balance_paise, status, created_at
FROM purchases WHERE id = $1`
	p, err := scanPurchase(s.Pool.QueryRow(ctx, q, id))
	if err != nil {
		return Purchase{}, err
	}

	const itemsQ = `SELECT id, product_id, qty_milli, purchase_price_paise, new_selling_price_paise, total_paise
FROM purchase_items WHERE purchase_id = $1`
	rows, err := s.Pool.Query(ctx, itemsQ, id)
	if err != nil {
		return Purchase{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it       Item
			qtyMilli money.Milli
		)
		if err := rows.Scan(&it.ID, &it.ProductID, &qtyMilli, &it.PurchasePrice, &it.NewSellingPrice, &it.Total); err != nil {
			return Purchase{}, err
		}
		it.Quantity = money.FromMilli(qtyMilli)
		p.Items = append(p.Items, it)
	}
	if err := rows.Err(); err != nil {
		return Purchase{}, err
	}

	const paysQ = `SELECT mode, amount_paise, reference FROM purchase_payments WHERE purchase_id = $1`
	prows, err := s.Pool.Query(ctx, paysQ, id)
	if err != nil {
		return Purchase{}, err
	}
	defer prows.Close()
	for prows.Next() {
		var pay PaymentEntry
		if err := prows.Scan(&pay.Mode, &pay.Amount, &pay.Reference); err != nil {
			return Purchase{}, err
		}
		p.Payments = append(p.Payments, pay)
	}
	return p, prows.Err()
}

func (s *PGStore) List(ctx context.Context, vendorID uuid.UUID, limit, offset int) ([]Purchase, int, error) {
	where := ""
	args := []any{}
	if vendorID != uuid.Nil {
		where = "WHERE vendor_id = $1"
		args = append(args, vendorID)
	}

	var total int
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM purchases "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := fmt.Sprintf(`SELECT id, voucher_number, vendor_id, total_paise, paid_paise, credit_paise, balance_paise, status, created_at
FROM purchases %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.Number, &p.VendorID, &p.Total, &p.Paid, &p.Credit, &p.Balance, &p.Status, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return Purchase{}, common.NotFound("purchase not found")
	}
	if err != nil {
		return Purchase{}, err
	}
	return p, nil
}
