package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Store abstracts product persistence.
type Store interface {
	Create(ctx context.Context, in CreateInput) (Product, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	GetByBarcode(ctx context.Context, barcode string) (Product, error)
	List(ctx context.Context, search string, limit, offset int) ([]Product, int, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, deltaMilli money.Milli) (Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LowStock(ctx context.Context, thresholdMilli money.Milli) ([]Product, error)
}

// PGStore is the Postgres-backed product store.
type PGStore struct {
	Pool *pgxpool.Pool
}

const productCols = "id, name, COALESCE(barcode, ''), hsn, price_paise, purchase_price_paise, gst_rate, stock_milli, created_at, updated_at"

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p          Product
		stockMilli money.Milli
	)
	err := row.Scan(&p.ID, &p.Name, &p.Barcode, &p.HSN, &p.Price, &p.PurchasePrice, &p.GSTRate, &stockMilli, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return Product{}, common.NotFound("product not found")
	}
	if err != nil {
		return Product{}, err
	}
	p.Stock = money.FromMilli(stockMilli)
	return p, nil
}

// nullableBarcode maps an empty barcode to NULL so the unique index only
// constrains real barcodes.
func nullableBarcode(b string) any {
	if strings.TrimSpace(b) == "" {
		return nil
	}
	return strings.TrimSpace(b)
}

func (s *PGStore) Create(ctx context.Context, in CreateInput) (Product, error) {
	const q = `INSERT INTO products (name, barcode, hsn, price_paise, purchase_price_paise, gst_rate, stock_milli)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productCols
	p, err := scanProduct(s.Pool.QueryRow(ctx, q,
		in.Name, nullableBarcode(in.Barcode), in.HSN, in.Price, in.PurchasePrice, in.GSTRate, money.ToMilli(in.Stock)))
	if common.IsUniqueViolation(err) {
		return Product{}, common.NewAppError(common.CodeConflict, "barcode already in use", 409, err)
	}
	return p, err
}

func (s *PGStore) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(s.Pool.QueryRow(ctx, "SELECT "+productCols+" FROM products WHERE id = $1", id))
}

func (s *PGStore) GetByBarcode(ctx context.Context, barcode string) (Product, error) {
	return scanProduct(s.Pool.QueryRow(ctx, "SELECT "+productCols+" FROM products WHERE barcode = $1", strings.TrimSpace(barcode)))
}

func (s *PGStore) List(ctx context.Context, search string, limit, offset int) ([]Product, int, error) {
	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where = "WHERE name ILIKE $1 OR barcode = $2"
		args = append(args, "%"+search+"%", search)
	}

	var total int
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM products "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := "SELECT " + productCols + " FROM products " + where + " ORDER BY name"
	switch len(args) {
	case 0:
		listSQL += " LIMIT $1 OFFSET $2"
	case 2:
		listSQL += " LIMIT $3 OFFSET $4"
	}
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (Product, error) {
	const q = `UPDATE products SET name = $1, barcode = $2, hsn = $3, price_paise = $4, purchase_price_paise = $5, gst_rate = $6, updated_at = now()
WHERE id = $7
RETURNING ` + productCols
	p, err := scanProduct(s.Pool.QueryRow(ctx, q,
		in.Name, nullableBarcode(in.Barcode), in.HSN, in.Price, in.PurchasePrice, in.GSTRate, id))
	if common.IsUniqueViolation(err) {
		return Product{}, common.NewAppError(common.CodeConflict, "barcode already in use", 409, err)
	}
	return p, err
}

// AdjustStock applies a signed correction. The stock_milli CHECK constraint
// turns an over-draining adjustment into an error instead of negative stock.
func (s *PGStore) AdjustStock(ctx context.Context, id uuid.UUID, deltaMilli money.Milli) (Product, error) {
	const q = `UPDATE products SET stock_milli = stock_milli + $1, updated_at = now()
WHERE id = $2
RETURNING ` + productCols
	p, err := scanProduct(s.Pool.QueryRow(ctx, q, deltaMilli, id))
	if err != nil && strings.Contains(err.Error(), "stock_milli") {
		return Product{}, common.NewAppError(common.CodeInsufficientStock, "stock cannot go negative", 409, err)
	}
	return p, err
}

func (s *PGStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return common.NotFound("product not found")
	}
	return nil
}

// LowStock lists products at or below the threshold, most depleted first.
func (s *PGStore) LowStock(ctx context.Context, thresholdMilli money.Milli) ([]Product, error) {
	const q = "SELECT " + productCols + " FROM products WHERE stock_milli <= $1 ORDER BY stock_milli ASC"
	rows, err := s.Pool.Query(ctx, q, thresholdMilli)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
