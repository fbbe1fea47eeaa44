package report

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/money"
)

// PGQuerier runs the reporting queries against Postgres.
type PGQuerier struct {
	Pool *pgxpool.Pool
}

func (q *PGQuerier) SalesDailyRange(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	const sql = `SELECT date_trunc('day', created_at) AS day,
       count(*),
       COALESCE(SUM(grand_total_paise), 0),
       COALESCE(SUM(tax_paise), 0),
       COALESCE(SUM(total_discount_paise), 0),
       COALESCE(SUM(paid_paise - returned_paise), 0),
       COALESCE(SUM(credit_paise), 0)
FROM bills
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1
ORDER BY 1`
	rows, err := q.Pool.Query(ctx, sql, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailySales
	for rows.Next() {
		var d DailySales
		if err := rows.Scan(&d.Day, &d.BillCount, &d.GrossSales, &d.TaxCollected, &d.Discounts, &d.CashReceived, &d.CreditGiven); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *PGQuerier) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	const sql = `SELECT bi.product_id, bi.name,
       COALESCE(SUM(bi.qty_milli), 0),
       COALESCE(SUM(bi.total_paise), 0)
FROM bill_items bi
JOIN bills b ON b.id = bi.bill_id
WHERE b.created_at >= $1 AND b.created_at < $2
GROUP BY bi.product_id, bi.name
ORDER BY SUM(bi.qty_milli) DESC
LIMIT $3`
	rows, err := q.Pool.Query(ctx, sql, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var (
			t        TopProduct
			qtyMilli money.Milli
		)
		if err := rows.Scan(&t.ProductID, &t.Name, &qtyMilli, &t.Revenue); err != nil {
			return nil, err
		}
		t.QuantitySold = money.FromMilli(qtyMilli)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *PGQuerier) OutstandingCustomers(ctx context.Context, limit int) ([]OutstandingParty, error) {
	return q.outstanding(ctx, "customers", limit)
}

func (q *PGQuerier) OutstandingVendors(ctx context.Context, limit int) ([]OutstandingParty, error) {
	return q.outstanding(ctx, "vendors", limit)
}

func (q *PGQuerier) outstanding(ctx context.Context, table string, limit int) ([]OutstandingParty, error) {
	sql := `SELECT id, name, ledger_balance_paise FROM ` + table + `
WHERE ledger_balance_paise <> 0
ORDER BY ledger_balance_paise DESC
LIMIT $1`
	rows, err := q.Pool.Query(ctx, sql, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutstandingParty
	for rows.Next() {
		var p OutstandingParty
		if err := rows.Scan(&p.PartyID, &p.Name, &p.Balance); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
