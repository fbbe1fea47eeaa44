package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/common"
)

// PGStore is the Postgres-backed receipt and journal store.
type PGStore struct {
	Pool          *pgxpool.Pool
	ReceiptPrefix string
}

// CreateReceipt writes the receipt header, its payment layers and the ledger
// delta in one transaction. Receipt numbering draws from a dedicated
// sequence so numbers stay gapless-enough and strictly increasing.
func (s *PGStore) CreateReceipt(ctx context.Context, draft ReceiptDraft) (Receipt, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Receipt{}, common.Transient(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var seq int64
	if err := tx.QueryRow(ctx, "SELECT nextval('receipt_number_seq')").Scan(&seq); err != nil {
		return Receipt{}, fmt.Errorf("receipt number: %w", err)
	}
	number := fmt.Sprintf("%s-%06d", s.ReceiptPrefix, seq)

	rec := Receipt{
		Number:    number,
		PartyType: draft.PartyType,
		PartyID:   draft.PartyID,
		TotalPaid: draft.TotalPaid,
		Discount:  draft.Discount,
		Note:      draft.Note,
		Payments:  draft.Payments,
	}
	const insertReceipt = `INSERT INTO receipts (receipt_number, party_type, party_id, total_paid_paise, discount_paise, note)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insertReceipt,
		number, string(draft.PartyType), draft.PartyID, draft.TotalPaid, draft.Discount, draft.Note,
	).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return Receipt{}, fmt.Errorf("insert receipt: %w", err)
	}

	const insertPayment = `INSERT INTO receipt_payments (receipt_id, mode, amount_paise, reference)
VALUES ($1, $2, $3, $4)`
	for _, p := range draft.Payments {
		if _, err := tx.Exec(ctx, insertPayment, rec.ID, string(p.Mode), p.Amount, p.Reference); err != nil {
			return Receipt{}, fmt.Errorf("insert receipt payment: %w", err)
		}
	}

	after, err := Apply(ctx, tx, draft.PartyType, draft.PartyID, "receipt", rec.ID, draft.Delta, draft.Note)
	if err != nil {
		return Receipt{}, err
	}
	rec.BalanceAfter = after

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, common.Transient(err)
	}
	return rec, nil
}

// GetReceipt loads one receipt and its payment layers.
func (s *PGStore) GetReceipt(ctx context.Context, id uuid.UUID) (Receipt, error) {
	const q = `SELECT r.id, r.receipt_number, r.party_type, r.party_id, r.total_paid_paise, r.discount_paise, r.note, r.created_at,
       COALESCE(e.balance_after_paise, 0)
FROM receipts r
LEFT JOIN ledger_entries e ON e.ref_type = 'receipt' AND e.ref_id = r.id
WHERE r.id = $1`
	var rec Receipt
	err := s.Pool.QueryRow(ctx, q, id).Scan(
		&rec.ID, &rec.Number, &rec.PartyType, &rec.PartyID,
		&rec.TotalPaid, &rec.Discount, &rec.Note, &rec.CreatedAt, &rec.BalanceAfter,
	)
	if err == pgx.ErrNoRows {
		return Receipt{}, common.NotFound("receipt not found")
	}
	if err != nil {
		return Receipt{}, err
	}
	pays, err := s.receiptPayments(ctx, id)
	if err != nil {
		return Receipt{}, err
	}
	rec.Payments = pays
	return rec, nil
}

func (s *PGStore) receiptPayments(ctx context.Context, receiptID uuid.UUID) ([]ReceiptPayment, error) {
	const q = `SELECT mode, amount_paise, reference FROM receipt_payments WHERE receipt_id = $1`
	rows, err := s.Pool.Query(ctx, q, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReceiptPayment
	for rows.Next() {
		var p ReceiptPayment
		if err := rows.Scan(&p.Mode, &p.Amount, &p.Reference); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListReceipts pages receipts newest first, optionally scoped to one party.
func (s *PGStore) ListReceipts(ctx context.Context, pt PartyType, partyID uuid.UUID, limit, offset int) ([]Receipt, int, error) {
	where := ""
	args := []any{}
	if pt != "" && partyID != uuid.Nil {
		where = "WHERE party_type = $1 AND party_id = $2"
		args = append(args, string(pt), partyID)
	}

	var total int
	countSQL := "SELECT count(*) FROM receipts " + where
	if err := s.Pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := fmt.Sprintf(`SELECT id, receipt_number, party_type, party_id, total_paid_paise, discount_paise, note, created_at
FROM receipts %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		var r Receipt
		if err := rows.Scan(&r.ID, &r.Number, &r.PartyType, &r.PartyID, &r.TotalPaid, &r.Discount, &r.Note, &r.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// ListEntries pages one party's journal, newest first.
func (s *PGStore) ListEntries(ctx context.Context, pt PartyType, partyID uuid.UUID, limit, offset int) ([]Entry, int, error) {
	var total int
	if err := s.Pool.QueryRow(ctx,
		"SELECT count(*) FROM ledger_entries WHERE party_type = $1 AND party_id = $2",
		string(pt), partyID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT id, party_type, party_id, ref_type, ref_id, delta_paise, balance_after_paise, note, created_at
FROM ledger_entries
WHERE party_type = $1 AND party_id = $2
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`
	rows, err := s.Pool.Query(ctx, q, string(pt), partyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.PartyType, &e.PartyID, &e.RefType, &e.RefID, &e.Delta, &e.BalanceAfter, &e.Note, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
