package party

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/ledger"
)

// Store abstracts party persistence.
type Store interface {
	Create(ctx context.Context, pt ledger.PartyType, in CreateInput) (Party, error)
	Get(ctx context.Context, pt ledger.PartyType, id uuid.UUID) (Party, error)
	List(ctx context.Context, pt ledger.PartyType, search string, limit, offset int) ([]Party, int, error)
	Update(ctx context.Context, pt ledger.PartyType, id uuid.UUID, in UpdateInput) (Party, error)
	Delete(ctx context.Context, pt ledger.PartyType, id uuid.UUID) error
}

// PGStore is the Postgres-backed party store. Customers and vendors share a
// shape, so one store serves both tables.
type PGStore struct {
	Pool *pgxpool.Pool
}

func table(pt ledger.PartyType) string {
	if pt == ledger.PartyVendor {
		return "vendors"
	}
	return "customers"
}

const partyCols = "id, name, phone, email, address, opening_balance_paise, ledger_balance_paise, created_at, updated_at"

func scanParty(row pgx.Row, pt ledger.PartyType) (Party, error) {
	p := Party{Type: pt}
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Email, &p.Address, &p.OpeningBalance, &p.LedgerBalance, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return Party{}, common.NotFound(fmt.Sprintf("%s not found", pt))
	}
	if err != nil {
		return Party{}, err
	}
	return p, nil
}

// Create inserts the party. A non-zero opening balance seeds the running
// balance and is journaled so the ledger history starts from an explicit
// entry rather than an unexplained figure.
func (s *PGStore) Create(ctx context.Context, pt ledger.PartyType, in CreateInput) (Party, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Party{}, common.Transient(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := fmt.Sprintf(`INSERT INTO %s (name, phone, email, address, opening_balance_paise, ledger_balance_paise)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING %s`, table(pt), partyCols)
	p, err := scanParty(tx.QueryRow(ctx, q, in.Name, in.Phone, in.Email, in.Address, in.OpeningBalance), pt)
	if err != nil {
		return Party{}, err
	}

	if in.OpeningBalance != 0 {
		const journal = `INSERT INTO ledger_entries (party_type, party_id, ref_type, ref_id, delta_paise, balance_after_paise, note)
VALUES ($1, $2, 'opening', $2, $3, $3, 'opening balance')`
		if _, err := tx.Exec(ctx, journal, string(pt), p.ID, in.OpeningBalance); err != nil {
			return Party{}, fmt.Errorf("journal opening balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Party{}, common.Transient(err)
	}
	return p, nil
}

func (s *PGStore) Get(ctx context.Context, pt ledger.PartyType, id uuid.UUID) (Party, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", partyCols, table(pt))
	return scanParty(s.Pool.QueryRow(ctx, q, id), pt)
}

func (s *PGStore) List(ctx context.Context, pt ledger.PartyType, search string, limit, offset int) ([]Party, int, error) {
	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where = "WHERE name ILIKE $1 OR phone ILIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int
	countSQL := fmt.Sprintf("SELECT count(*) FROM %s %s", table(pt), where)
	if err := s.Pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY name LIMIT $%d OFFSET $%d",
		partyCols, table(pt), where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Party
	for rows.Next() {
		p, err := scanParty(rows, pt)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (s *PGStore) Update(ctx context.Context, pt ledger.PartyType, id uuid.UUID, in UpdateInput) (Party, error) {
	q := fmt.Sprintf(`UPDATE %s SET name = $1, phone = $2, email = $3, address = $4, updated_at = now()
WHERE id = $5
RETURNING %s`, table(pt), partyCols)
	return scanParty(s.Pool.QueryRow(ctx, q, in.Name, in.Phone, in.Email, in.Address, id), pt)
}

// Delete removes a party. A party with a non-zero balance still owes or is
// owed money, so deletion is refused until the balance is settled.
func (s *PGStore) Delete(ctx context.Context, pt ledger.PartyType, id uuid.UUID) error {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = $1 AND ledger_balance_paise = 0", table(pt))
	tag, err := s.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		checkSQL := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", table(pt))
		if err := s.Pool.QueryRow(ctx, checkSQL, id).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return common.Validation("cannot delete a party with an outstanding balance", nil)
		}
		return common.NotFound(fmt.Sprintf("%s not found", pt))
	}
	return nil
}
