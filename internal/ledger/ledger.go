package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// PartyType selects which ledger a delta applies to.
type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartyVendor   PartyType = "vendor"
)

// Known reports whether the party type is valid.
func (p PartyType) Known() bool {
	return p == PartyCustomer || p == PartyVendor
}

func (p PartyType) table() string {
	if p == PartyVendor {
		return "vendors"
	}
	return "customers"
}

// Entry is one row of the append-only party journal.
type Entry struct {
	ID           uuid.UUID   `json:"id"`
	PartyType    PartyType   `json:"partyType"`
	PartyID      uuid.UUID   `json:"partyId"`
	RefType      string      `json:"refType"`
	RefID        uuid.UUID   `json:"refId"`
	Delta        money.Paise `json:"delta"`
	BalanceAfter money.Paise `json:"balanceAfter"`
	Note         string      `json:"note,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Queryer is the subset of pgx.Tx the ledger needs. Every Apply call is
// expected to run inside the caller's transaction so the balance update,
// the journal entry and the caller's own writes commit or roll back as one.
type Queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Apply adds delta to the party's running balance and journals the entry.
// The SELECT ... FOR UPDATE serializes concurrent settlements against the
// same party; a read-modify-write without it would race. The balance the
// UPDATE reports is re-checked against the locked read so a drifted
// materialized balance aborts the transaction instead of compounding.
func Apply(ctx context.Context, q Queryer, pt PartyType, partyID uuid.UUID, refType string, refID uuid.UUID, delta money.Paise, note string) (money.Paise, error) {
	if !pt.Known() {
		return 0, common.Validation(fmt.Sprintf("unknown party type %q", pt), nil)
	}

	var before money.Paise
	lockSQL := fmt.Sprintf("SELECT ledger_balance_paise FROM %s WHERE id = $1 FOR UPDATE", pt.table())
	if err := q.QueryRow(ctx, lockSQL, partyID).Scan(&before); err != nil {
		if err == pgx.ErrNoRows {
			return 0, common.NotFound(fmt.Sprintf("%s not found", pt))
		}
		return 0, fmt.Errorf("ledger: lock party: %w", err)
	}

	var after money.Paise
	updateSQL := fmt.Sprintf("UPDATE %s SET ledger_balance_paise = ledger_balance_paise + $1, updated_at = now() WHERE id = $2 RETURNING ledger_balance_paise", pt.table())
	if err := q.QueryRow(ctx, updateSQL, delta, partyID).Scan(&after); err != nil {
		return 0, fmt.Errorf("ledger: apply delta: %w", err)
	}
	if after != before+delta {
		return 0, common.FatalInconsistency(fmt.Sprintf("ledger balance drifted for %s %s: %d + %d != %d", pt, partyID, before, delta, after))
	}

	const insertSQL = `INSERT INTO ledger_entries (party_type, party_id, ref_type, ref_id, delta_paise, balance_after_paise, note)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := q.Exec(ctx, insertSQL, string(pt), partyID, refType, refID, delta, after, note); err != nil {
		return 0, fmt.Errorf("ledger: journal entry: %w", err)
	}
	return after, nil
}
