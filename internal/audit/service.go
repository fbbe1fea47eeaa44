package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one audit log row.
type Entry struct {
	ID        uuid.UUID       `json:"id"`
	ActorID   *uuid.UUID      `json:"actorId,omitempty"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entityId,omitempty"`
	Details   json.RawMessage `json:"details"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Store defines the database operations required for auditing.
type Store interface {
	InsertAuditLog(ctx context.Context, e Entry) error
	ListAuditLogs(ctx context.Context, entity string, limit, offset int) ([]Entry, int, error)
}

// Service persists audit entries for money- and stock-moving flows.
type Service struct {
	Store   Store
	Enabled bool
}

// Record persists one audit entry when auditing is enabled. Details must be
// JSON-marshalable; nil details become an empty object.
func (s Service) Record(ctx context.Context, actorID *uuid.UUID, action, entity, entityID string, details any) error {
	if !s.Enabled {
		return nil
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	action = strings.TrimSpace(action)
	entity = strings.TrimSpace(entity)
	if action == "" || entity == "" {
		return errors.New("audit: action and entity are required")
	}

	payload := json.RawMessage("{}")
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = data
	}
	return s.Store.InsertAuditLog(ctx, Entry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strings.TrimSpace(entityID),
		Details:  payload,
	})
}

// List pages audit entries newest first, optionally filtered to one entity.
func (s Service) List(ctx context.Context, entity string, limit, offset int) ([]Entry, int, error) {
	if s.Store == nil {
		return nil, 0, errors.New("audit: store not configured")
	}
	return s.Store.ListAuditLogs(ctx, strings.TrimSpace(entity), limit, offset)
}

// PGStore is the Postgres-backed audit store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) InsertAuditLog(ctx context.Context, e Entry) error {
	const q = `INSERT INTO audit_logs (actor_id, action, entity, entity_id, details)
VALUES ($1, $2, $3, $4, $5)`
	_, err := s.Pool.Exec(ctx, q, e.ActorID, e.Action, e.Entity, e.EntityID, e.Details)
	return err
}

func (s *PGStore) ListAuditLogs(ctx context.Context, entity string, limit, offset int) ([]Entry, int, error) {
	where := ""
	args := []any{}
	if entity != "" {
		where = "WHERE entity = $1"
		args = append(args, entity)
	}

	var total int
	if err := s.Pool.QueryRow(ctx, "SELECT count(*) FROM audit_logs "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL := "SELECT id, actor_id, action, entity, entity_id, details, created_at FROM audit_logs " + where + " ORDER BY created_at DESC"
	switch len(args) {
	case 0:
		listSQL += " LIMIT $1 OFFSET $2"
	case 1:
		listSQL += " LIMIT $2 OFFSET $3"
	}
	args = append(args, limit, offset)
	rows, err := s.Pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.Entity, &e.EntityID, &e.Details, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
