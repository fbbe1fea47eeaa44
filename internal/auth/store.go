package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed auth store.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) CreateUser(ctx context.Context, name, email, passwordHash, role string) (User, error) {
	const q = `INSERT INTO users (name, email, password_hash, role)
VALUES ($1, $2, $3, $4)
RETURNING id, name, email, role, created_at, updated_at`
	var u User
	err := s.Pool.QueryRow(ctx, q, name, email, passwordHash, role).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (User, string, error) {
	const q = `SELECT id, name, email, role, password_hash, created_at, updated_at
FROM users WHERE email = $1`
	var (
		u    User
		hash string
	)
	err := s.Pool.QueryRow(ctx, q, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &hash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, "", err
	}
	return u, hash, err
}

func (s *PGStore) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const q = `SELECT id, name, email, role, created_at, updated_at
FROM users WHERE id = $1`
	var u User
	err := s.Pool.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PGStore) CreateSession(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)`
	_, err := s.Pool.Exec(ctx, q, userID, tokenHash, expiresAt)
	return err
}

func (s *PGStore) GetSession(ctx context.Context, tokenHash string) (Session, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, revoked_at
FROM refresh_tokens WHERE token_hash = $1`
	var sess Session
	err := s.Pool.QueryRow(ctx, q, tokenHash).
		Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.ExpiresAt, &sess.RevokedAt)
	return sess, err
}

func (s *PGStore) RotateSession(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	const q = `UPDATE refresh_tokens
SET token_hash = $2, expires_at = $3
WHERE id = $1 AND revoked_at IS NULL`
	tag, err := s.Pool.Exec(ctx, q, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PGStore) RevokeSession(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked_at = now()
WHERE token_hash = $1 AND revoked_at IS NULL`
	_, err := s.Pool.Exec(ctx, q, tokenHash)
	return err
}
