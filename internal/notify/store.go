package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-kasir/internal/events"
)

// Subscription is a webhook endpoint interested in one or more topics.
type Subscription struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Topics    []string  `json:"topics"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// Delivery tracks one webhook dispatch attempt chain.
type Delivery struct {
	ID             uuid.UUID `json:"id"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	EventID        uuid.UUID `json:"eventId"`
	Status         string    `json:"status"`
	Attempts       int       `json:"attempts"`
	LastError      string    `json:"lastError,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Delivery statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Store persists subscriptions and delivery records.
type Store interface {
	CreateSubscription(ctx context.Context, url, secret string, topics []string) (Subscription, error)
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error)
	SetSubscriptionActive(ctx context.Context, id uuid.UUID, active bool) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
	ListActiveSubscriptions(ctx context.Context, topic string) ([]Subscription, error)

	CreateDelivery(ctx context.Context, subscriptionID, eventID uuid.UUID) (Delivery, error)
	MarkDelivered(ctx context.Context, id uuid.UUID, attempts int) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error
	ListDeliveries(ctx context.Context, subscriptionID uuid.UUID, limit, offset int) ([]Delivery, int, error)

	GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error)
}

// PGStore is the Postgres-backed notify store.
type PGStore struct {
	Pool *pgxpool.Pool
}

const subscriptionCols = "id, url, secret, topics, active, created_at"

func (s *PGStore) CreateSubscription(ctx context.Context, url, secret string, topics []string) (Subscription, error) {
	const q = `INSERT INTO webhook_subscriptions (url, secret, topics)
VALUES ($1, $2, $3)
RETURNING ` + subscriptionCols
	return scanSubscription(s.Pool.QueryRow(ctx, q, url, secret, topics))
}

func (s *PGStore) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+subscriptionCols+` FROM webhook_subscriptions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (s *PGStore) GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error) {
	const q = `SELECT ` + subscriptionCols + ` FROM webhook_subscriptions WHERE id = $1`
	return scanSubscription(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) SetSubscriptionActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE webhook_subscriptions SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PGStore) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	tag, err := s.Pool.Exec(ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *PGStore) ListActiveSubscriptions(ctx context.Context, topic string) ([]Subscription, error) {
	const q = `SELECT ` + subscriptionCols + ` FROM webhook_subscriptions
WHERE active AND $1 = ANY(topics)`
	rows, err := s.Pool.Query(ctx, q, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func (s *PGStore) CreateDelivery(ctx context.Context, subscriptionID, eventID uuid.UUID) (Delivery, error) {
	const q = `INSERT INTO webhook_deliveries (subscription_id, event_id)
VALUES ($1, $2)
RETURNING id, subscription_id, event_id, status, attempts, last_error, updated_at`
	var d Delivery
	err := s.Pool.QueryRow(ctx, q, subscriptionID, eventID).
		Scan(&d.ID, &d.SubscriptionID, &d.EventID, &d.Status, &d.Attempts, &d.LastError, &d.UpdatedAt)
	return d, err
}

func (s *PGStore) MarkDelivered(ctx context.Context, id uuid.UUID, attempts int) error {
	const q = `UPDATE webhook_deliveries
SET status = 'delivered', attempts = $2, last_error = '', updated_at = now()
WHERE id = $1`
	_, err := s.Pool.Exec(ctx, q, id, attempts)
	return err
}

func (s *PGStore) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	const q = `UPDATE webhook_deliveries
SET status = 'failed', attempts = $2, last_error = $3, updated_at = now()
WHERE id = $1`
	_, err := s.Pool.Exec(ctx, q, id, attempts, lastError)
	return err
}

func (s *PGStore) ListDeliveries(ctx context.Context, subscriptionID uuid.UUID, limit, offset int) ([]Delivery, int, error) {
	var total int
	if err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM webhook_deliveries WHERE subscription_id = $1`, subscriptionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT id, subscription_id, event_id, status, attempts, last_error, updated_at
FROM webhook_deliveries
WHERE subscription_id = $1
ORDER BY updated_at DESC
LIMIT $2 OFFSET $3`
	rows, err := s.Pool.Query(ctx, q, subscriptionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventID, &d.Status, &d.Attempts, &d.LastError, &d.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (s *PGStore) GetEvent(ctx context.Context, id uuid.UUID) (events.Event, error) {
	const q = `SELECT id, topic, aggregate_id, payload, occurred_at FROM domain_events WHERE id = $1`
	var ev events.Event
	err := s.Pool.QueryRow(ctx, q, id).
		Scan(&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt)
	return ev, err
}

func scanSubscription(row pgx.Row) (Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.URL, &sub.Secret, &sub.Topics, &sub.Active, &sub.CreatedAt)
	return sub, err
}

func collectSubscriptions(rows pgx.Rows) ([]Subscription, error) {
	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
