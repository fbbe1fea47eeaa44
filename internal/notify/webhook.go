package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/resilience"
	"github.com/noah-isme/backend-kasir/internal/task"
)

// Sender delivers webhook payloads. It runs inside the worker as the asynq
// handler for webhook delivery tasks.
type Sender struct {
	Store  Store
	Client resilience.HTTPClient
	// FallbackSecret signs payloads for subscriptions created without one.
	FallbackSecret string
	Log            zerolog.Logger
}

type webhookEnvelope struct {
	EventID    string          `json:"eventId"`
	Topic      string          `json:"topic"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// ProcessTask implements asynq.Handler for webhook delivery tasks. A returned
// error makes asynq retry with its own backoff; the delivery row records the
// latest outcome either way.
func (s *Sender) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload task.WebhookDeliverPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}

	sub, err := s.Store.GetSubscription(ctx, payload.SubscriptionID)
	if err != nil {
		// Endpoint deleted since scheduling; nothing left to deliver.
		s.Log.Warn().Err(err).Stringer("subscription_id", payload.SubscriptionID).Msg("webhook subscription gone")
		return nil
	}
	if !sub.Active {
		return nil
	}
	event, err := s.Store.GetEvent(ctx, payload.EventID)
	if err != nil {
		return fmt.Errorf("load event: %w", err)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	attempt := retried + 1

	status, err := s.deliver(ctx, sub, event, payload.DeliveryID)
	if err == nil && status >= 200 && status < 300 {
		if obs.WebhookDeliveriesTotal != nil {
			obs.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
		}
		return s.Store.MarkDelivered(ctx, payload.DeliveryID, attempt)
	}

	reason := fmt.Sprintf("status=%d err=%v", status, err)
	if obs.WebhookDeliveriesTotal != nil {
		obs.WebhookDeliveriesTotal.WithLabelValues("failed").Inc()
	}
	if markErr := s.Store.MarkFailed(ctx, payload.DeliveryID, attempt, reason); markErr != nil {
		s.Log.Error().Err(markErr).Stringer("delivery_id", payload.DeliveryID).Msg("record webhook failure")
	}
	return fmt.Errorf("deliver webhook: %s", reason)
}

func (s *Sender) deliver(ctx context.Context, sub Subscription, event events.Event, deliveryID uuid.UUID) (int, error) {
	if err := validateURL(sub.URL); err != nil {
		return 0, err
	}
	body, err := json.Marshal(webhookEnvelope{
		EventID:    event.ID.String(),
		Topic:      event.Topic,
		Data:       event.Payload,
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	ts := time.Now().Unix()
	secret := sub.Secret
	if secret == "" {
		secret = s.FallbackSecret
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "kasir-webhooks/1.0")
	req.Header.Set("X-Event-ID", event.ID.String())
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	req.Header.Set("X-Idempotency-Key", deliveryID.String())
	req.Header.Set("X-Signature", ComputeSignature(secret, ts, event.ID.String(), body))

	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	// Drain so the connection can be reused; the body itself is not recorded.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, nil
}

// ComputeSignature calculates HMAC-SHA256 over "<ts>.<eventID>.<body>".
// Receivers verify with the subscription secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid endpoint url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	return nil
}
