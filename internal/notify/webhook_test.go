package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/notify"
	"github.com/noah-isme/backend-kasir/internal/resilience"
	"github.com/noah-isme/backend-kasir/internal/task"
)

type memStore struct {
	mu            sync.Mutex
	subscriptions map[uuid.UUID]notify.Subscription
	deliveries    map[uuid.UUID]notify.Delivery
	event         events.Event
}

func newMemStore(ev events.Event) *memStore {
	return &memStore{
		subscriptions: map[uuid.UUID]notify.Subscription{},
		deliveries:    map[uuid.UUID]notify.Delivery{},
		event:         ev,
	}
}

func (m *memStore) CreateSubscription(_ context.Context, url, secret string, topics []string) (notify.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := notify.Subscription{ID: uuid.New(), URL: url, Secret: secret, Topics: topics, Active: true, CreatedAt: time.Now()}
	m.subscriptions[sub.ID] = sub
	return sub, nil
}

func (m *memStore) ListSubscriptions(context.Context) ([]notify.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notify.Subscription
	for _, s := range m.subscriptions {
		out = append(out, s)
	}
	return out, nil
}

func (m *memStore) GetSubscription(_ context.Context, id uuid.UUID) (notify.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[id]
	if !ok {
		return notify.Subscription{}, errors.New("not found")
	}
	return sub, nil
}

func (m *memStore) SetSubscriptionActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub := m.subscriptions[id]
	sub.Active = active
	m.subscriptions[id] = sub
	return nil
}

func (m *memStore) DeleteSubscription(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscriptions, id)
	return nil
}

func (m *memStore) ListActiveSubscriptions(_ context.Context, topic string) ([]notify.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []notify.Subscription
	for _, s := range m.subscriptions {
		if !s.Active {
			continue
		}
		for _, t := range s.Topics {
			if t == topic {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) CreateDelivery(_ context.Context, subscriptionID, eventID uuid.UUID) (notify.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := notify.Delivery{ID: uuid.New(), SubscriptionID: subscriptionID, EventID: eventID, Status: notify.StatusPending}
	m.deliveries[d.ID] = d
	return d, nil
}

func (m *memStore) MarkDelivered(_ context.Context, id uuid.UUID, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	d.Status = notify.StatusDelivered
	d.Attempts = attempts
	d.LastError = ""
	m.deliveries[id] = d
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id uuid.UUID, attempts int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	d.Status = notify.StatusFailed
	d.Attempts = attempts
	d.LastError = lastError
	m.deliveries[id] = d
	return nil
}

func (m *memStore) ListDeliveries(context.Context, uuid.UUID, int, int) ([]notify.Delivery, int, error) {
	return nil, 0, nil
}

func (m *memStore) GetEvent(context.Context, uuid.UUID) (events.Event, error) {
	return m.event, nil
}

func testEvent(topic string) events.Event {
	return events.Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: uuid.New(),
		Payload:     json.RawMessage(`{"billNumber":"INV-000042"}`),
		OccurredAt:  time.Now().UTC(),
	}
}

func TestSenderDeliversSignedPayload(t *testing.T) {
	ev := testEvent(events.TopicBillCreated)
	store := newMemStore(ev)

	var gotSignature, gotTimestamp, gotEventID string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Signature")
		gotTimestamp = r.Header.Get("X-Timestamp")
		gotEventID = r.Header.Get("X-Event-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sub, err := store.CreateSubscription(context.Background(), srv.URL, "topsecret", []string{events.TopicBillCreated})
	require.NoError(t, err)
	delivery, err := store.CreateDelivery(context.Background(), sub.ID, ev.ID)
	require.NoError(t, err)

	sender := &notify.Sender{
		Store:  store,
		Client: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1},
		Log:    zerolog.Nop(),
	}
	asynqTask, err := task.NewWebhookDeliverTask(delivery.ID, sub.ID, ev.ID, 0)
	require.NoError(t, err)

	require.NoError(t, sender.ProcessTask(context.Background(), asynqTask))

	require.Equal(t, ev.ID.String(), gotEventID)
	require.NotEmpty(t, gotTimestamp)
	ts, err := strconv.ParseInt(gotTimestamp, 10, 64)
	require.NoError(t, err)
	require.Equal(t, notify.ComputeSignature("topsecret", ts, ev.ID.String(), gotBody), gotSignature)

	stored := store.deliveries[delivery.ID]
	require.Equal(t, notify.StatusDelivered, stored.Status)
	require.Equal(t, 1, stored.Attempts)
}

func TestSenderMarksFailureAndReturnsError(t *testing.T) {
	ev := testEvent(events.TopicBillCreated)
	store := newMemStore(ev)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sub, err := store.CreateSubscription(context.Background(), srv.URL, "s", []string{events.TopicBillCreated})
	require.NoError(t, err)
	delivery, err := store.CreateDelivery(context.Background(), sub.ID, ev.ID)
	require.NoError(t, err)

	sender := &notify.Sender{
		Store:  store,
		Client: resilience.HTTPClient{Client: srv.Client(), MaxAttempts: 1, BaseBackoff: time.Millisecond},
		Log:    zerolog.Nop(),
	}
	asynqTask, err := task.NewWebhookDeliverTask(delivery.ID, sub.ID, ev.ID, 0)
	require.NoError(t, err)

	err = sender.ProcessTask(context.Background(), asynqTask)
	require.Error(t, err)

	stored := store.deliveries[delivery.ID]
	require.Equal(t, notify.StatusFailed, stored.Status)
	require.NotEmpty(t, stored.LastError)
}

func TestSenderSkipsInactiveSubscription(t *testing.T) {
	ev := testEvent(events.TopicBillCreated)
	store := newMemStore(ev)

	sub, err := store.CreateSubscription(context.Background(), "https://example.com/hook", "s", []string{events.TopicBillCreated})
	require.NoError(t, err)
	require.NoError(t, store.SetSubscriptionActive(context.Background(), sub.ID, false))
	delivery, err := store.CreateDelivery(context.Background(), sub.ID, ev.ID)
	require.NoError(t, err)

	sender := &notify.Sender{Store: store, Client: resilience.HTTPClient{Client: http.DefaultClient}, Log: zerolog.Nop()}
	asynqTask, err := task.NewWebhookDeliverTask(delivery.ID, sub.ID, ev.ID, 0)
	require.NoError(t, err)
	require.NoError(t, sender.ProcessTask(context.Background(), asynqTask))
	require.Equal(t, notify.StatusPending, store.deliveries[delivery.ID].Status)
}

func TestLowStockMailerSendsEmail(t *testing.T) {
	outbox := &common.InMemoryEmail{}
	mailer := &notify.LowStockMailer{Sender: outbox, To: "owner@shop.in", Log: zerolog.Nop()}

	payload := task.LowStockAlertPayload{ProductID: uuid.New(), Name: "Ghee 500ml", Stock: "2.000"}
	asynqTask, err := task.NewLowStockAlertTask(payload)
	require.NoError(t, err)

	require.NoError(t, mailer.ProcessTask(context.Background(), asynqTask))
	require.Len(t, outbox.Outbox, 1)
	require.Contains(t, outbox.Outbox[0].Subject, "Ghee 500ml")
}

func TestLowStockMailerRejectsGarbagePayload(t *testing.T) {
	mailer := &notify.LowStockMailer{Sender: &common.InMemoryEmail{}, To: "owner@shop.in", Log: zerolog.Nop()}
	err := mailer.ProcessTask(context.Background(), asynq.NewTask(task.TypeLowStockAlert, []byte("not-json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
