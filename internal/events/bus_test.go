package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/events"
)

type stubStore struct {
	lastTopic   string
	lastPayload []byte
	event       events.Event
}

func (s *stubStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	s.lastTopic = topic
	s.lastPayload = payload
	if s.event.ID == uuid.Nil {
		s.event.ID = uuid.New()
	}
	s.event.Topic = topic
	s.event.AggregateID = aggregateID
	s.event.Payload = payload
	if s.event.OccurredAt.IsZero() {
		s.event.OccurredAt = time.Now()
	}
	return s.event, nil
}

type captureScheduler struct {
	events []events.Event
}

func (c *captureScheduler) Schedule(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

type captureNotifier struct {
	events []events.Event
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return nil
}

func TestEmitPersistsEvent(t *testing.T) {
	store := &stubStore{}
	scheduler := &captureScheduler{}
	notifier := &captureNotifier{}
	bus := events.Bus{
		Store:     store,
		Scheduler: scheduler,
		Notifiers: []events.Notifier{notifier},
	}

	aggregate := uuid.New()
	payload := map[string]any{"billNumber": "INV-000042"}
	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicBillCreated, aggregate, payload)
	require.NoError(t, err)
	require.Equal(t, events.TopicBillCreated, store.lastTopic)
	require.JSONEq(t, `{"billNumber":"INV-000042"}`, string(store.lastPayload))
	require.Len(t, scheduler.events, 1)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, scheduler.events[0].ID)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(event.Payload, &decoded))
	require.Equal(t, "INV-000042", decoded["billNumber"])
}

func TestEmitRejectsMissingAggregate(t *testing.T) {
	bus := events.Bus{Store: &stubStore{}}
	_, err := bus.Emit(context.Background(), events.TopicReceiptCreated, uuid.Nil, nil)
	require.Error(t, err)
}

func TestEmitDefaultsEmptyPayload(t *testing.T) {
	store := &stubStore{}
	bus := events.Bus{Store: store}
	_, err := bus.Emit(context.Background(), events.TopicStockLow, uuid.New(), nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(store.lastPayload))
}
