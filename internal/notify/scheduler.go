package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/events"
	"github.com/noah-isme/backend-kasir/internal/task"
)

// Scheduler fans a persisted domain event out to every active subscription:
// one delivery row and one queued task per endpoint.
type Scheduler struct {
	Store   Store
	Tasks   *asynq.Client
	Queue   string
	Enabled bool
	Log     zerolog.Logger
}

// Schedule implements events.DeliveryScheduler.
func (s *Scheduler) Schedule(ctx context.Context, event events.Event) error {
	if s == nil || !s.Enabled || s.Store == nil || s.Tasks == nil {
		return nil
	}
	subs, err := s.Store.ListActiveSubscriptions(ctx, event.Topic)
	if err != nil {
		return fmt.Errorf("list subscriptions: %w", err)
	}

	var joined error
	for _, sub := range subs {
		delivery, err := s.Store.CreateDelivery(ctx, sub.ID, event.ID)
		if err != nil {
			joined = errors.Join(joined, fmt.Errorf("create delivery for %s: %w", sub.ID, err))
			continue
		}
		t, err := task.NewWebhookDeliverTask(delivery.ID, sub.ID, event.ID, 0)
		if err != nil {
			joined = errors.Join(joined, err)
			continue
		}
		opts := []asynq.Option{}
		if s.Queue != "" {
			opts = append(opts, asynq.Queue(s.Queue))
		}
		if _, err := s.Tasks.EnqueueContext(ctx, t, opts...); err != nil {
			joined = errors.Join(joined, fmt.Errorf("enqueue delivery %s: %w", delivery.ID, err))
		}
	}
	return joined
}

// TaskNotifier turns low stock events into queued alert tasks so the email
// leaves the request path.
type TaskNotifier struct {
	Tasks *asynq.Client
	Queue string
	Log   zerolog.Logger
}

// Notify implements events.Notifier.
func (n *TaskNotifier) Notify(ctx context.Context, event events.Event) error {
	if n == nil || n.Tasks == nil || event.Topic != events.TopicStockLow {
		return nil
	}
	var payload task.LowStockAlertPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode stock.low payload: %w", err)
	}
	t, err := task.NewLowStockAlertTask(payload)
	if err != nil {
		return err
	}
	opts := []asynq.Option{}
	if n.Queue != "" {
		opts = append(opts, asynq.Queue(n.Queue))
	}
	if _, err := n.Tasks.EnqueueContext(ctx, t, opts...); err != nil {
		return fmt.Errorf("enqueue low stock alert: %w", err)
	}
	return nil
}
