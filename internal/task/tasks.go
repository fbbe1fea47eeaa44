package task

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names routed through asynq.
const (
	TypeWebhookDeliver = "webhook:deliver"
	TypeLowStockAlert  = "stock:low_alert"
)

// WebhookDeliverPayload identifies one delivery row to dispatch.
type WebhookDeliverPayload struct {
	DeliveryID     uuid.UUID `json:"deliveryId"`
	SubscriptionID uuid.UUID `json:"subscriptionId"`
	EventID        uuid.UUID `json:"eventId"`
}

// NewWebhookDeliverTask builds the asynq task for one webhook delivery.
func NewWebhookDeliverTask(deliveryID, subscriptionID, eventID uuid.UUID, maxRetry int) (*asynq.Task, error) {
	payload, err := json.Marshal(WebhookDeliverPayload{
		DeliveryID:     deliveryID,
		SubscriptionID: subscriptionID,
		EventID:        eventID,
	})
	if err != nil {
		return nil, err
	}
	if maxRetry <= 0 {
		maxRetry = 5
	}
	return asynq.NewTask(TypeWebhookDeliver, payload, asynq.MaxRetry(maxRetry)), nil
}

// LowStockAlertPayload carries what the alert email needs.
type LowStockAlertPayload struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Stock     string    `json:"stock"`
}

// NewLowStockAlertTask builds the asynq task for a low stock alert.
func NewLowStockAlertTask(p LowStockAlertPayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeLowStockAlert, payload, asynq.MaxRetry(3)), nil
}
