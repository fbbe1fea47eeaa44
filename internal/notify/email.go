package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-kasir/internal/common"
	"github.com/noah-isme/backend-kasir/internal/task"
)

// LowStockMailer emails the shop owner when a product runs low. It is the
// asynq handler for low stock alert tasks.
type LowStockMailer struct {
	Sender common.EmailSender
	To     string
	Log    zerolog.Logger
}

// ProcessTask implements asynq.Handler.
func (m *LowStockMailer) ProcessTask(_ context.Context, t *asynq.Task) error {
	if m.Sender == nil || m.To == "" {
		return nil
	}
	var payload task.LowStockAlertPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", asynq.SkipRetry)
	}
	subject := fmt.Sprintf("Low stock: %s", payload.Name)
	body := fmt.Sprintf("<p><strong>%s</strong> is down to %s. Time to reorder.</p>", payload.Name, payload.Stock)
	if err := m.Sender.Send(m.To, subject, body); err != nil {
		return fmt.Errorf("send low stock email: %w", err)
	}
	m.Log.Info().Str("product", payload.Name).Str("stock", payload.Stock).Msg("low stock alert sent")
	return nil
}
