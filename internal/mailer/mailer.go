package mailer

import (
	"context"
	"log/slog"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

// Mailer dispatches transactional mail. Order confirmation is best-effort: a
// failure is logged and never blocks or rolls back the order itself.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
}

// LogMailer records the dispatch in the log instead of sending. It stands in
// until an SMTP/ESP integration is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) SendOrderConfirmation(_ context.Context, order *models.Order) error {
	m.Logger.Info("order confirmation mail",
		"order_id", order.ID,
		"email", order.CustomerEmail,
		"amount_cents", order.AmountCents,
	)
	return nil
}
