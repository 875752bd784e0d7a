package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/essence-atelier/perfume_shop/internal/logging"
	"github.com/essence-atelier/perfume_shop/internal/orders"
)

// maxWebhookBody bounds the raw payload read before signature verification.
const maxWebhookBody = 1 << 16

type WebhookHandler struct {
	WebhookSecret string
	Materializer  *orders.Materializer
}

// HandlePaymentWebhook is the processor's entry point. The signature over the
// raw body is the sole authentication for this route and runs before any
// payload parsing. Redeliveries are safe: materialization is idempotent on
// the payment intent id.
func (h *WebhookHandler) HandlePaymentWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	log := logging.FromContext(ctx)

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_payload"})
	}

	event, err := webhook.ConstructEvent(payload, c.Request().Header.Get("Stripe-Signature"), h.WebhookSecret)
	if err != nil {
		log.Warn("webhook signature verification failed", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid_signature"})
	}

	if event.Type != stripe.EventTypePaymentIntentSucceeded {
		// Not ours to handle; acknowledge so the processor stops redelivering.
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.Error("webhook event payload unparseable", "event_id", event.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	customerName := ""
	if intent.Shipping != nil {
		customerName = intent.Shipping.Name
	}

	ev := orders.PaymentEvent{
		EventID:       event.ID,
		IntentID:      intent.ID,
		AmountCents:   intent.Amount,
		Currency:      string(intent.Currency),
		CustomerName:  customerName,
		CustomerEmail: intent.ReceiptEmail,
		Metadata:      intent.Metadata,
		RawPayload:    payload,
	}

	if err := h.Materializer.HandlePaymentSucceeded(ctx, ev); err != nil {
		var merr *orders.MalformedMetadataError
		if errors.As(err, &merr) {
			// Redelivery will not fix a broken snapshot; ack is withheld so
			// the failure stays visible for manual reconciliation.
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "malformed_metadata"})
		}
		log.Error("order materialization failed", "event_id", event.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server_error"})
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
