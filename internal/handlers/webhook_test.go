package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v78"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/catalog"
	"github.com/essence-atelier/perfume_shop/internal/checkout"
	"github.com/essence-atelier/perfume_shop/internal/models"
	"github.com/essence-atelier/perfume_shop/internal/orders"
)

const testWebhookSecret = "whsec_test_secret"

func newWebhookHandler(t *testing.T) (*WebhookHandler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	h := &WebhookHandler{
		WebhookSecret: testWebhookSecret,
		Materializer: &orders.Materializer{
			DB:       db,
			Resolver: &catalog.Resolver{DB: db},
			Shipping: checkout.ShippingConfig{FreeThresholdCents: 20000, FlatFeeCents: 500},
			Logger:   slog.Default(),
		},
	}
	return h, db
}

// signStripe produces a Stripe-Signature header the way the processor signs
// deliveries: HMAC-SHA256 over "<timestamp>.<payload>".
func signStripe(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func succeededEventPayload(t *testing.T, eventID, intentID string, amount int64, metadata map[string]string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"api_version": stripe.APIVersion,
		"type":        "payment_intent.succeeded",
		"data": map[string]any{
			"object": map[string]any{
				"id":            intentID,
				"object":        "payment_intent",
				"amount":        amount,
				"currency":      "eur",
				"receipt_email": "buyer@example.com",
				"shipping":      map[string]any{"name": "Ingrid Holm"},
				"metadata":      metadata,
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func postWebhook(t *testing.T, h *WebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", strings.NewReader(string(payload)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h.HandlePaymentWebhook(e.NewContext(req, rec)))
	return rec
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h, db := newWebhookHandler(t)
	p := seedPublished(t, db, "sig-test", 5000, 5)

	payload := succeededEventPayload(t, "evt_nosig", "pi_nosig", 5500, map[string]string{
		"cart_items": fmt.Sprintf(`[{"id":"%d","qty":1}]`, p.ID),
	})
	rec := postWebhook(t, h, payload, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_signature")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h, db := newWebhookHandler(t)
	p := seedPublished(t, db, "forged", 5000, 5)

	payload := succeededEventPayload(t, "evt_forged", "pi_forged", 5500, map[string]string{
		"cart_items": fmt.Sprintf(`[{"id":"%d","qty":1}]`, p.ID),
	})
	rec := postWebhook(t, h, payload, signStripe(payload, "whsec_wrong_secret", time.Now()))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid_signature")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestWebhookRejectsStaleTimestamp(t *testing.T) {
	h, db := newWebhookHandler(t)
	p := seedPublished(t, db, "stale", 5000, 5)

	payload := succeededEventPayload(t, "evt_stale", "pi_stale", 5500, map[string]string{
		"cart_items": fmt.Sprintf(`[{"id":"%d","qty":1}]`, p.ID),
	})
	rec := postWebhook(t, h, payload, signStripe(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestWebhookMaterializesOrder(t *testing.T) {
	h, db := newWebhookHandler(t)
	p := seedPublished(t, db, "verified", 19500, 10)

	payload := succeededEventPayload(t, "evt_ok", "pi_ok", 20000, map[string]string{
		"cart_items": fmt.Sprintf(`[{"id":"%d","qty":1}]`, p.ID),
	})
	rec := postWebhook(t, h, payload, signStripe(payload, testWebhookSecret, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "received")

	var order models.Order
	require.NoError(t, db.Preload("Items").Where("payment_intent_id = ?", "pi_ok").First(&order).Error)
	require.Equal(t, models.OrderPaid, order.Status)
	require.Equal(t, int64(20000), order.AmountCents)
	require.Equal(t, "buyer@example.com", order.CustomerEmail)
	require.Equal(t, "Ingrid Holm", order.CustomerName)
	require.Len(t, order.Items, 1)

	var after models.Product
	require.NoError(t, db.First(&after, p.ID).Error)
	require.Equal(t, int64(9), after.Stock)
}

func TestWebhookIgnoresOtherEventTypes(t *testing.T) {
	h, db := newWebhookHandler(t)

	payload, err := json.Marshal(map[string]any{
		"id":          "evt_other",
		"api_version": stripe.APIVersion,
		"type":        "charge.refunded",
		"data":        map[string]any{"object": map[string]any{"id": "ch_1"}},
	})
	require.NoError(t, err)

	rec := postWebhook(t, h, payload, signStripe(payload, testWebhookSecret, time.Now()))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(0), count)
}

func TestWebhookMalformedMetadataWithholdsAck(t *testing.T) {
	h, db := newWebhookHandler(t)

	payload := succeededEventPayload(t, "evt_badmeta", "pi_badmeta", 5500, map[string]string{
		"cart_items": "{not json",
	})
	rec := postWebhook(t, h, payload, signStripe(payload, testWebhookSecret, time.Now()))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "malformed_metadata")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Equal(t, int64(0), count)

	// The delivery itself is still recorded for reconciliation.
	var ev models.WebhookEvent
	require.NoError(t, db.Where("provider_event_id = ?", "evt_badmeta").First(&ev).Error)
	require.NotEmpty(t, ev.ProcessingError)
}
