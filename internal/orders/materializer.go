package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/catalog"
	"github.com/essence-atelier/perfume_shop/internal/checkout"
	"github.com/essence-atelier/perfume_shop/internal/events"
	"github.com/essence-atelier/perfume_shop/internal/mailer"
	"github.com/essence-atelier/perfume_shop/internal/models"
	"github.com/essence-atelier/perfume_shop/internal/payment"
)

// PaymentEvent is the processor-neutral shape of a succeeded payment, already
// signature-verified by the webhook handler.
type PaymentEvent struct {
	EventID       string
	IntentID      string
	AmountCents   int64
	Currency      string
	CustomerName  string
	CustomerEmail string
	Metadata      map[string]string
	RawPayload    []byte
}

// MalformedMetadataError means the intent carries no usable cart snapshot.
// The money is captured but nothing traceable can be recorded, so the event
// fails loudly and waits for manual reconciliation.
type MalformedMetadataError struct {
	IntentID string
	Err      error
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("payment intent %s: malformed cart metadata: %v", e.IntentID, e.Err)
}

func (e *MalformedMetadataError) Unwrap() error { return e.Err }

// Materializer turns a succeeded payment event into exactly one order plus a
// best-effort stock decrement per line. Redelivery of the same event is a
// no-op keyed on the payment intent id.
type Materializer struct {
	DB        *gorm.DB
	Resolver  *catalog.Resolver
	Shipping  checkout.ShippingConfig
	Publisher events.Publisher
	Mailer    mailer.Mailer
	Logger    *slog.Logger
}

// HandlePaymentSucceeded materializes an order for a succeeded payment.
// Order creation is must-succeed; the stock decrements, events and mail that
// follow are secondary effects whose failures are logged, never returned.
func (m *Materializer) HandlePaymentSucceeded(ctx context.Context, ev PaymentEvent) error {
	log := m.Logger.With("payment_intent_id", ev.IntentID, "event_id", ev.EventID)

	record, processed, err := m.recordEvent(ctx, ev)
	if err != nil {
		return err
	}
	if processed {
		log.Info("webhook event already processed, acknowledging")
		return nil
	}

	// Idempotency gate: one order per payment intent, ever.
	var existing models.Order
	err = m.DB.WithContext(ctx).Where("payment_intent_id = ?", ev.IntentID).First(&existing).Error
	if err == nil {
		log.Info("order already exists, acknowledging redelivery", "order_id", existing.ID)
		m.markProcessed(ctx, record, "")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("order lookup: %w", err)
	}

	items, err := payment.ParseSnapshot(ev.Metadata[payment.MetadataCartKey])
	if err != nil {
		merr := &MalformedMetadataError{IntentID: ev.IntentID, Err: err}
		log.Error("refusing to materialize order", "error", merr)
		m.markProcessed(ctx, record, merr.Error())
		return merr
	}

	identifiers := make([]string, 0, len(items))
	for _, it := range items {
		identifiers = append(identifiers, it.ID)
	}

	// Fresh catalog read: arbitrary time may have passed since issuance, so
	// prices are re-derived here and snapshotted into the order lines.
	resolved, err := m.Resolver.Resolve(ctx, identifiers)
	if err != nil {
		return fmt.Errorf("resolve cart snapshot: %w", err)
	}

	var lines []models.OrderItem
	var subtotal int64
	for _, it := range items {
		p, ok := resolved[it.ID]
		if !ok {
			// Post-payment the priority flips: record what can be recorded
			// instead of refusing the whole order.
			log.Warn("cart snapshot entry no longer resolves, skipping line", "identifier", it.ID, "qty", it.Qty)
			continue
		}
		lines = append(lines, models.OrderItem{
			ProductID:      p.ID,
			NameSnapshot:   p.Name,
			SlugSnapshot:   p.Slug,
			ImageSnapshot:  p.ImageURL,
			Quantity:       it.Qty,
			UnitPriceCents: p.PriceCents,
		})
		subtotal += p.PriceCents * it.Qty
	}

	if len(lines) == 0 {
		merr := &MalformedMetadataError{IntentID: ev.IntentID, Err: fmt.Errorf("no snapshot entry resolves to a product")}
		log.Error("refusing to materialize order", "error", merr)
		m.markProcessed(ctx, record, merr.Error())
		return merr
	}

	shippingFee := m.Shipping.Fee(subtotal)
	total := subtotal + shippingFee
	if ev.AmountCents != 0 && ev.AmountCents != total {
		log.Warn("charged amount differs from recomputed total", "charged", ev.AmountCents, "recomputed", total)
	}

	currency := ev.Currency
	if currency == "" {
		currency = "eur"
	}

	order := models.Order{
		UserID:           parseUserID(ev.Metadata["user_id"]),
		PaymentIntentID:  ev.IntentID,
		AmountCents:      total,
		SubtotalCents:    subtotal,
		ShippingFeeCents: shippingFee,
		Currency:         currency,
		Status:           models.OrderPaid,
		CustomerName:     ev.CustomerName,
		CustomerEmail:    ev.CustomerEmail,
		Items:            lines,
	}

	if err := m.DB.WithContext(ctx).Create(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// A concurrent delivery of the same event won the race; the
			// unique index on payment_intent_id is the backstop.
			log.Info("concurrent materialization already created the order, acknowledging")
			m.markProcessed(ctx, record, "")
			return nil
		}
		return fmt.Errorf("create order: %w", err)
	}

	log.Info("order materialized", "order_id", order.ID, "amount_cents", order.AmountCents, "lines", len(order.Items))

	for _, line := range order.Items {
		m.decrementStock(ctx, log, line.ProductID, line.Quantity)
	}

	m.markProcessed(ctx, record, "")

	m.publish(ctx, events.TopicOrderEvents, ev.IntentID, map[string]any{
		"type":              "order_created",
		"order_id":          order.ID,
		"payment_intent_id": ev.IntentID,
		"amount_cents":      order.AmountCents,
		"items":             len(order.Items),
	})

	if m.Mailer != nil && order.CustomerEmail != "" {
		if err := m.Mailer.SendOrderConfirmation(ctx, &order); err != nil {
			log.Error("order confirmation mail failed", "order_id", order.ID, "error", err)
		}
	}

	return nil
}

// decrementStock runs a single server-side conditional update so concurrent
// materializations for the same product cannot lose updates. Failure is
// logged and never rolls back the order: the order is the durable fact of
// payment, stock accuracy degrades gracefully.
func (m *Materializer) decrementStock(ctx context.Context, log *slog.Logger, productID uint, qty int64) {
	res := m.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		log.Error("stock decrement failed", "product_id", productID, "qty", qty, "error", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		log.Warn("stock decrement matched no product", "product_id", productID)
		return
	}

	var p models.Product
	if err := m.DB.WithContext(ctx).First(&p, productID).Error; err != nil {
		return
	}
	if p.Stock <= p.LowStockThreshold {
		m.raiseStockAlert(ctx, log, p)
	}
}

func (m *Materializer) raiseStockAlert(ctx context.Context, log *slog.Logger, p models.Product) {
	var open models.StockAlert
	err := m.DB.WithContext(ctx).
		Where("product_id = ? AND resolved = ?", p.ID, false).
		First(&open).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Error("stock alert lookup failed", "product_id", p.ID, "error", err)
		return
	}

	alert := models.StockAlert{ProductID: p.ID, Stock: p.Stock, Threshold: p.LowStockThreshold}
	if err := m.DB.WithContext(ctx).Create(&alert).Error; err != nil {
		log.Error("stock alert create failed", "product_id", p.ID, "error", err)
		return
	}

	m.publish(ctx, events.TopicStockEvents, strconv.FormatUint(uint64(p.ID), 10), map[string]any{
		"type":       "stock_low",
		"product_id": p.ID,
		"slug":       p.Slug,
		"stock":      p.Stock,
		"threshold":  p.LowStockThreshold,
	})
}

// recordEvent upserts the webhook audit row. The bool result reports whether
// this provider event was already fully processed.
func (m *Materializer) recordEvent(ctx context.Context, ev PaymentEvent) (*models.WebhookEvent, bool, error) {
	if ev.EventID == "" {
		return nil, false, nil
	}

	var record models.WebhookEvent
	err := m.DB.WithContext(ctx).Where("provider_event_id = ?", ev.EventID).First(&record).Error
	if err == nil {
		return &record, record.ProcessedAt != nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("webhook event lookup: %w", err)
	}

	record = models.WebhookEvent{
		ProviderEventID: ev.EventID,
		EventType:       "payment_intent.succeeded",
		PaymentIntentID: ev.IntentID,
		PayloadJSON:     string(ev.RawPayload),
	}
	if err := m.DB.WithContext(ctx).Create(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("webhook event create: %w", err)
	}
	return &record, false, nil
}

func (m *Materializer) markProcessed(ctx context.Context, record *models.WebhookEvent, processingError string) {
	if record == nil {
		return
	}
	now := time.Now()
	record.ProcessedAt = &now
	record.ProcessingError = processingError
	if err := m.DB.WithContext(ctx).Save(record).Error; err != nil {
		m.Logger.Error("webhook event update failed", "event_id", record.ProviderEventID, "error", err)
	}
}

func (m *Materializer) publish(ctx context.Context, topic, key string, event map[string]any) {
	if m.Publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Publisher.Publish(pubCtx, topic, key, event); err != nil {
		m.Logger.Error("event publish failed", "topic", topic, "error", err)
	}
}

func parseUserID(raw string) *uint {
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil
	}
	id := uint(n)
	return &id
}
