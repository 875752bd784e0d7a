package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/essence-atelier/perfume_shop/internal/checkout"
)

// MetadataCartKey is where the cart snapshot lives in processor metadata. The
// snapshot is the durable bridge between what the browser intended to buy and
// what the webhook materializes; the browser itself may be long gone by then.
const MetadataCartKey = "cart_items"

// SnapshotItem is one entry of the metadata cart snapshot. Deliberately just
// id and quantity: price is re-derived from the catalog at materialization
// time, so a stale price can never be baked in here.
type SnapshotItem struct {
	ID  string `json:"id"`
	Qty int64  `json:"qty"`
}

type IssueResult struct {
	ClientSecret     string `json:"client_secret"`
	AmountCents      int64  `json:"amount"`
	ShippingFeeCents int64  `json:"shipping_fee"`
}

type Issuer struct {
	Provider Provider
	Currency string
}

// Issue creates a payment intent for the verified total and pins the cart
// snapshot into the intent's metadata.
func (i *Issuer) Issue(ctx context.Context, cart *checkout.VerifiedCart, userID string) (*IssueResult, error) {
	items := make([]SnapshotItem, 0, len(cart.Lines))
	count := int64(0)
	for _, l := range cart.Lines {
		items = append(items, SnapshotItem{ID: l.ProductIDString(), Qty: l.Quantity})
		count += l.Quantity
	}

	snapshot, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cart snapshot: %w", err)
	}

	metadata := map[string]string{
		MetadataCartKey:      string(snapshot),
		"subtotal_euros":     formatEuros(cart.SubtotalCents),
		"shipping_fee_euros": formatEuros(cart.ShippingFeeCents),
		"items_count":        strconv.FormatInt(count, 10),
	}
	if userID != "" {
		metadata["user_id"] = userID
	}

	intent, err := i.Provider.CreatePaymentIntent(ctx, cart.TotalCents, i.Currency, metadata)
	if err != nil {
		return nil, err
	}

	return &IssueResult{
		ClientSecret:     intent.ClientSecret,
		AmountCents:      cart.TotalCents,
		ShippingFeeCents: cart.ShippingFeeCents,
	}, nil
}

// ParseSnapshot decodes a cart_items metadata value back into snapshot items.
func ParseSnapshot(raw string) ([]SnapshotItem, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty cart snapshot")
	}
	var items []SnapshotItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("cart snapshot has no items")
	}
	return items, nil
}

func formatEuros(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
