package checkout

import (
	"context"
	"strconv"

	"github.com/essence-atelier/perfume_shop/internal/catalog"
)

// CartLine is what the browser sends: an identifier (slug or id) and a
// quantity. Nothing else from the client is trusted.
type CartLine struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// VerifiedLine carries the authoritative price/name/image copied from the
// catalog at verification time.
type VerifiedLine struct {
	ProductID      uint   `json:"product_id"`
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	ImageURL       string `json:"image_url"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int64  `json:"quantity"`
}

type VerifiedCart struct {
	Lines            []VerifiedLine `json:"lines"`
	SubtotalCents    int64          `json:"subtotal_cents"`
	ShippingFeeCents int64          `json:"shipping_fee_cents"`
	TotalCents       int64          `json:"total_cents"`
}

type Service struct {
	Resolver *catalog.Resolver
	Shipping ShippingConfig
}

// Verify recomputes the cart server-side: every identifier must resolve,
// every quantity must be positive and covered by stock. All prices come from
// the catalog; client-supplied copies are discarded. Failures are business
// rules, not transient faults, and are never retried here.
func (s *Service) Verify(ctx context.Context, lines []CartLine) (*VerifiedCart, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	identifiers := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, &LineError{Identifier: l.ID, Quantity: l.Quantity}
		}
		identifiers = append(identifiers, l.ID)
	}

	resolved, err := s.Resolver.Resolve(ctx, identifiers)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, l := range lines {
		if _, ok := resolved[l.ID]; !ok {
			missing = append(missing, l.ID)
		}
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Identifiers: missing}
	}

	out := &VerifiedCart{Lines: make([]VerifiedLine, 0, len(lines))}
	for _, l := range lines {
		p := resolved[l.ID]
		if p.Stock < l.Quantity {
			return nil, &StockError{ProductID: p.ID, Slug: p.Slug, Requested: l.Quantity, Available: p.Stock}
		}
		out.Lines = append(out.Lines, VerifiedLine{
			ProductID:      p.ID,
			Slug:           p.Slug,
			Name:           p.Name,
			ImageURL:       p.ImageURL,
			UnitPriceCents: p.PriceCents,
			Quantity:       l.Quantity,
		})
		out.SubtotalCents += p.PriceCents * l.Quantity
	}

	out.ShippingFeeCents = s.Shipping.Fee(out.SubtotalCents)
	out.TotalCents = out.SubtotalCents + out.ShippingFeeCents
	return out, nil
}

// ProductIDString is the canonical identifier written into payment metadata.
func (l VerifiedLine) ProductIDString() string {
	return strconv.FormatUint(uint64(l.ProductID), 10)
}
