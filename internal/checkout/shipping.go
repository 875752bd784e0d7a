package checkout

// ShippingConfig is the single source of truth for the shipping rule. Both
// the pre-payment verifier and the webhook materializer compute fees through
// it, so the two paths cannot diverge.
type ShippingConfig struct {
	FreeThresholdCents int64
	FlatFeeCents       int64
}

func (c ShippingConfig) Fee(subtotalCents int64) int64 {
	if subtotalCents < c.FreeThresholdCents {
		return c.FlatFeeCents
	}
	return 0
}
