package payment

import (
	"context"
	"fmt"
)

// Intent is the slice of the processor's payment-intent resource this core
// needs: the id (later the order idempotency key) and the client secret the
// browser uses to complete payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Provider creates payment intents on the processor. The production
// implementation talks to Stripe; tests substitute a fake.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
}

// ProcessorError wraps a failure from the payment processor. It surfaces to
// the client as a generic 5xx; the detail is only logged server-side.
type ProcessorError struct {
	Err error
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("payment processor error: %v", e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }
