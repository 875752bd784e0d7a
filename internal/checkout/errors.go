package checkout

import (
	"errors"
	"fmt"
)

var ErrEmptyCart = errors.New("cart is empty")

// LineError flags a cart line with a non-positive quantity.
type LineError struct {
	Identifier string
	Quantity   int64
}

func (e *LineError) Error() string {
	return fmt.Sprintf("invalid quantity %d for item %q", e.Quantity, e.Identifier)
}

// NotFoundError lists every identifier that did not resolve. The whole request
// fails; silently shipping a partial cart at full price would be worse than
// rejecting it.
type NotFoundError struct {
	Identifiers []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("products not found: %v", e.Identifiers)
}

// StockError reports the first line whose requested quantity exceeds stock.
type StockError struct {
	ProductID uint
	Slug      string
	Requested int64
	Available int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d (%s): requested %d, available %d",
		e.ProductID, e.Slug, e.Requested, e.Available)
}
