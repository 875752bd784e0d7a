package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/essence-atelier/perfume_shop/internal/checkout"
	"github.com/essence-atelier/perfume_shop/internal/logging"
	"github.com/essence-atelier/perfume_shop/internal/payment"
	"github.com/essence-atelier/perfume_shop/internal/service/token"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
	Issuer   *payment.Issuer
	Tokens   *token.TokenService
}

type createPaymentIntentRequest struct {
	Items []checkout.CartLine `json:"items"`
}

// CreatePaymentIntent recomputes the cart server-side and creates a payment
// intent for the trusted total. Validation and stock problems come back as
// structured 400s the storefront can render verbatim; processor problems stay
// generic.
func (h *CheckoutHandler) CreatePaymentIntent(c echo.Context) error {
	var req createPaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation_error",
			"message": "invalid request body",
		})
	}

	ctx := c.Request().Context()

	cart, err := h.Checkout.Verify(ctx, req.Items)
	if err != nil {
		var (
			lineErr  *checkout.LineError
			nfErr    *checkout.NotFoundError
			stockErr *checkout.StockError
		)
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation_error",
				"message": "cart is empty",
			})
		case errors.As(err, &lineErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation_error",
				"message": lineErr.Error(),
				"item":    lineErr.Identifier,
			})
		case errors.As(err, &nfErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "validation_error",
				"message": nfErr.Error(),
				"missing": nfErr.Identifiers,
			})
		case errors.As(err, &stockErr):
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":      "stock_error",
				"message":    stockErr.Error(),
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			})
		default:
			logging.FromContext(ctx).Error("cart verification failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"error":   "server_error",
				"message": "something went wrong, try again",
			})
		}
	}

	userID := ""
	if h.Tokens != nil {
		userID = h.Tokens.OptionalUserID(c)
	}

	res, err := h.Issuer.Issue(ctx, cart, userID)
	if err != nil {
		logging.FromContext(ctx).Error("payment intent creation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":   "server_error",
			"message": "something went wrong, try again",
		})
	}

	return c.JSON(http.StatusOK, res)
}
