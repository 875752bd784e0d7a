package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/events"
	"github.com/essence-atelier/perfume_shop/internal/models"
	"github.com/essence-atelier/perfume_shop/internal/orders"
	"github.com/essence-atelier/perfume_shop/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer events.Publisher
}

func (h *OrderHandler) GetOrders(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Order{})
	if status := c.QueryParam("status"); status != "" {
		if !orders.ValidStatus(models.OrderStatus(status)) {
			return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", status))
		}
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	var items []models.Order
	if err := q.Preload("Items").Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":  page,
			"size":  limit,
			"total": total,
		},
	})
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var order models.Order
	if err := h.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("order %d not found", id))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateStatus walks the order along the closed state machine. Paid orders
// never change amount or lines here, only status and shipping metadata.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	next := models.OrderStatus(req.Status)
	if !orders.ValidStatus(next) {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("order %d not found", id))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	if !orders.CanTransition(order.Status, next) {
		return errorResponse(c, http.StatusConflict, fmt.Errorf("cannot transition order from %s to %s", order.Status, next))
	}

	order.Status = next
	if err := h.DB.Save(&order).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	publishEvent(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(order.ID), map[string]any{
		"type":     "order_status_changed",
		"order_id": order.ID,
		"status":   string(next),
	})

	return c.JSON(http.StatusOK, order)
}

// UpdateShipping edits the mutable shipping fields of an order.
func (h *OrderHandler) UpdateShipping(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req struct {
		Line1   string `json:"shipping_line1"`
		Line2   string `json:"shipping_line2"`
		City    string `json:"shipping_city"`
		Zip     string `json:"shipping_zip"`
		Country string `json:"shipping_country"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var order models.Order
	if err := h.DB.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("order %d not found", id))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	order.ShippingLine1 = req.Line1
	order.ShippingLine2 = req.Line2
	order.ShippingCity = req.City
	order.ShippingZip = req.Zip
	order.ShippingCountry = req.Country
	if err := h.DB.Save(&order).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, order)
}
