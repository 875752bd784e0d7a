package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

type StockAlertHandler struct {
	DB *gorm.DB
}

func (h *StockAlertHandler) GetAlerts(c echo.Context) error {
	q := h.DB.Model(&models.StockAlert{})
	if c.QueryParam("all") != "1" {
		q = q.Where("resolved = ?", false)
	}

	var alerts []models.StockAlert
	if err := q.Order("id DESC").Find(&alerts).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, alerts)
}

func (h *StockAlertHandler) ResolveAlert(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	res := h.DB.Model(&models.StockAlert{}).Where("id = ?", id).Update("resolved", true)
	if res.Error != nil {
		return errorResponse(c, http.StatusInternalServerError, res.Error)
	}
	if res.RowsAffected == 0 {
		return errorResponse(c, http.StatusNotFound, fmt.Errorf("alert %d not found", id))
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "resolved": true})
}
