package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/events"
	"github.com/essence-atelier/perfume_shop/internal/models"
	"github.com/essence-atelier/perfume_shop/internal/search"
	"github.com/essence-atelier/perfume_shop/internal/storage"
	"github.com/essence-atelier/perfume_shop/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer events.Publisher
	Indexer  search.Indexer
	Uploader storage.Uploader
}

// productRequest uses pointers for the numeric fields so a partial update can
// tell "omitted" apart from a legitimate zero.
type productRequest struct {
	Slug              string               `json:"slug"`
	Name              string               `json:"name"`
	Brand             string               `json:"brand"`
	Description       string               `json:"description"`
	PriceCents        *int64               `json:"price_cents"`
	Stock             *int64               `json:"stock"`
	Status            models.ProductStatus `json:"status"`
	LowStockThreshold *int64               `json:"low_stock_threshold"`
	CategoryID        *uint                `json:"category_id"`
}

// GetProduct serves the storefront detail page; the param may be an id or a
// slug.
func (h *ProductHandler) GetProduct(c echo.Context) error {
	param := c.Param("id")

	var product models.Product
	q := h.DB.Preload("Tags")
	if id, err := strconv.Atoi(param); err == nil {
		q = q.Where("id = ? OR slug = ?", id, param)
	} else {
		q = q.Where("slug = ?", param)
	}
	if err := q.First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("product %q not found", param))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	q := h.DB.Model(&models.Product{})
	if c.QueryParam("all") != "1" {
		q = q.Where("status = ?", models.ProductPublished)
	}
	if cat := c.QueryParam("category_id"); cat != "" {
		q = q.Where("category_id = ?", cat)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	var items []models.Product
	if err := q.Preload("Tags").Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Slug == "" || req.Name == "" {
		return errorResponse(c, http.StatusBadRequest, errors.New("slug and name are required"))
	}
	var price, stock, threshold int64
	if req.PriceCents != nil {
		price = *req.PriceCents
	}
	if req.Stock != nil {
		stock = *req.Stock
	}
	if req.LowStockThreshold != nil {
		threshold = *req.LowStockThreshold
	}
	if price < 0 || stock < 0 {
		return errorResponse(c, http.StatusBadRequest, errors.New("price and stock must be non-negative"))
	}
	status := req.Status
	if status == "" {
		status = models.ProductDraft
	}
	if !status.Valid() {
		return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
	}

	prod := models.Product{
		Slug:              req.Slug,
		Name:              req.Name,
		Brand:             req.Brand,
		Description:       req.Description,
		PriceCents:        price,
		Stock:             stock,
		Status:            status,
		LowStockThreshold: threshold,
		CategoryID:        req.CategoryID,
	}
	if err := h.DB.Create(&prod).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errorResponse(c, http.StatusConflict, fmt.Errorf("slug %q already exists", req.Slug))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	h.index(c, &prod)
	publishEvent(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"slug":       prod.Slug,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("product %d not found", id))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	if req.Slug != "" {
		prod.Slug = req.Slug
	}
	if req.Name != "" {
		prod.Name = req.Name
	}
	if req.Brand != "" {
		prod.Brand = req.Brand
	}
	if req.Description != "" {
		prod.Description = req.Description
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return errorResponse(c, http.StatusBadRequest, errors.New("price must be non-negative"))
		}
		prod.PriceCents = *req.PriceCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return errorResponse(c, http.StatusBadRequest, errors.New("stock must be non-negative"))
		}
		prod.Stock = *req.Stock
	}
	if req.LowStockThreshold != nil {
		prod.LowStockThreshold = *req.LowStockThreshold
	}
	if req.CategoryID != nil {
		prod.CategoryID = req.CategoryID
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return errorResponse(c, http.StatusBadRequest, fmt.Errorf("invalid status %q", req.Status))
		}
		prod.Status = req.Status
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	h.index(c, &prod)
	publishEvent(c, h.Producer, events.TopicProductEvents, fmt.Sprint(prod.ID), map[string]any{
		"type":       "product_updated",
		"product_id": prod.ID,
		"slug":       prod.Slug,
	})

	return c.JSON(http.StatusOK, prod)
}

// UpdateStock is the quick stock edit from the back office table.
func (h *ProductHandler) UpdateStock(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req struct {
		Stock int64 `json:"stock"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Stock < 0 {
		return errorResponse(c, http.StatusBadRequest, errors.New("stock must be non-negative"))
	}

	res := h.DB.Model(&models.Product{}).Where("id = ?", id).Update("stock", req.Stock)
	if res.Error != nil {
		return errorResponse(c, http.StatusInternalServerError, res.Error)
	}
	if res.RowsAffected == 0 {
		return errorResponse(c, http.StatusNotFound, fmt.Errorf("product %d not found", id))
	}

	publishEvent(c, h.Producer, events.TopicStockEvents, fmt.Sprint(id), map[string]any{
		"type":       "stock_updated",
		"product_id": id,
		"stock":      req.Stock,
	})

	return c.JSON(http.StatusOK, echo.Map{"id": id, "stock": req.Stock})
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if err := h.DB.Delete(&models.Product{}, id).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	if h.Indexer != nil {
		h.Indexer.DeleteProduct(c.Request().Context(), uint(id))
	}
	publishEvent(c, h.Producer, events.TopicProductEvents, fmt.Sprint(id), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// UploadImage stores a product image in object storage and records its URL.
func (h *ProductHandler) UploadImage(c echo.Context) error {
	if h.Uploader == nil {
		return errorResponse(c, http.StatusInternalServerError, errors.New("object storage is not configured"))
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("product %d not found", id))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, errors.New("missing image file"))
	}
	src, err := file.Open()
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	defer src.Close()

	key := fmt.Sprintf("products/%d/%s", prod.ID, path.Base(file.Filename))
	url, err := h.Uploader.Upload(c.Request().Context(), key, src, file.Header.Get("Content-Type"))
	if err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	prod.ImageURL = url
	if err := h.DB.Save(&prod).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	h.index(c, &prod)
	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteImage(c echo.Context) error {
	if h.Uploader == nil {
		return errorResponse(c, http.StatusInternalServerError, errors.New("object storage is not configured"))
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return errorResponse(c, http.StatusNotFound, fmt.Errorf("product %d not found", id))
	}
	if prod.ImageURL == "" {
		return c.NoContent(http.StatusNoContent)
	}

	key := fmt.Sprintf("products/%d/%s", prod.ID, path.Base(prod.ImageURL))
	if err := h.Uploader.Delete(c.Request().Context(), key); err != nil {
		c.Logger().Errorf("image delete error: %v", err)
	}

	prod.ImageURL = ""
	if err := h.DB.Save(&prod).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	if h.Indexer == nil {
		return
	}
	h.Indexer.IndexProduct(c.Request().Context(), p)
}
