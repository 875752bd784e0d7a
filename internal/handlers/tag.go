package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

type TagHandler struct {
	DB *gorm.DB
}

func (h *TagHandler) GetTags(c echo.Context) error {
	var tags []models.Tag
	if err := h.DB.Order("name ASC").Find(&tags).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) CreateTag(c echo.Context) error {
	var req models.Tag
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}
	if req.Slug == "" || req.Name == "" {
		return errorResponse(c, http.StatusBadRequest, errors.New("slug and name are required"))
	}
	req.ID = 0

	if err := h.DB.Create(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errorResponse(c, http.StatusConflict, fmt.Errorf("slug %q already exists", req.Slug))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.JSON(http.StatusCreated, req)
}

func (h *TagHandler) DeleteTag(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var tag models.Tag
	if err := h.DB.First(&tag, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("tag %d not found", id))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	if err := h.DB.Exec("DELETE FROM product_tags WHERE tag_id = ?", tag.ID).Error; err != nil {
		c.Logger().Errorf("tag association clear error: %v", err)
	}
	if err := h.DB.Delete(&tag).Error; err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AssignTags replaces a product's tag set.
func (h *TagHandler) AssignTags(c echo.Context) error {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req struct {
		TagIDs []uint `json:"tag_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, fmt.Errorf("product %d not found", productID))
		}
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	var tags []models.Tag
	if len(req.TagIDs) > 0 {
		if err := h.DB.Find(&tags, req.TagIDs).Error; err != nil {
			return errorResponse(c, http.StatusInternalServerError, err)
		}
		if len(tags) != len(req.TagIDs) {
			return errorResponse(c, http.StatusBadRequest, errors.New("unknown tag id in request"))
		}
	}

	if err := h.DB.Model(&prod).Association("Tags").Replace(tags); err != nil {
		return errorResponse(c, http.StatusInternalServerError, err)
	}

	prod.Tags = tags
	return c.JSON(http.StatusOK, prod)
}
