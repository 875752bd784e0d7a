package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

func TestCreateProduct(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}

	c, rec := jsonContext(t, http.MethodPost, "/api/v1/admin/products",
		`{"slug":"bal-d-afrique","name":"Bal d'Afrique","brand":"Byredo","price_cents":19500,"stock":12}`)
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, models.ProductDraft, created.Status) // draft until explicitly published
	require.Equal(t, int64(19500), created.PriceCents)

	var stored models.Product
	require.NoError(t, db.Where("slug = ?", "bal-d-afrique").First(&stored).Error)
	require.Equal(t, "Byredo", stored.Brand)
}

func TestCreateProductDuplicateSlug(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	seedPublished(t, db, "taken", 1000, 1)

	c, rec := jsonContext(t, http.MethodPost, "/api/v1/admin/products",
		`{"slug":"taken","name":"Other","price_cents":2000}`)
	require.NoError(t, h.CreateProduct(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateProductRejectsInvalidInput(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}

	for _, body := range []string{
		`{"name":"no slug","price_cents":100}`,
		`{"slug":"neg-price","name":"x","price_cents":-1}`,
		`{"slug":"bad-status","name":"x","price_cents":100,"status":"limbo"}`,
	} {
		c, rec := jsonContext(t, http.MethodPost, "/api/v1/admin/products", body)
		require.NoError(t, h.CreateProduct(c))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestGetProductBySlugAndID(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	p := seedPublished(t, db, "gypsy-water", 17500, 4)

	for _, param := range []string{"gypsy-water", "1"} {
		c, rec := jsonContext(t, http.MethodGet, "/api/v1/products/"+param, "")
		c.SetParamNames("id")
		c.SetParamValues(param)
		require.NoError(t, h.GetProduct(c))
		require.Equal(t, http.StatusOK, rec.Code, param)

		var got models.Product
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		require.Equal(t, p.ID, got.ID)
	}
}

func TestGetProductNotFound(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}

	c, rec := jsonContext(t, http.MethodGet, "/api/v1/products/nope", "")
	c.SetParamNames("id")
	c.SetParamValues("nope")
	require.NoError(t, h.GetProduct(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetProductsHidesUnpublished(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	seedPublished(t, db, "visible", 1000, 1)
	draft := models.Product{Slug: "hidden", Name: "hidden", PriceCents: 2000, Status: models.ProductDraft}
	require.NoError(t, db.Create(&draft).Error)

	c, rec := jsonContext(t, http.MethodGet, "/api/v1/products", "")
	require.NoError(t, h.GetProducts(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []models.Product `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(1), body.Meta.Total)
	require.Equal(t, "visible", body.Data[0].Slug)

	// The back office sees everything.
	c, rec = jsonContext(t, http.MethodGet, "/api/v1/products?all=1", "")
	require.NoError(t, h.GetProducts(c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, int64(2), body.Meta.Total)
}

func TestPatchProduct(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	p := seedPublished(t, db, "patchme", 5000, 3)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/admin/products/1",
		`{"price_cents":6000,"status":"archived"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var after models.Product
	require.NoError(t, db.First(&after, p.ID).Error)
	require.Equal(t, int64(6000), after.PriceCents)
	require.Equal(t, models.ProductArchived, after.Status)
	require.Equal(t, "patchme", after.Slug)     // untouched fields survive
	require.Equal(t, int64(3), after.Stock)     // omitted stock is not reset
}

func TestPatchProductLeavesOmittedNumericFields(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	p := seedPublished(t, db, "renamed", 5000, 7)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/admin/products/1", `{"name":"Renamed"}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var after models.Product
	require.NoError(t, db.First(&after, p.ID).Error)
	require.Equal(t, "Renamed", after.Name)
	require.Equal(t, int64(7), after.Stock)
	require.Equal(t, int64(5000), after.PriceCents)
}

func TestPatchProductAllowsZeroPrice(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	p := seedPublished(t, db, "sample", 5000, 7)

	c, rec := jsonContext(t, http.MethodPatch, "/api/v1/admin/products/1", `{"price_cents":0}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var after models.Product
	require.NoError(t, db.First(&after, p.ID).Error)
	require.Equal(t, int64(0), after.PriceCents)

	c, rec = jsonContext(t, http.MethodPatch, "/api/v1/admin/products/1", `{"price_cents":-1}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.PatchProduct(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStock(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	p := seedPublished(t, db, "restock", 5000, 0)

	c, rec := jsonContext(t, http.MethodPut, "/api/v1/admin/products/1/stock", `{"stock":25}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStock(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var after models.Product
	require.NoError(t, db.First(&after, p.ID).Error)
	require.Equal(t, int64(25), after.Stock)

	c, rec = jsonContext(t, http.MethodPut, "/api/v1/admin/products/1/stock", `{"stock":-5}`)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.UpdateStock(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteProduct(t *testing.T) {
	db := newTestDB(t)
	h := &ProductHandler{DB: db}
	p := seedPublished(t, db, "byebye", 5000, 3)

	c, rec := jsonContext(t, http.MethodDelete, "/api/v1/admin/products/1", "")
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.DeleteProduct(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Count(&count).Error)
	require.Equal(t, int64(0), count)
}
