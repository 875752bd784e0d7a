package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/catalog"
	"github.com/essence-atelier/perfume_shop/internal/config"
	"github.com/essence-atelier/perfume_shop/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	svc := &Service{
		Resolver: &catalog.Resolver{DB: db},
		Shipping: ShippingConfig{FreeThresholdCents: 20000, FlatFeeCents: 500},
	}
	return svc, db
}

func TestVerifyEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Verify(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestVerifyInvalidQuantity(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Verify(context.Background(), []CartLine{{ID: "bal-d-afrique", Quantity: 0}})
	var lineErr *LineError
	require.ErrorAs(t, err, &lineErr)
	require.Equal(t, "bal-d-afrique", lineErr.Identifier)
}

func TestVerifyNoSilentDrop(t *testing.T) {
	svc, db := newTestService(t)
	require.NoError(t, db.Create(&models.Product{Slug: "a", Name: "A", PriceCents: 1000, Stock: 5, Status: models.ProductPublished}).Error)

	_, err := svc.Verify(context.Background(), []CartLine{
		{ID: "a", Quantity: 2},
		{ID: "missing", Quantity: 1},
	})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, []string{"missing"}, nf.Identifiers)
}

func TestVerifyInsufficientStockFailFast(t *testing.T) {
	svc, db := newTestService(t)
	p := models.Product{Slug: "x", Name: "X", PriceCents: 1000, Stock: 1, Status: models.ProductPublished}
	require.NoError(t, db.Create(&p).Error)

	res, err := svc.Verify(context.Background(), []CartLine{{ID: "x", Quantity: 2}})
	require.Nil(t, res)
	var se *StockError
	require.ErrorAs(t, err, &se)
	require.Equal(t, p.ID, se.ProductID)
	require.Equal(t, int64(2), se.Requested)
	require.Equal(t, int64(1), se.Available)
}

func TestVerifyShippingThreshold(t *testing.T) {
	svc, db := newTestService(t)
	svc.Shipping = ShippingConfig{FreeThresholdCents: 10000, FlatFeeCents: 500}
	require.NoError(t, db.Create(&models.Product{Slug: "cheap", Name: "Cheap", PriceCents: 9999, Stock: 10, Status: models.ProductPublished}).Error)
	require.NoError(t, db.Create(&models.Product{Slug: "exact", Name: "Exact", PriceCents: 10000, Stock: 10, Status: models.ProductPublished}).Error)

	under, err := svc.Verify(context.Background(), []CartLine{{ID: "cheap", Quantity: 1}})
	require.NoError(t, err)
	require.Equal(t, int64(9999), under.SubtotalCents)
	require.Equal(t, int64(500), under.ShippingFeeCents)
	require.Equal(t, int64(10499), under.TotalCents)

	at, err := svc.Verify(context.Background(), []CartLine{{ID: "exact", Quantity: 1}})
	require.NoError(t, err)
	require.Equal(t, int64(0), at.ShippingFeeCents)
	require.Equal(t, int64(10000), at.TotalCents)
}

func TestVerifyCopiesAuthoritativePrice(t *testing.T) {
	svc, db := newTestService(t)
	p := models.Product{Slug: "bal-d-afrique", Name: "Bal d'Afrique", ImageURL: "https://img/bal.jpg", PriceCents: 19500, Stock: 10, Status: models.ProductPublished}
	require.NoError(t, db.Create(&p).Error)

	res, err := svc.Verify(context.Background(), []CartLine{{ID: "bal-d-afrique", Quantity: 1}})
	require.NoError(t, err)
	require.Len(t, res.Lines, 1)
	require.Equal(t, int64(19500), res.Lines[0].UnitPriceCents)
	require.Equal(t, "Bal d'Afrique", res.Lines[0].Name)
	require.Equal(t, "https://img/bal.jpg", res.Lines[0].ImageURL)
	require.Equal(t, int64(19500), res.SubtotalCents)
	require.Equal(t, int64(500), res.ShippingFeeCents)
	require.Equal(t, int64(20000), res.TotalCents)
}
