package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/handlers"
	"github.com/essence-atelier/perfume_shop/internal/service/token"
)

type Deps struct {
	DB                *gorm.DB
	ProductHandler    *handlers.ProductHandler
	CategoryHandler   *handlers.CategoryHandler
	TagHandler        *handlers.TagHandler
	CheckoutHandler   *handlers.CheckoutHandler
	WebhookHandler    *handlers.WebhookHandler
	OrderHandler      *handlers.OrderHandler
	CustomerHandler   *handlers.CustomerHandler
	StockAlertHandler *handlers.StockAlertHandler
	AuthHandler       *handlers.AuthHandler
	SearchHandler     *handlers.SearchHandler
	ServiceHandler    *token.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.LogOut)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)

	v1.GET("/categories", d.CategoryHandler.GetCategories)
	v1.GET("/tags", d.TagHandler.GetTags)
	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	v1.POST("/checkout/payment-intent", d.CheckoutHandler.CreatePaymentIntent)

	// The webhook authenticates with the processor signature, not a session.
	v1.POST("/webhooks/payment", d.WebhookHandler.HandlePaymentWebhook)

	admin := v1.Group("/admin", d.ServiceHandler.AutoRefreshMiddlewareAdmin)

	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.PUT("/products/:id/stock", d.ProductHandler.UpdateStock)
	admin.PUT("/products/:id/tags", d.TagHandler.AssignTags)
	admin.POST("/products/:id/image", d.ProductHandler.UploadImage)
	admin.DELETE("/products/:id/image", d.ProductHandler.DeleteImage)

	admin.POST("/categories", d.CategoryHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CategoryHandler.PatchCategory)
	admin.DELETE("/categories/:id", d.CategoryHandler.DeleteCategory)

	admin.POST("/tags", d.TagHandler.CreateTag)
	admin.DELETE("/tags/:id", d.TagHandler.DeleteTag)

	admin.GET("/orders", d.OrderHandler.GetOrders)
	admin.GET("/orders/:id", d.OrderHandler.GetOrder)
	admin.PUT("/orders/:id/status", d.OrderHandler.UpdateStatus)
	admin.PUT("/orders/:id/shipping", d.OrderHandler.UpdateShipping)

	admin.GET("/customers", d.CustomerHandler.GetCustomers)
	admin.GET("/customers/:id", d.CustomerHandler.GetCustomer)

	admin.GET("/stock-alerts", d.StockAlertHandler.GetAlerts)
	admin.PUT("/stock-alerts/:id/resolve", d.StockAlertHandler.ResolveAlert)
}
