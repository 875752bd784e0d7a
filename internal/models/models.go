package models

import (
	"time"
)

type ProductStatus string

const (
	ProductDraft     ProductStatus = "draft"
	ProductPublished ProductStatus = "published"
	ProductArchived  ProductStatus = "archived"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductPublished, ProductArchived:
		return true
	}
	return false
}

type Product struct {
	ID                uint          `gorm:"primaryKey;autoIncrement"     json:"id"`
	Slug              string        `gorm:"uniqueIndex;not null"         json:"slug"`
	Name              string        `gorm:"not null"                     json:"name"`
	Brand             string        `json:"brand"`
	Description       string        `json:"description"`
	PriceCents        int64         `gorm:"not null"                     json:"price_cents"`
	Stock             int64         `gorm:"not null;default:0"           json:"stock"`
	Status            ProductStatus `gorm:"not null;default:draft"       json:"status"`
	ImageURL          string        `json:"image_url"`
	LowStockThreshold int64         `gorm:"default:3"                    json:"low_stock_threshold"`
	CategoryID        *uint         `gorm:"index"                        json:"category_id"`
	Tags              []Tag         `gorm:"many2many:product_tags"       json:"tags,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

type Category struct {
	ID          uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug        string `gorm:"uniqueIndex;not null"     json:"slug"`
	Name        string `gorm:"not null"                 json:"name"`
	Description string `json:"description"`
}

type Tag struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug string `gorm:"uniqueIndex;not null"     json:"slug"`
	Name string `gorm:"not null"                 json:"name"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// Order is the durable record of a captured payment. Amount and items are
// written once at materialization time and never change afterwards; only the
// status and shipping fields may be updated by the back office.
type Order struct {
	ID               uint        `gorm:"primaryKey;autoIncrement"    json:"id"`
	UserID           *uint       `gorm:"index"                       json:"user_id"`
	PaymentIntentID  string      `gorm:"uniqueIndex;not null"        json:"payment_intent_id"`
	AmountCents      int64       `gorm:"not null"                    json:"amount_cents"`
	SubtotalCents    int64       `gorm:"not null"                    json:"subtotal_cents"`
	ShippingFeeCents int64       `gorm:"not null"                    json:"shipping_fee_cents"`
	Currency         string      `gorm:"not null;default:eur"        json:"currency"`
	Status           OrderStatus `gorm:"not null;default:pending"    json:"status"`
	CustomerName     string      `json:"customer_name"`
	CustomerEmail    string      `json:"customer_email"`
	ShippingLine1    string      `json:"shipping_line1"`
	ShippingLine2    string      `json:"shipping_line2"`
	ShippingCity     string      `json:"shipping_city"`
	ShippingZip      string      `json:"shipping_zip"`
	ShippingCountry  string      `json:"shipping_country"`
	Items            []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID             uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        uint   `gorm:"index;not null"           json:"order_id"`
	ProductID      uint   `gorm:"index;not null"           json:"product_id"`
	NameSnapshot   string `gorm:"not null"                 json:"name"`
	SlugSnapshot   string `json:"slug"`
	ImageSnapshot  string `json:"image"`
	Quantity       int64  `gorm:"not null"                 json:"quantity"`
	UnitPriceCents int64  `gorm:"not null"                 json:"unit_price_cents"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"index"                    json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

// StockAlert is raised when a materialized order drags a product's stock to or
// below its low stock threshold. It stays open until an admin resolves it.
type StockAlert struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID uint      `gorm:"index;not null"           json:"product_id"`
	Stock     int64     `gorm:"not null"                 json:"stock"`
	Threshold int64     `gorm:"not null"                 json:"threshold"`
	Resolved  bool      `gorm:"default:false;index"      json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WebhookEvent keeps every payment webhook delivery with dedup metadata, so a
// redelivered event can be acknowledged without reprocessing and failures stay
// auditable.
type WebhookEvent struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderEventID string     `gorm:"uniqueIndex;not null"     json:"provider_event_id"`
	EventType       string     `gorm:"not null;index"           json:"event_type"`
	PaymentIntentID string     `gorm:"index"                    json:"payment_intent_id"`
	PayloadJSON     string     `json:"payload_json"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessingError string     `json:"processing_error"`
	CreatedAt       time.Time  `json:"created_at"`
}
