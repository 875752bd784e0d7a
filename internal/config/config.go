package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/essence-atelier/perfume_shop/internal/models"
)

type Config struct {
	HTTP_ADDR   string
	SITE_URL    string
	LOG_LEVEL   string
	DB_HOST     string
	DB_PORT     string
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string

	JWT_SECRET     string
	REFRESH_SECRET string

	STRIPE_SECRET_KEY     string
	STRIPE_WEBHOOK_SECRET string
	CURRENCY              string

	SHIPPING_FREE_THRESHOLD_CENTS int64
	SHIPPING_FLAT_FEE_CENTS       int64

	ES_URL      string
	ES_USER     string
	ES_PASSWORD string

	KAFKA_ADDRESS string

	S3_BUCKET          string
	S3_REGION          string
	S3_ENDPOINT        string
	S3_PUBLIC_BASE_URL string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		HTTP_ADDR:   getDefault("HTTP_ADDR", ":8080"),
		SITE_URL:    os.Getenv("SITE_URL"),
		LOG_LEVEL:   getDefault("LOG_LEVEL", "info"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_USER:     os.Getenv("DB_USER"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_NAME:     os.Getenv("DB_NAME"),

		JWT_SECRET:     os.Getenv("JWT_SECRET"),
		REFRESH_SECRET: os.Getenv("REFRESH_SECRET"),

		STRIPE_SECRET_KEY:     os.Getenv("STRIPE_SECRET_KEY"),
		STRIPE_WEBHOOK_SECRET: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CURRENCY:              getDefault("CURRENCY", "eur"),

		SHIPPING_FREE_THRESHOLD_CENTS: getInt64Default("SHIPPING_FREE_THRESHOLD_CENTS", 10000),
		SHIPPING_FLAT_FEE_CENTS:       getInt64Default("SHIPPING_FLAT_FEE_CENTS", 500),

		ES_URL:      os.Getenv("ES_URL"),
		ES_USER:     os.Getenv("ES_USER"),
		ES_PASSWORD: os.Getenv("ES_PASSWORD"),

		KAFKA_ADDRESS: os.Getenv("KAFKA_ADDRESS"),

		S3_BUCKET:          os.Getenv("S3_BUCKET"),
		S3_REGION:          os.Getenv("S3_REGION"),
		S3_ENDPOINT:        os.Getenv("S3_ENDPOINT"),
		S3_PUBLIC_BASE_URL: os.Getenv("S3_PUBLIC_BASE_URL"),
	}

	return config, nil
}

func getDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getInt64Default(name string, def int64) int64 {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Printf("Notice: invalid %s=%q, using default %d", name, raw, def)
		return def
	}
	return v
}

// RequireSecrets aborts startup when a credential without a sane default is
// missing. Payment secrets are checked here and not per request.
func (c *Config) RequireSecrets() {
	MustNonEmpty(c.JWT_SECRET, "JWT_SECRET")
	MustNonEmpty(c.REFRESH_SECRET, "REFRESH_SECRET")
	MustNonEmpty(c.STRIPE_SECRET_KEY, "STRIPE_SECRET_KEY")
	MustNonEmpty(c.STRIPE_WEBHOOK_SECRET, "STRIPE_WEBHOOK_SECRET")
}

func InitDB(c *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("db connect failed: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("db migration failed: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Product{},
		&models.Category{},
		&models.Tag{},
		&models.User{},
		&models.RefreshToken{},
		&models.Order{},
		&models.OrderItem{},
		&models.StockAlert{},
		&models.WebhookEvent{},
	)
}
