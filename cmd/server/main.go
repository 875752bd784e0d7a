package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/essence-atelier/perfume_shop/internal/catalog"
	"github.com/essence-atelier/perfume_shop/internal/checkout"
	"github.com/essence-atelier/perfume_shop/internal/config"
	"github.com/essence-atelier/perfume_shop/internal/events"
	"github.com/essence-atelier/perfume_shop/internal/handlers"
	"github.com/essence-atelier/perfume_shop/internal/logging"
	"github.com/essence-atelier/perfume_shop/internal/mailer"
	"github.com/essence-atelier/perfume_shop/internal/orders"
	"github.com/essence-atelier/perfume_shop/internal/payment"
	"github.com/essence-atelier/perfume_shop/internal/search"
	"github.com/essence-atelier/perfume_shop/internal/service/token"
	"github.com/essence-atelier/perfume_shop/internal/storage"
	httpserver "github.com/essence-atelier/perfume_shop/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}
	cfg.RequireSecrets()

	log := logging.New(cfg.LOG_LEVEL)
	slog.SetDefault(log)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	jwtSecret := []byte(cfg.JWT_SECRET)
	refreshSecret := []byte(cfg.REFRESH_SECRET)

	var producer events.Publisher
	if cfg.KAFKA_ADDRESS != "" {
		producer = events.NewProducer([]string{cfg.KAFKA_ADDRESS})
	}

	var indexer search.Indexer = search.NopIndexer{}
	var searchHandler *handlers.SearchHandler
	if cfg.ES_URL != "" {
		esClient, err := search.NewClient(cfg)
		if err != nil {
			log.Error("elasticsearch init failed", "error", err)
			os.Exit(1)
		}
		indexer = &search.ESIndexer{ES: esClient, Index: search.ProductIndex, Logger: log}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: search.ProductIndex}
	}

	var uploader storage.Uploader
	if cfg.S3_BUCKET != "" {
		uploader, err = storage.NewS3Storage(context.Background(), cfg.S3_BUCKET, cfg.S3_REGION, cfg.S3_ENDPOINT, cfg.S3_PUBLIC_BASE_URL)
		if err != nil {
			log.Error("object storage init failed", "error", err)
			os.Exit(1)
		}
	}

	resolver := &catalog.Resolver{DB: db}
	shipping := checkout.ShippingConfig{
		FreeThresholdCents: cfg.SHIPPING_FREE_THRESHOLD_CENTS,
		FlatFeeCents:       cfg.SHIPPING_FLAT_FEE_CENTS,
	}
	tokens := &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}

	materializer := &orders.Materializer{
		DB:        db,
		Resolver:  resolver,
		Shipping:  shipping,
		Publisher: producer,
		Mailer:    &mailer.LogMailer{Logger: log},
		Logger:    log,
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(log))

	deps := httpserver.Deps{
		DB:             db,
		ProductHandler: &handlers.ProductHandler{DB: db, Producer: producer, Indexer: indexer, Uploader: uploader},
		CategoryHandler: &handlers.CategoryHandler{DB: db},
		TagHandler:      &handlers.TagHandler{DB: db},
		CheckoutHandler: &handlers.CheckoutHandler{
			Checkout: &checkout.Service{Resolver: resolver, Shipping: shipping},
			Issuer:   &payment.Issuer{Provider: payment.NewStripeProvider(cfg.STRIPE_SECRET_KEY), Currency: cfg.CURRENCY},
			Tokens:   tokens,
		},
		WebhookHandler:    &handlers.WebhookHandler{WebhookSecret: cfg.STRIPE_WEBHOOK_SECRET, Materializer: materializer},
		OrderHandler:      &handlers.OrderHandler{DB: db, Producer: producer},
		CustomerHandler:   &handlers.CustomerHandler{DB: db},
		StockAlertHandler: &handlers.StockAlertHandler{DB: db},
		AuthHandler:       &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: producer},
		SearchHandler:     searchHandler,
		ServiceHandler:    tokens,
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         cfg.HTTP_ADDR,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP_ADDR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("kafka close error", "error", err)
		}
	}

	log.Info("shutdown complete")
}
