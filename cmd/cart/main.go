package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/shopcore/cart-service/internal/config"
	"github.com/shopcore/cart-service/internal/httpserver"
	"github.com/shopcore/cart-service/internal/logging"
	"github.com/shopcore/cart-service/internal/mykafka"
	"github.com/shopcore/cart-service/internal/productclient"
	"github.com/shopcore/cart-service/internal/repo"
	"github.com/shopcore/cart-service/internal/service"
)

func main() {
	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_HS256_SECRET")
	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)

	e := echo.New()
	e.HideBanner = true

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(logging.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	producer := mykafka.NewProducer(cfg.KafkaBrokers)

	cartRepo := &repo.GormRepo{DB: db}

	cartService := &service.CartService{
		Repo:      cartRepo,
		Publisher: producer,
		Payments:  service.AlwaysApprove{},
	}
	if cfg.CatalogURL != "" {
		cartService.Products = productclient.NewClient(cfg.CatalogURL)
	}

	cartHandler := &httpserver.CartHTTP{Svc: cartService}

	httpserver.Register(e, &httpserver.Deps{
		CartHandler: cartHandler,
		JWTSecret:   cfg.JWTSecret,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.ServerPort)
		logger.Info("starting cart service", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo shutdown", "error", err)
	}

	cartService.Drain()

	if err := producer.Close(); err != nil {
		logger.Error("producer close", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("server stopped")
}
