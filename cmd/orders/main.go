package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/shopcore/cart-service/internal/config"
	"github.com/shopcore/cart-service/internal/logging"
	"github.com/shopcore/cart-service/internal/repo"
	"github.com/shopcore/cart-service/internal/subscriber"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel).With("service", "orders-subscriber")

	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("missing required env KAFKA_BROKERS")
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := config.InitDB(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	groupID := config.EnvDefault("ORDERS_GROUP_ID", "orders-subscriber")
	sub := subscriber.NewOrdersSubscriber(cfg.KafkaBrokers, groupID, &repo.GormRepo{DB: db}, logger)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("orders subscriber started", "group_id", groupID)
	runErr := sub.Run(runCtx)
	if runErr != nil {
		logger.Error("subscriber stopped with error", "error", runErr)
	}

	if err := sub.Close(); err != nil {
		logger.Error("reader close", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info("orders subscriber stopped")
	if runErr != nil {
		// non-zero exit so the supervisor restarts the group from the last
		// committed offset
		os.Exit(1)
	}
}
