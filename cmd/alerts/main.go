package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/satriap/erp-inventory/internal/config"
	"github.com/satriap/erp-inventory/internal/inventory"
	kafkax "github.com/satriap/erp-inventory/internal/kafka"
	"github.com/satriap/erp-inventory/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &inventory.Alerts{
		Redis:     rdb,
		Log:       log,
		Threshold: cfg.LowStockThreshold,
	}

	group := getenv("ALERTS_GROUP", "alerts-svc")
	workers := mustAtoi(os.Getenv("ALERTS_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, inventory.TopicStockMovements, workers, log)

	go func() {
		log.Info("alerts consumer started",
			"group", group, "topic", inventory.TopicStockMovements, "workers", workers)
		if err := cons.Start(ctx, svc.HandleMovement); err != nil {
			log.Error("consumer exit", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
