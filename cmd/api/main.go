package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/satriap/erp-inventory/internal/config"
	"github.com/satriap/erp-inventory/internal/httpx"
	"github.com/satriap/erp-inventory/internal/inventory"
	kafkax "github.com/satriap/erp-inventory/internal/kafka"
	"github.com/satriap/erp-inventory/internal/postgres"
	"github.com/satriap/erp-inventory/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("db migrate", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: order lifecycle + movement ledger stream
	pOrders := kafkax.NewProducer(cfg.KafkaBrokers, inventory.TopicOrderEvents, 1024, log)
	pOrders.Start(ctx)
	pMovements := kafkax.NewProducer(cfg.KafkaBrokers, inventory.TopicStockMovements, 1024, log)
	pMovements.Start(ctx)

	// Engine & handler
	engine := &inventory.Repo{DB: db}
	router := httpx.NewRouter()
	ih := &httpx.InventoryHandler{
		Engine:            engine,
		OrderEvents:       pOrders,
		MovementEvents:    pMovements,
		Redis:             rdb,
		Log:               log,
		Service:           cfg.ServiceName,
		LowStockThreshold: cfg.LowStockThreshold,
		RetryAttempts:     cfg.RetryAttempts,
	}
	ih.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	pOrders.Close() // stop intake -> flush & close writer
	pMovements.Close()
	cancel()
	pOrders.WaitClosed()
	pMovements.WaitClosed()
}
