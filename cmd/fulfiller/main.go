package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vdeck/vdeck-orders/internal/config"
	"github.com/vdeck/vdeck-orders/internal/fulfill"
	kafkax "github.com/vdeck/vdeck-orders/internal/kafka"
	"github.com/vdeck/vdeck-orders/internal/orders"
	"github.com/vdeck/vdeck-orders/internal/postgres"
	"github.com/vdeck/vdeck-orders/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Producer for order.fulfilled
	pDone := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderFulfilled, 1024)
	pDone.Start(ctx)

	svc := &fulfill.Service{
		Orders:      &postgres.OrderStore{DB: db},
		Redis:       rdb,
		Producer:    pDone,
		ServiceName: cfg.ServiceName + "-fulfiller",
	}

	group := getenv("FULFILLER_GROUP", "fulfiller-svc")
	workers := mustAtoi(os.Getenv("FULFILLER_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderPlaced, workers)

	go func() {
		log.Printf("fulfiller consumer started: group=%s topic=%s workers=%d", group, orders.TopicOrderPlaced, workers)
		if err := cons.Start(ctx, svc.HandleOrderPlaced); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pDone.Close()
	pDone.WaitClosed()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
