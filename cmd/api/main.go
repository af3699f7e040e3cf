package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vdeck/vdeck-orders/internal/config"
	"github.com/vdeck/vdeck-orders/internal/httpx"
	kafkax "github.com/vdeck/vdeck-orders/internal/kafka"
	"github.com/vdeck/vdeck-orders/internal/orders"
	"github.com/vdeck/vdeck-orders/internal/postgres"
	"github.com/vdeck/vdeck-orders/internal/redisx"
	"github.com/vdeck/vdeck-orders/internal/uploads"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pPlaced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	pPlaced.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)
	pRejected := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockRejected, 1024)
	pRejected.Start(ctx)

	// Image / payment proof storage
	proofs, err := uploads.NewDiskStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		log.Fatalf("upload dir: %v", err)
	}

	// Core wiring
	stock := &postgres.StockStore{DB: db}
	rlog := &postgres.ReservationLog{DB: db}
	orderStore := &postgres.OrderStore{DB: db}
	coord := orders.NewCoordinator(stock, rlog)

	router := httpx.NewRouter()
	httpx.MountUploads(router, cfg.UploadDir)

	oh := &httpx.OrdersHandler{
		Placement:         orders.NewPlacementService(orderStore, coord),
		Cancel:            orders.NewCancellationService(orderStore, coord),
		Store:             orderStore,
		Proofs:            proofs,
		Redis:             rdb,
		ProducerPlaced:    pPlaced,
		ProducerCancelled: pCancelled,
		ProducerRejected:  pRejected,
		Service:           cfg.ServiceName,
	}
	oh.Register(router)

	ph := &httpx.ProductsHandler{
		Catalog: &postgres.Catalog{DB: db},
		Images:  proofs,
	}
	ph.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range []*kafkax.Producer{pPlaced, pCancelled, pRejected} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pPlaced, pCancelled, pRejected} {
		p.WaitClosed()
	}
}
