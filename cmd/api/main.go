package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-marketplace/internal/auth"
	"github.com/ariefcatur/go-marketplace/internal/cart"
	"github.com/ariefcatur/go-marketplace/internal/catalog"
	"github.com/ariefcatur/go-marketplace/internal/checkout"
	"github.com/ariefcatur/go-marketplace/internal/config"
	"github.com/ariefcatur/go-marketplace/internal/events"
	"github.com/ariefcatur/go-marketplace/internal/httpx"
	kafkax "github.com/ariefcatur/go-marketplace/internal/kafka"
	"github.com/ariefcatur/go-marketplace/internal/outbox"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
	"github.com/ariefcatur/go-marketplace/internal/purchases"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/sales"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}
	tx := postgres.TxRunner{Pool: db}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka: cart activity is fire-and-forget, purchase events go through the outbox
	activity := kafkax.NewProducer(cfg.KafkaBrokers, events.TopicCartActivity, 1024, logger.Named("activity"))
	activity.Start(ctx)

	// outbox rows carry their own topic
	outboxWriter := kafkax.NewWriter(cfg.KafkaBrokers, "")
	defer outboxWriter.Close()
	relay := outbox.NewRelay(&outbox.PGRepo{DB: db}, tx, outboxWriter, cfg.OutboxInterval, cfg.OutboxBatch, logger.Named("outbox"))
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	// Domain
	products := catalog.NewCached(&catalog.Repo{DB: db}, rdb, cfg.CatalogCacheTTL, logger.Named("catalog"))
	carts := cart.NewStore(&cart.PGRepo{DB: db}, products,
		&cart.KafkaActivity{Producer: activity, Service: cfg.ServiceName}, logger.Named("cart"))
	ledger := purchases.NewLedger(&purchases.PGRepo{DB: db}, rdb, cfg.PurchasesCacheTTL, logger.Named("purchases"))
	orchestrator := checkout.NewService(checkout.Deps{
		Carts:   carts,
		Catalog: &catalog.Repo{DB: db}, // current prices, read inside the checkout tx
		Ledger:  ledger,
		Outbox:  &outbox.PGRepo{DB: db},
		Tx:      tx,
		Redis:   rdb,
		Service: cfg.ServiceName,
		Log:     logger.Named("checkout"),
	})
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	// HTTP
	router := httpx.NewRouter(logger.Named("http"), cfg.RequestTimeout)
	(&httpx.CartHandler{
		Carts:     carts,
		Catalog:   products,
		Checkout:  orchestrator,
		Purchases: ledger,
		Log:       logger.Named("http"),
	}).Register(router, httpx.RequireUser(tokens, logger.Named("auth")))
	(&httpx.SalesHandler{
		Sales:   &sales.Projector{Redis: rdb},
		Catalog: products,
		Log:     logger.Named("http"),
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	// graceful shutdown
	go func() {
		logger.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	activity.Close() // close inbox, flush and close writer
	cancel()         // stop relay and producer loop
	activity.WaitClosed()
	<-relayDone
}
