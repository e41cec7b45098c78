package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-service/config"
	"auction-service/internal/api"
	"auction-service/internal/broker"
	"auction-service/internal/redisclient"
	"auction-service/internal/service"
	"auction-service/internal/store"
	"auction-service/internal/util"
	"auction-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting auction service")

	tp, err := util.InitTracer("auction-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	if err := db.Migrate(context.Background()); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// The floor cache and bid dedupe are advisory; an unreachable Redis
	// degrades to running without them rather than refusing to start.
	var floorCache service.FloorCache
	var bidDeduper worker.BidDeduper
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without floor cache and bid dedupe", zap.Error(err))
	} else {
		defer redisClient.Close()
		floorCache = redisClient
		bidDeduper = redisClient
		log.Println("Redis connected")
	}

	syncProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSync)
	defer syncProducer.Close()
	storageProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStorage)
	defer storageProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(syncProducer, storageProducer)

	bidService := service.NewBidService(db, floorCache, cfg.Business.BidApplyAttempts)
	auctionService := service.NewAuctionService(db, db, bidService, floorCache)
	catalogService := service.NewCatalogService(db, db, eventPublisher, floorCache)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	bidConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBids, cfg.Kafka.ConsumerGroup)
	bidWorker := worker.NewBidWorker(
		bidConsumer,
		bidService,
		bidDeduper,
		cfg.Business.BidConnectAttempts,
		time.Duration(cfg.Business.BidConnectDelaySeconds)*time.Second,
	)
	go func() {
		if err := bidWorker.Start(workerCtx); err != nil {
			log.Printf("Bid worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(auctionService, catalogService)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	bidWorker.Stop()

	log.Println("Server exited")
}
