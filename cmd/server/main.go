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

	"ops-engine/config"
	"ops-engine/internal/api"
	"ops-engine/internal/broker"
	"ops-engine/internal/redisclient"
	"ops-engine/internal/service"
	"ops-engine/internal/store"
	"ops-engine/internal/util"
	"ops-engine/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting ops engine")

	tp, err := util.InitTracer("ops-engine", cfg.Observ.JaegerEndpoint)
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

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	orderProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
	defer orderProducer.Close()
	inventoryProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory)
	defer inventoryProducer.Close()
	log.Println("Kafka producers initialized")

	eventPublisher := broker.NewEventPublisher(orderProducer, inventoryProducer)

	defaultTaxRate, err := decimal.NewFromString(cfg.Business.DefaultTaxRatePercent)
	if err != nil {
		log.Fatalf("Invalid DEFAULT_TAX_RATE_PERCENT %q: %v", cfg.Business.DefaultTaxRatePercent, err)
	}
	lockTTL := time.Duration(cfg.Business.EntityLockTTLSeconds) * time.Second

	inventoryService := service.NewInventoryService(db, redisClient, eventPublisher)
	orderService := service.NewOrderService(db, redisClient, eventPublisher, inventoryService, defaultTaxRate, lockTTL)
	taskService := service.NewTaskService(db)
	purchaseService := service.NewPurchaseService(db, inventoryService, eventPublisher, cfg.Business.DefaultReorderQuantity)
	invoiceService := service.NewInvoiceService(db)

	ctx := context.Background()
	if err := inventoryService.SyncStockCache(ctx); err != nil {
		log.Printf("Failed to sync stock levels to Redis: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	inventoryConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory, cfg.Kafka.ConsumerGroup)
	reorderWorker := worker.NewReorderWorker(inventoryConsumer, purchaseService)
	go func() {
		if err := reorderWorker.Start(workerCtx); err != nil {
			log.Printf("Reorder worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orderService, taskService, inventoryService, purchaseService, invoiceService)
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
	reorderWorker.Stop()

	log.Println("Server exited")
}
