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

	"inventory-service/config"
	"inventory-service/internal/api"
	"inventory-service/internal/broker"
	"inventory-service/internal/redisclient"
	"inventory-service/internal/service"
	"inventory-service/internal/store"
	"inventory-service/internal/util"
	"inventory-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting inventory service", zap.String("store", cfg.Store.Driver))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("inventory-service", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	// The connection is opened by the first request that needs it.
	backend := store.NewLazy(openStore(cfg))
	defer logClose(logger, "document store", backend.Close)

	var events service.EventPublisher
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var alertWorker *worker.StockAlertWorker
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicRecords)
		defer logClose(logger, "Kafka producer", producer.Close)
		events = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicRecords, cfg.Kafka.ConsumerGroup)
		alertWorker = worker.NewStockAlertWorker(consumer, cfg.Business.LowStockThreshold)
		go func() {
			if err := alertWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Stock alert worker error", zap.Error(err))
			}
		}()
	}

	products := service.NewResourceService(service.Products, backend, events)
	items := service.NewResourceService(service.Items, backend, events)
	categories := service.NewResourceService(service.Categories, backend, events)
	suppliers := service.NewResourceService(service.Suppliers, backend, events)
	orders := service.NewResourceService(service.Orders, backend, events)
	inventory := service.NewInventoryService(products, items, cfg.Business.LowStockThreshold)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(backend, inventory, []api.Resource{
		api.Bind(products),
		api.Bind(items),
		api.Bind(categories),
		api.Bind(suppliers),
		api.Bind(orders),
	}, cfg.Server.CORSOrigins)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if alertWorker != nil {
		logClose(logger, "stock alert worker", alertWorker.Stop)
	}

	logger.Info("Server exited")
}

// openStore returns the opener for the configured backend. Unique indexes
// are created right after the connection is established.
func openStore(cfg *config.Config) store.Opener {
	return func(ctx context.Context) (store.Backend, error) {
		ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Store.ConnectTimeoutSeconds)*time.Second)
		defer cancel()

		var (
			backend store.Backend
			err     error
		)
		switch cfg.Store.Driver {
		case "postgres":
			backend, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		case "mongo":
			backend, err = store.NewMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase)
		case "redis":
			backend, err = redisclient.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		case "memory":
			backend = store.NewMemory()
		default:
			return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
		}
		if err != nil {
			return nil, err
		}

		if err := service.EnsureIndexes(ctx, backend); err != nil {
			logClose(util.GetLogger(), "document store", backend.Close)
			return nil, err
		}
		return backend, nil
	}
}

// logClose runs a close or stop function and logs its error
func logClose(logger *zap.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error("Error closing "+what, zap.Error(err))
	}
}
