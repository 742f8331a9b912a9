package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/catalog-reconciler/internal/catalog"
	"github.com/kursadbilgin/catalog-reconciler/internal/config"
	"github.com/kursadbilgin/catalog-reconciler/internal/handler"
	"github.com/kursadbilgin/catalog-reconciler/internal/infra/postgresql"
	"github.com/kursadbilgin/catalog-reconciler/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/catalog-reconciler/internal/infra/redis"
	"github.com/kursadbilgin/catalog-reconciler/internal/ingest"
	"github.com/kursadbilgin/catalog-reconciler/internal/observability"
	"github.com/kursadbilgin/catalog-reconciler/internal/queue"
	"github.com/kursadbilgin/catalog-reconciler/internal/repository"
	"github.com/kursadbilgin/catalog-reconciler/internal/service"
	"github.com/kursadbilgin/catalog-reconciler/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.CatalogRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	catalogClient, err := catalog.NewHTTPClient(cfg.CatalogAPIURL, limiter, cfg.CatalogChunkSize)
	if err != nil {
		logger.Fatal("catalog client initialization failed", zap.Error(err))
	}

	batches := repository.NewGormBatchRepo(db)

	reconciler, err := service.NewReconcileService(
		batches,
		ingest.NewCSVRowParser(),
		catalogClient,
		cfg.CatalogChunkSize,
		cfg.ChunkConcurrency,
		logger,
	)
	if err != nil {
		logger.Fatal("reconcile service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	reconciler.SetMetrics(metrics)

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()

	if cfg.ChunkDispatchEnabled {
		publisher := queue.NewRabbitMQPublisher(mq)
		reconciler.EnableChunkDispatch(publisher)

		consumer := queue.NewRabbitMQConsumer(mq, cfg.ChunkConcurrency, logger)
		worker, err := service.NewChunkWorker(consumer, batches, reconciler, cfg.ChunkConcurrency, logger)
		if err != nil {
			logger.Fatal("chunk worker initialization failed", zap.Error(err))
		}

		go func() {
			if err := worker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
				logger.Error("chunk worker stopped", zap.Error(err))
			}
		}()
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterBatchRoutes(app, reconciler); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	go func() {
		logger.Info("catalog-reconciler api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopWorker()
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
