package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/database"
	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/queue"
	"github.com/alexnthnz/plant-care/internal/reminder"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Reminder Dispatcher")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Storage.Platform != "redis" {
		logger.Fatal("Reminder dispatcher requires the redis reminder platform",
			zap.String("platform", cfg.Storage.Platform))
	}

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	// Connect to Redis
	redis, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()
	platform := database.NewRedisPlatform(redis.Client, cfg.Redis.KeyPrefix)
	logger.Info("Redis connected")

	// Initialize Kafka producer
	producer := queue.NewProducer(cfg.Kafka, logger)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.Topic))

	dispatcher := reminder.NewDispatcher(
		platform,
		producer,
		cfg.Dispatcher.PollInterval,
		cfg.Dispatcher.BatchSize,
		metrics,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Polling for due reminders", zap.Duration("interval", cfg.Dispatcher.PollInterval))
		return dispatcher.Run(ctx)
	})

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}
		g.Go(func() error {
			logger.Info("Starting metrics server", zap.Int("port", cfg.Metrics.Port))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return metricsServer.Shutdown(shutdownCtx)
		})
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("Shutting down reminder dispatcher...")
	case <-ctx.Done():
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Reminder dispatcher stopped with error", zap.Error(err))
	}
	logger.Info("Reminder dispatcher exited")
}
