package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alexnthnz/plant-care/api/rest"
	"github.com/alexnthnz/plant-care/internal/collection"
	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/database"
	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/reminder"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Plant Care API Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	loc, err := cfg.Reminders.Location()
	if err != nil {
		logger.Fatal("Invalid reminders timezone", zap.Error(err))
	}
	defaults, err := cfg.Reminders.DefaultPreferences()
	if err != nil {
		logger.Fatal("Invalid default reminder preferences", zap.Error(err))
	}
	now := func() time.Time { return time.Now().In(loc) }

	// Initialize metrics
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	// Collection storage
	var repo collection.Repository
	switch cfg.Storage.Driver {
	case "postgres":
		postgres, err := database.NewPostgresDB(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer postgres.Close()

		if err := postgres.InitSchema(); err != nil {
			logger.Fatal("Failed to initialize database schema", zap.Error(err))
		}
		repo = database.NewStateRepository(postgres.DB, cfg.Storage.CollectionKey)
		logger.Info("Database connected and schema initialized")
	default:
		repo = collection.NewMemoryRepository()
		logger.Warn("Using in-memory collection storage; plants are lost on restart")
	}

	// Notification platform
	var platform reminder.Platform
	switch cfg.Storage.Platform {
	case "redis":
		redis, err := database.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		platform = database.NewRedisPlatform(redis.Client, cfg.Redis.KeyPrefix)
		logger.Info("Redis connected")
	default:
		platform = reminder.NewMemoryPlatform()
		logger.Warn("Using in-memory reminder platform; reminders are never delivered")
	}

	gateway := reminder.NewGateway(platform, now, metrics, logger)
	executor := collection.NewAsyncExecutor(logger)
	store := collection.NewStore(collection.StoreConfig{
		Repository:         repo,
		Planner:            reminder.NewPlanner(gateway, now, logger),
		Gateway:            gateway,
		Executor:           executor,
		DefaultPreferences: defaults,
		Now:                now,
		Metrics:            metrics,
		Logger:             logger,
	})

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.Load(loadCtx); err != nil {
		cancelLoad()
		logger.Fatal("Failed to restore plant collection", zap.Error(err))
	}
	cancelLoad()

	// Initialize REST API handler
	handler := rest.NewHandler(store, metrics, logger)
	router := handler.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// gRPC health service
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("plantcare.api", healthpb.HealthCheckResponse_SERVING)

	grpcAddr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.GRPCPort)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logger.Fatal("Failed to listen for gRPC", zap.Error(err), zap.String("addr", grpcAddr))
	}
	go func() {
		logger.Info("Starting gRPC health server", zap.String("addr", grpcAddr))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC server error", zap.Error(err))
		}
	}()

	// Start metrics server if enabled
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: mux,
		}

		go func() {
			logger.Info("Starting metrics server", zap.Int("port", cfg.Metrics.Port))
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}
	grpcServer.GracefulStop()

	// Let queued reminder work reach the platform before connections close
	executor.Wait()

	logger.Info("Server exited")
}
