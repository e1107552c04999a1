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

	"github.com/alexnthnz/plant-care/internal/channels"
	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/queue"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Delivery Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := channels.NewChannelManager(metrics, logger)
	registerChannels(ctx, cfg, manager, logger)
	if len(manager.ChannelTypes()) == 0 {
		logger.Fatal("No delivery channels configured")
	}
	logger.Info("Delivery channels initialized", zap.Strings("channels", manager.ChannelTypes()))

	// Initialize Kafka consumer
	consumer := queue.NewConsumer(cfg.Kafka, "delivery-service", logger)
	defer consumer.Close()
	logger.Info("Kafka consumer initialized", zap.String("topic", cfg.Kafka.Topic))

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("Starting to consume reminders")
		err := consumer.ConsumeReminders(ctx, func(ctx context.Context, msg queue.ReminderMessage) error {
			return processReminder(ctx, msg, manager, logger)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Consumer error", zap.Error(err))
		}
	}()

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

	logger.Info("Shutting down delivery service...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Consumer did not stop in time")
	}
	logger.Info("Delivery service exited")
}

// registerChannels enables each channel that has both provider credentials
// and a destination configured.
func registerChannels(ctx context.Context, cfg *config.Config, manager *channels.ChannelManager, logger *zap.Logger) {
	if cfg.Channels.Firebase.CredentialsPath != "" && cfg.Delivery.PushToken != "" {
		push, err := channels.NewPushChannel(ctx, cfg.Channels.Firebase, cfg.Delivery.PushToken, logger)
		if err != nil {
			logger.Error("Push channel disabled", zap.Error(err))
		} else {
			manager.RegisterChannel(push)
		}
	}

	if cfg.Channels.SendGrid.APIKey != "" && cfg.Delivery.Email != "" {
		manager.RegisterChannel(channels.NewEmailChannel(cfg.Channels.SendGrid, cfg.Delivery.Email, logger))
	}

	if cfg.Channels.Twilio.AccountSID != "" && cfg.Delivery.Phone != "" {
		manager.RegisterChannel(channels.NewSMSChannel(cfg.Channels.Twilio, cfg.Delivery.Phone, logger))
	}
}

func processReminder(ctx context.Context, msg queue.ReminderMessage, manager *channels.ChannelManager, logger *zap.Logger) error {
	logger.Info("Processing reminder",
		zap.String("reminder_id", msg.ID),
		zap.String("plant_id", msg.PlantID),
		zap.String("kind", string(msg.Kind)),
	)

	reports := manager.Deliver(ctx, msg)
	for _, r := range reports {
		if r.Status == channels.StatusSent {
			return nil
		}
	}
	return fmt.Errorf("reminder %s was not delivered on any of %d channels", msg.ID, len(reports))
}
