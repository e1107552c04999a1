package channels

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alexnthnz/plant-care/internal/monitoring"
	"github.com/alexnthnz/plant-care/internal/queue"
)

// DeliveryStatus represents the outcome of handing a reminder to a provider
type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

// DeliveryReport describes one delivery attempt on one channel
type DeliveryReport struct {
	ReminderID   string         `json:"reminder_id"`
	Channel      string         `json:"channel"`
	ExternalID   string         `json:"external_id,omitempty"`
	Status       DeliveryStatus `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	AttemptedAt  time.Time      `json:"attempted_at"`
}

func failedReport(channel string, msg queue.ReminderMessage, err error) *DeliveryReport {
	return &DeliveryReport{
		ReminderID:   msg.ID,
		Channel:      channel,
		Status:       StatusFailed,
		ErrorMessage: err.Error(),
		AttemptedAt:  time.Now(),
	}
}

func sentReport(channel string, msg queue.ReminderMessage, externalID string) *DeliveryReport {
	return &DeliveryReport{
		ReminderID:  msg.ID,
		Channel:     channel,
		ExternalID:  externalID,
		Status:      StatusSent,
		AttemptedAt: time.Now(),
	}
}

// Channel represents a reminder delivery channel
type Channel interface {
	Deliver(ctx context.Context, msg queue.ReminderMessage) (*DeliveryReport, error)
	GetChannelType() string
}

// ChannelManager fans a reminder out to every registered channel
type ChannelManager struct {
	channels map[string]Channel
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewChannelManager creates a new channel manager
func NewChannelManager(metrics *monitoring.Metrics, logger *zap.Logger) *ChannelManager {
	return &ChannelManager{
		channels: make(map[string]Channel),
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterChannel registers a channel with the manager
func (cm *ChannelManager) RegisterChannel(channel Channel) {
	cm.channels[channel.GetChannelType()] = channel
}

// GetChannel retrieves a channel by type
func (cm *ChannelManager) GetChannel(channelType string) (Channel, bool) {
	channel, exists := cm.channels[channelType]
	return channel, exists
}

// ChannelTypes returns the registered channel types in sorted order.
func (cm *ChannelManager) ChannelTypes() []string {
	types := make([]string, 0, len(cm.channels))
	for t := range cm.channels {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Deliver sends msg through every registered channel concurrently and returns
// one report per channel, ordered by channel type. A failure on one channel
// does not stop the others.
func (cm *ChannelManager) Deliver(ctx context.Context, msg queue.ReminderMessage) []DeliveryReport {
	types := cm.ChannelTypes()
	reports := make([]DeliveryReport, len(types))

	var g errgroup.Group
	for i, t := range types {
		channel := cm.channels[t]
		g.Go(func() error {
			start := time.Now()
			report, err := channel.Deliver(ctx, msg)
			cm.metrics.RecordProcessingDuration(channel.GetChannelType(), "deliver", time.Since(start).Seconds())

			if report == nil {
				if err == nil {
					report = sentReport(channel.GetChannelType(), msg, "")
				} else {
					report = failedReport(channel.GetChannelType(), msg, err)
				}
			}
			reports[i] = *report

			if err != nil {
				cm.metrics.RecordDeliveryFailed(channel.GetChannelType(), "provider_error")
				cm.logger.Error("Failed to deliver reminder",
					zap.Error(err),
					zap.String("channel", channel.GetChannelType()),
					zap.String("reminder_id", msg.ID),
				)
				return nil
			}
			cm.metrics.RecordReminderDelivered(channel.GetChannelType())
			cm.logger.Info("Delivered reminder",
				zap.String("channel", channel.GetChannelType()),
				zap.String("reminder_id", msg.ID),
				zap.String("external_id", report.ExternalID),
			)
			return nil
		})
	}
	_ = g.Wait()

	return reports
}
