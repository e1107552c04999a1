package channels

import (
	"context"
	"fmt"
	"os"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/queue"
)

type pushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushChannel handles push reminders using Firebase Cloud Messaging
type PushChannel struct {
	client pushSender
	token  string
	logger *zap.Logger
}

// NewPushChannel creates a new push channel delivering to the device token
func NewPushChannel(ctx context.Context, cfg config.FirebaseConfig, token string, logger *zap.Logger) (*PushChannel, error) {
	// Check if credentials file exists
	if _, err := os.Stat(cfg.CredentialsPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("firebase credentials file not found at %s", cfg.CredentialsPath)
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firebase messaging client: %w", err)
	}

	return &PushChannel{
		client: client,
		token:  token,
		logger: logger,
	}, nil
}

// buildMessage carries the reminder payload as data so that a tap can open
// the plant it refers to.
func (p *PushChannel) buildMessage(msg queue.ReminderMessage) *messaging.Message {
	return &messaging.Message{
		Token: p.token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: map[string]string{
			"reminderId":       msg.ID,
			"plantId":          msg.PlantID,
			"plantName":        msg.PlantName,
			"kind":             string(msg.Kind),
			"nextWateringDate": msg.NextWateringDate.Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: msg.Title,
						Body:  msg.Body,
					},
					Sound: "default",
				},
			},
		},
	}
}

// Deliver sends a push reminder
func (p *PushChannel) Deliver(ctx context.Context, msg queue.ReminderMessage) (*DeliveryReport, error) {
	p.logger.Debug("Sending push reminder", zap.String("reminder_id", msg.ID))

	response, err := p.client.Send(ctx, p.buildMessage(msg))
	if err != nil {
		return failedReport(p.GetChannelType(), msg, err), err
	}
	return sentReport(p.GetChannelType(), msg, response), nil
}

// GetChannelType returns the channel type
func (p *PushChannel) GetChannelType() string {
	return "push"
}
