package channels

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/queue"
)

type emailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// EmailChannel handles email reminders using SendGrid
type EmailChannel struct {
	client    emailSender
	config    config.SendGridConfig
	recipient string
	logger    *zap.Logger
}

// NewEmailChannel creates a new email channel delivering to recipient
func NewEmailChannel(cfg config.SendGridConfig, recipient string, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		config:    cfg,
		recipient: recipient,
		logger:    logger,
	}
}

func (e *EmailChannel) buildMessage(msg queue.ReminderMessage) *mail.SGMailV3 {
	from := mail.NewEmail("Plant Care", e.config.FromEmail)
	to := mail.NewEmail("", e.recipient)

	plain := msg.Body
	html := fmt.Sprintf("<p>%s</p>", msg.Body)
	message := mail.NewSingleEmail(from, msg.Title, to, plain, html)

	// Tracking headers
	message.SetHeader("X-Reminder-ID", msg.ID)
	message.SetHeader("X-Plant-ID", msg.PlantID)
	return message
}

// Deliver sends a reminder email
func (e *EmailChannel) Deliver(ctx context.Context, msg queue.ReminderMessage) (*DeliveryReport, error) {
	e.logger.Debug("Sending email reminder", zap.String("reminder_id", msg.ID))

	response, err := e.client.Send(e.buildMessage(msg))
	if err != nil {
		return failedReport(e.GetChannelType(), msg, err), err
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		var messageID string
		if msgIDs, ok := response.Headers["X-Message-Id"]; ok && len(msgIDs) > 0 {
			messageID = msgIDs[0]
		}
		return sentReport(e.GetChannelType(), msg, messageID), nil
	}

	err = fmt.Errorf("sendgrid returned status %d: %s", response.StatusCode, response.Body)
	return failedReport(e.GetChannelType(), msg, err), err
}

// GetChannelType returns the channel type
func (e *EmailChannel) GetChannelType() string {
	return "email"
}
