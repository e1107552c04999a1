package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/queue"
)

// SMSChannel handles SMS reminders using Twilio
type SMSChannel struct {
	config    config.TwilioConfig
	recipient string
	client    *http.Client
	logger    *zap.Logger
}

// NewSMSChannel creates a new SMS channel delivering to recipient
func NewSMSChannel(cfg config.TwilioConfig, recipient string, logger *zap.Logger) *SMSChannel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com"
	}
	return &SMSChannel{
		config:    cfg,
		recipient: recipient,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// TwilioResponse represents the response from Twilio API
type TwilioResponse struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"code,omitempty"`
	ErrorMessage *string `json:"message,omitempty"`
}

// Deliver sends a reminder text
func (s *SMSChannel) Deliver(ctx context.Context, msg queue.ReminderMessage) (*DeliveryReport, error) {
	s.logger.Debug("Sending SMS reminder", zap.String("reminder_id", msg.ID))

	data := url.Values{}
	data.Set("To", s.recipient)
	data.Set("From", s.config.FromNumber)
	data.Set("Body", fmt.Sprintf("%s: %s", msg.Title, msg.Body))

	twilioURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimSuffix(s.config.BaseURL, "/"), s.config.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, twilioURL, strings.NewReader(data.Encode()))
	if err != nil {
		return failedReport(s.GetChannelType(), msg, err), err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.config.AccountSID, s.config.AuthToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return failedReport(s.GetChannelType(), msg, err), err
	}
	defer resp.Body.Close()

	var twilioResp TwilioResponse
	if err := json.NewDecoder(resp.Body).Decode(&twilioResp); err != nil {
		err = fmt.Errorf("failed to parse Twilio response: %w", err)
		return failedReport(s.GetChannelType(), msg, err), err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return sentReport(s.GetChannelType(), msg, twilioResp.SID), nil
	}

	errorMsg := fmt.Sprintf("status %d", resp.StatusCode)
	if twilioResp.ErrorMessage != nil {
		errorMsg = *twilioResp.ErrorMessage
	}
	err = fmt.Errorf("twilio error: %s", errorMsg)
	return failedReport(s.GetChannelType(), msg, err), err
}

// GetChannelType returns the channel type
func (s *SMSChannel) GetChannelType() string {
	return "sms"
}
