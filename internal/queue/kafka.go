package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/config"
	"github.com/alexnthnz/plant-care/internal/reminder"
)

// ReminderMessage is a fired watering reminder on its way to delivery.
type ReminderMessage struct {
	ID               string        `json:"id"`
	PlantID          string        `json:"plant_id"`
	PlantName        string        `json:"plant_name"`
	Kind             reminder.Kind `json:"kind"`
	Title            string        `json:"title"`
	Body             string        `json:"body"`
	FireAt           time.Time     `json:"fire_at"`
	NextWateringDate time.Time     `json:"next_watering_date"`
	PublishedAt      time.Time     `json:"published_at"`
}

// NewReminderMessage converts a fired notification into a queue message.
func NewReminderMessage(n reminder.Notification, publishedAt time.Time) ReminderMessage {
	return ReminderMessage{
		ID:               n.ID,
		PlantID:          n.Payload.PlantID,
		PlantName:        n.Payload.PlantName,
		Kind:             n.Payload.Kind,
		Title:            n.Title,
		Body:             n.Body,
		FireAt:           n.FireAt,
		NextWateringDate: n.Payload.NextWateringDate,
		PublishedAt:      publishedAt,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Producer handles publishing reminders to Kafka
type Producer struct {
	writer messageWriter
	now    func() time.Time
	logger *zap.Logger
}

// Consumer handles consuming reminders from Kafka
type Consumer struct {
	reader messageReader
	logger *zap.Logger
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Async:        false, // Synchronous for reliability
	}

	return &Producer{writer: writer, now: time.Now, logger: logger}
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg config.KafkaConfig, groupID string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     groupID,
		MinBytes:    10e3, // 10KB
		MaxBytes:    10e6, // 10MB
		MaxWait:     1 * time.Second,
		StartOffset: kafka.LastOffset,
	})

	return &Consumer{reader: reader, logger: logger}
}

// PublishReminder publishes a fired reminder. Messages are keyed by plant so
// that one plant's reminders stay ordered within a partition.
func (p *Producer) PublishReminder(ctx context.Context, n reminder.Notification) error {
	msg := NewReminderMessage(n, p.now())

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder message: %w", err)
	}

	kafkaMsg := kafka.Message{
		Key:   []byte(msg.PlantID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
			{Key: "reminder_id", Value: []byte(msg.ID)},
		},
		Time: msg.PublishedAt,
	}

	if err := p.writer.WriteMessages(ctx, kafkaMsg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("Published reminder to Kafka",
		zap.String("reminder_id", msg.ID),
		zap.String("plant_id", msg.PlantID),
	)
	return nil
}

// ConsumeReminders reads reminders until ctx is cancelled or the reader is
// closed. Malformed messages and handler failures are logged and skipped.
func (c *Consumer) ConsumeReminders(ctx context.Context, handler func(context.Context, ReminderMessage) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			c.logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		var rm ReminderMessage
		if err := json.Unmarshal(msg.Value, &rm); err != nil {
			c.logger.Error("Error unmarshaling reminder message",
				zap.Error(err),
				zap.Int64("offset", msg.Offset),
			)
			continue
		}

		if err := handler(ctx, rm); err != nil {
			c.logger.Error("Error processing reminder",
				zap.Error(err),
				zap.String("reminder_id", rm.ID),
			)
			continue
		}

		c.logger.Debug("Processed reminder", zap.String("reminder_id", rm.ID))
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
