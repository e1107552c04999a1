package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/monitoring"
)

// DueSource hands out reminders whose fire time has passed. A reminder is
// returned by at most one PopDue call.
type DueSource interface {
	PopDue(ctx context.Context, now time.Time, limit int) ([]Notification, error)
}

// Publisher forwards a fired reminder to the delivery side.
type Publisher interface {
	PublishReminder(ctx context.Context, n Notification) error
}

// Dispatcher periodically moves due reminders from a DueSource to a Publisher.
type Dispatcher struct {
	source    DueSource
	publisher Publisher
	interval  time.Duration
	batchSize int
	now       func() time.Time
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher polling every interval.
func NewDispatcher(
	source DueSource,
	publisher Publisher,
	interval time.Duration,
	batchSize int,
	metrics *monitoring.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Dispatcher{
		source:    source,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run dispatches until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.DispatchDue(ctx); err != nil {
			d.logger.Error("Failed to dispatch due reminders", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// DispatchDue publishes every reminder currently due and returns how many
// were published. A reminder that fails to publish is logged and dropped.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		d.metrics.RecordProcessingDuration("dispatcher", "dispatch_due", time.Since(start).Seconds())
	}()

	published := 0
	for {
		// Reminders returned alongside an error are already claimed.
		due, err := d.source.PopDue(ctx, d.now(), d.batchSize)
		if err != nil {
			d.metrics.RecordPlatformError("pop_due")
			published += d.publishAll(ctx, due)
			return published, err
		}

		published += d.publishAll(ctx, due)
		if len(due) < d.batchSize {
			break
		}
	}

	if published > 0 {
		d.logger.Info("Dispatched due reminders", zap.Int("count", published))
	}
	return published, nil
}

func (d *Dispatcher) publishAll(ctx context.Context, due []Notification) int {
	published := 0
	for _, n := range due {
		if err := d.publisher.PublishReminder(ctx, n); err != nil {
			d.logger.Error("Failed to publish reminder",
				zap.Error(err),
				zap.String("reminder_id", n.ID),
				zap.String("plant_id", n.Payload.PlantID),
			)
			continue
		}
		published++
		d.metrics.RecordReminderDispatched()
	}
	return published
}
