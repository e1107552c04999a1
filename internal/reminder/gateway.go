package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/alexnthnz/plant-care/internal/monitoring"
)

// Platform is the host's scheduled-notification primitive. Payloads must
// round-trip unchanged through ScheduleAt and ListPending.
type Platform interface {
	ScheduleAt(ctx context.Context, n Notification) (string, error)
	Cancel(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]Notification, error)
	CancelAll(ctx context.Context) error
}

// Gateway wraps a Platform so that no call ever fails its caller: platform
// errors are logged, counted and treated as "nothing happened".
//
// The platform's pending list is the source of truth for which reminders
// belong to which plant; nothing is tracked locally.
type Gateway struct {
	platform Platform
	now      func() time.Time
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// NewGateway creates a gateway over platform. A nil now uses time.Now.
func NewGateway(platform Platform, now func() time.Time, metrics *monitoring.Metrics, logger *zap.Logger) *Gateway {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{
		platform: platform,
		now:      now,
		metrics:  metrics,
		logger:   logger,
	}
}

// Schedule asks the platform to fire content at fireAt under id. It returns
// false if fireAt is not in the future or the platform rejected the request.
func (g *Gateway) Schedule(ctx context.Context, id string, fireAt time.Time, content Content) (string, bool) {
	kind := string(content.Payload.Kind)
	if !fireAt.After(g.now()) {
		g.logger.Debug("Skipping reminder in the past",
			zap.String("reminder_id", id),
			zap.String("plant_id", content.Payload.PlantID),
			zap.Time("fire_at", fireAt),
		)
		g.metrics.RecordReminderSkipped(kind, "past")
		return "", false
	}

	scheduledID, err := g.platform.ScheduleAt(ctx, Notification{ID: id, FireAt: fireAt, Content: content})
	if err != nil {
		g.logger.Error("Failed to schedule reminder",
			zap.Error(err),
			zap.String("reminder_id", id),
			zap.String("plant_id", content.Payload.PlantID),
		)
		g.metrics.RecordPlatformError("schedule")
		g.metrics.RecordReminderSkipped(kind, "platform_error")
		return "", false
	}

	g.metrics.RecordReminderScheduled(kind)
	g.logger.Info("Scheduled reminder",
		zap.String("reminder_id", scheduledID),
		zap.String("plant_id", content.Payload.PlantID),
		zap.String("kind", kind),
		zap.Time("fire_at", fireAt),
	)
	return scheduledID, true
}

// CancelForPlant cancels every pending reminder whose payload names plantID
// and returns how many cancellations the platform accepted.
func (g *Gateway) CancelForPlant(ctx context.Context, plantID string) int {
	cancelled := 0
	for _, n := range g.ListForPlant(ctx, plantID) {
		if err := g.platform.Cancel(ctx, n.ID); err != nil {
			g.logger.Error("Failed to cancel reminder",
				zap.Error(err),
				zap.String("reminder_id", n.ID),
				zap.String("plant_id", plantID),
			)
			g.metrics.RecordPlatformError("cancel")
			continue
		}
		cancelled++
	}

	g.metrics.RecordRemindersCancelled(cancelled)
	g.logger.Info("Cancelled reminders for plant",
		zap.String("plant_id", plantID),
		zap.Int("count", cancelled),
	)
	return cancelled
}

// CancelByID cancels a single reminder.
func (g *Gateway) CancelByID(ctx context.Context, id string) {
	if err := g.platform.Cancel(ctx, id); err != nil {
		g.logger.Error("Failed to cancel reminder", zap.Error(err), zap.String("reminder_id", id))
		g.metrics.RecordPlatformError("cancel")
		return
	}
	g.metrics.RecordRemindersCancelled(1)
}

// ListScheduled returns every pending reminder, or nil if the platform fails.
func (g *Gateway) ListScheduled(ctx context.Context) []Notification {
	pending, err := g.platform.ListPending(ctx)
	if err != nil {
		g.logger.Error("Failed to list scheduled reminders", zap.Error(err))
		g.metrics.RecordPlatformError("list")
		return nil
	}
	return pending
}

// ListForPlant returns the pending reminders belonging to plantID.
func (g *Gateway) ListForPlant(ctx context.Context, plantID string) []Notification {
	var out []Notification
	for _, n := range g.ListScheduled(ctx) {
		if n.Payload.PlantID == plantID {
			out = append(out, n)
		}
	}
	return out
}

// ClearAll cancels every pending reminder.
func (g *Gateway) ClearAll(ctx context.Context) {
	if err := g.platform.CancelAll(ctx); err != nil {
		g.logger.Error("Failed to clear scheduled reminders", zap.Error(err))
		g.metrics.RecordPlatformError("cancel_all")
		return
	}
	g.logger.Info("Cleared all scheduled reminders")
}
