package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Target identifies the plant a plan is built for.
type Target struct {
	PlantID          string
	PlantName        string
	NextWateringDate time.Time
}

// Request is one reminder the planner wants scheduled.
type Request struct {
	ID      string
	Kind    Kind
	FireAt  time.Time
	Content Content
}

// NewID returns a fresh reminder identifier. The plant id is embedded so that
// identifiers stay readable in platform listings; matching is done on the
// payload, not on the identifier.
func NewID(plantID string, kind Kind) string {
	return fmt.Sprintf("%s:%s:%s", plantID, kind, uuid.NewString())
}

// Planner decides which reminders a plant should have and submits them to a
// Gateway.
type Planner struct {
	gateway *Gateway
	now     func() time.Time
	newID   func(plantID string, kind Kind) string
	logger  *zap.Logger
}

// NewPlanner creates a planner submitting to gateway. A nil now uses time.Now.
func NewPlanner(gateway *Gateway, now func() time.Time, logger *zap.Logger) *Planner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		gateway: gateway,
		now:     now,
		newID:   NewID,
		logger:  logger,
	}
}

// Plan returns the reminders target should have under prefs, leaving out any
// whose fire time is not after now. The result is ordered day-before, day-of,
// overdue.
func (p *Planner) Plan(target Target, prefs Preferences, now time.Time) []Request {
	if !prefs.EnableNotifications {
		return nil
	}

	next := target.NextWateringDate
	var out []Request
	add := func(kind Kind, fireAt time.Time) {
		if !fireAt.After(now) {
			return
		}
		out = append(out, Request{
			ID:      p.newID(target.PlantID, kind),
			Kind:    kind,
			FireAt:  fireAt,
			Content: buildContent(target, kind),
		})
	}

	if prefs.EnableDayBeforeReminders {
		add(KindDayBefore, prefs.DayBeforeTime.On(next.AddDate(0, 0, -1)))
	}
	add(KindDayOf, prefs.ReminderTime.On(next))
	if prefs.EnableOverdueReminders {
		add(KindOverdue, prefs.OverdueTime.On(next.AddDate(0, 0, 1)))
	}
	return out
}

// Schedule plans reminders for target and submits each one. It returns the
// identifiers the gateway accepted; callers should only log the count.
func (p *Planner) Schedule(ctx context.Context, target Target, prefs Preferences) []string {
	requests := p.Plan(target, prefs, p.now())

	var ids []string
	for _, req := range requests {
		if id, ok := p.gateway.Schedule(ctx, req.ID, req.FireAt, req.Content); ok {
			ids = append(ids, id)
		}
	}

	p.logger.Debug("Planned reminders",
		zap.String("plant_id", target.PlantID),
		zap.Int("planned", len(requests)),
		zap.Int("scheduled", len(ids)),
	)
	return ids
}

func buildContent(target Target, kind Kind) Content {
	c := Content{
		Payload: Payload{
			PlantID:          target.PlantID,
			PlantName:        target.PlantName,
			Kind:             kind,
			NextWateringDate: target.NextWateringDate,
		},
	}
	switch kind {
	case KindDayBefore:
		c.Title = "Watering tomorrow"
		c.Body = fmt.Sprintf("%s will need water tomorrow.", target.PlantName)
	case KindDayOf:
		c.Title = "Time to water"
		c.Body = fmt.Sprintf("%s needs water today.", target.PlantName)
	case KindOverdue:
		c.Title = "Watering overdue"
		c.Body = fmt.Sprintf("%s was due for water yesterday. Give it a drink!", target.PlantName)
	}
	return c
}
