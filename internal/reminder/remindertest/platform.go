// Package remindertest provides a notification platform double for tests.
package remindertest

import (
	"context"
	"sync"
	"time"

	"github.com/alexnthnz/plant-care/internal/reminder"
)

// Platform is an in-memory reminder.Platform that records every call and can
// be told to fail.
type Platform struct {
	*reminder.MemoryPlatform

	mu          sync.Mutex
	scheduled   []reminder.Notification
	cancelled   []string
	cancelAlls  int
	ScheduleErr error
	CancelErr   error
	ListErr     error
}

// NewPlatform returns an empty recording platform.
func NewPlatform() *Platform {
	return &Platform{MemoryPlatform: reminder.NewMemoryPlatform()}
}

func (p *Platform) ScheduleAt(ctx context.Context, n reminder.Notification) (string, error) {
	p.mu.Lock()
	err := p.ScheduleErr
	if err == nil {
		p.scheduled = append(p.scheduled, n)
	}
	p.mu.Unlock()
	if err != nil {
		return "", err
	}
	return p.MemoryPlatform.ScheduleAt(ctx, n)
}

func (p *Platform) Cancel(ctx context.Context, id string) error {
	p.mu.Lock()
	err := p.CancelErr
	if err == nil {
		p.cancelled = append(p.cancelled, id)
	}
	p.mu.Unlock()
	if err != nil {
		return err
	}
	return p.MemoryPlatform.Cancel(ctx, id)
}

func (p *Platform) ListPending(ctx context.Context) ([]reminder.Notification, error) {
	p.mu.Lock()
	err := p.ListErr
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.MemoryPlatform.ListPending(ctx)
}

func (p *Platform) CancelAll(ctx context.Context) error {
	p.mu.Lock()
	p.cancelAlls++
	p.mu.Unlock()
	return p.MemoryPlatform.CancelAll(ctx)
}

// Scheduled returns every notification accepted by ScheduleAt so far.
func (p *Platform) Scheduled() []reminder.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]reminder.Notification(nil), p.scheduled...)
}

// Cancelled returns every id passed to a successful Cancel so far.
func (p *Platform) Cancelled() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.cancelled...)
}

// CancelAllCalls returns how many times CancelAll was called.
func (p *Platform) CancelAllCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelAlls
}

// Reset forgets recorded calls but keeps pending notifications.
func (p *Platform) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduled = nil
	p.cancelled = nil
	p.cancelAlls = 0
}

// PendingFor returns pending notifications whose payload names plantID.
func (p *Platform) PendingFor(plantID string) []reminder.Notification {
	all, _ := p.MemoryPlatform.ListPending(context.Background())
	var out []reminder.Notification
	for _, n := range all {
		if n.Payload.PlantID == plantID {
			out = append(out, n)
		}
	}
	return out
}

// Clock is a settable time source.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{current: start}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}
