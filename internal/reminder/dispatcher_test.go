package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []Notification
	failFor   string
}

func (p *recordingPublisher) PublishReminder(_ context.Context, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n.ID == p.failFor {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, n)
	return nil
}

func TestDispatcher_DispatchDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC)
	platform := NewMemoryPlatform()
	for _, n := range []Notification{
		{ID: "early", FireAt: now.Add(-2 * time.Hour)},
		{ID: "exact", FireAt: now},
		{ID: "broken", FireAt: now.Add(-time.Hour)},
		{ID: "later", FireAt: now.Add(time.Hour)},
	} {
		platform.ScheduleAt(ctx, n)
	}

	pub := &recordingPublisher{failFor: "broken"}
	d := NewDispatcher(platform, pub, time.Minute, 2, nil, zaptest.NewLogger(t))
	d.now = func() time.Time { return now }

	got, err := d.DispatchDue(ctx)
	if err != nil {
		t.Fatalf("DispatchDue: %v", err)
	}
	if got != 2 {
		t.Fatalf("DispatchDue published %d, want 2", got)
	}
	if pub.published[0].ID != "early" || pub.published[1].ID != "exact" {
		t.Fatalf("published out of order: %+v", pub.published)
	}

	pending, _ := platform.ListPending(ctx)
	if len(pending) != 1 || pending[0].ID != "later" {
		t.Fatalf("pending after dispatch = %+v, want only later", pending)
	}
}

type failingSource struct{}

func (failingSource) PopDue(context.Context, time.Time, int) ([]Notification, error) {
	return nil, errors.New("redis down")
}

func TestDispatcher_SourceError(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(failingSource{}, &recordingPublisher{}, time.Minute, 10, nil, zaptest.NewLogger(t))
	if _, err := d.DispatchDue(context.Background()); err == nil {
		t.Fatal("DispatchDue succeeded with failing source")
	}
}

type partialSource struct{}

func (partialSource) PopDue(context.Context, time.Time, int) ([]Notification, error) {
	return []Notification{{ID: "claimed"}}, errors.New("connection reset")
}

func TestDispatcher_PublishesClaimedBeforeError(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	d := NewDispatcher(partialSource{}, pub, time.Minute, 10, nil, zaptest.NewLogger(t))

	got, err := d.DispatchDue(context.Background())
	if err == nil {
		t.Fatal("DispatchDue succeeded, want source error")
	}
	if got != 1 || len(pub.published) != 1 || pub.published[0].ID != "claimed" {
		t.Fatalf("published %d (%+v), want the claimed reminder", got, pub.published)
	}
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(NewMemoryPlatform(), &recordingPublisher{}, 10*time.Millisecond, 10, nil, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
