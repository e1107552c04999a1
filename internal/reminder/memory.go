package reminder

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryPlatform keeps scheduled notifications in process memory. It backs
// local runs and tests; nothing survives a restart.
type MemoryPlatform struct {
	mu      sync.Mutex
	pending map[string]Notification
}

// NewMemoryPlatform creates an empty platform.
func NewMemoryPlatform() *MemoryPlatform {
	return &MemoryPlatform{pending: make(map[string]Notification)}
}

// ScheduleAt stores n, replacing any notification with the same id.
func (m *MemoryPlatform) ScheduleAt(_ context.Context, n Notification) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[n.ID] = n
	return n.ID, nil
}

// Cancel removes id. Unknown ids are ignored.
func (m *MemoryPlatform) Cancel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
	return nil
}

// ListPending returns pending notifications ordered by fire time.
func (m *MemoryPlatform) ListPending(_ context.Context) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, 0, len(m.pending))
	for _, n := range m.pending {
		out = append(out, n)
	}
	sortByFireTime(out)
	return out, nil
}

// CancelAll drops everything.
func (m *MemoryPlatform) CancelAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = make(map[string]Notification)
	return nil
}

// PopDue removes and returns up to limit notifications due at or before now.
func (m *MemoryPlatform) PopDue(_ context.Context, now time.Time, limit int) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []Notification
	for _, n := range m.pending {
		if !n.FireAt.After(now) {
			due = append(due, n)
		}
	}
	sortByFireTime(due)
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, n := range due {
		delete(m.pending, n.ID)
	}
	return due, nil
}

func sortByFireTime(ns []Notification) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].FireAt.Equal(ns[j].FireAt) {
			return ns[i].ID < ns[j].ID
		}
		return ns[i].FireAt.Before(ns[j].FireAt)
	})
}
