package collection

import (
	"context"
	"encoding/json"
	"sync"
)

// Repository persists the collection state.
type Repository interface {
	// Load returns the saved state, or nil if nothing has been saved yet.
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state State) error
}

// MemoryRepository keeps the last saved state in memory, encoded the same way
// a durable repository would store it.
type MemoryRepository struct {
	mu   sync.Mutex
	data []byte
	err  error
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(_ context.Context) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.data == nil {
		return nil, nil
	}
	var state State
	if err := json.Unmarshal(r.data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *MemoryRepository) Save(_ context.Context, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	r.data = data
	return nil
}

// FailSaves makes every later Save return err. Pass nil to recover.
func (r *MemoryRepository) FailSaves(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Raw returns the last saved document.
func (r *MemoryRepository) Raw() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.data...)
}
