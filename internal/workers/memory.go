package workers

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-memory Registry for tests and local development.
type MemoryRegistry struct {
	mu      sync.Mutex
	workers map[int64]*Worker
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{workers: make(map[int64]*Worker)}
}

func (m *MemoryRegistry) Upsert(_ context.Context, in Input) (*Worker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	w, ok := m.workers[in.ID]
	if !ok {
		w = &Worker{ID: in.ID, CreatedAt: now}
		m.workers[in.ID] = w
	}
	merge(&w.Handle, in.Handle)
	merge(&w.FirstName, in.FirstName)
	merge(&w.LastName, in.LastName)
	merge(&w.Phone, in.Phone)
	w.UpdatedAt = now

	out := *w
	return &out, nil
}

func (m *MemoryRegistry) GetPhone(_ context.Context, id int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workers[id]
	if !ok || w.Phone == nil || *w.Phone == "" {
		return "", false, nil
	}
	return *w.Phone, true, nil
}

func merge(dst **string, src *string) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}
