package store

import (
	"context"
	"sync"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

// Memory is a process-local store.
type Memory struct {
	mu      sync.RWMutex
	order   []string
	widgets map[string]grid.Widget
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{widgets: make(map[string]grid.Widget)}
}

// Load returns the widgets in insertion order.
func (m *Memory) Load(ctx context.Context) ([]grid.Widget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]grid.Widget, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.widgets[id])
	}
	return out, nil
}

// Save inserts or replaces w.
func (m *Memory) Save(ctx context.Context, w grid.Widget) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.widgets[w.ID]; !ok {
		m.order = append(m.order, w.ID)
	}
	m.widgets[w.ID] = w
	return nil
}

// Delete removes id, returning ErrNotFound if it is absent.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.widgets[id]; !ok {
		return ErrNotFound
	}
	delete(m.widgets, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
