// Package store persists board widgets between sessions.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

// ErrNotFound is returned when deleting a widget the store does not hold.
var ErrNotFound = errors.New("widget not found in store")

// Store is the persistence contract the board writes through.
type Store interface {
	// Load returns every widget in insertion order.
	Load(ctx context.Context) ([]grid.Widget, error)
	// Save inserts or replaces w.
	Save(ctx context.Context, w grid.Widget) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store for driver ("memory", "sqlite" or "yaml").
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		if path == "" {
			return nil, fmt.Errorf("sqlite store needs a path")
		}
		return OpenSQLite(path)
	case "yaml":
		if path == "" {
			return nil, fmt.Errorf("yaml store needs a path")
		}
		return OpenYAML(path)
	default:
		return nil, fmt.Errorf("unknown store driver '%s'", driver)
	}
}
