package store

import (
	"context"
	"errors"
	"sync"

	"github.com/wcatz/dashboard-grid/internal/config"
	"github.com/wcatz/dashboard-grid/internal/grid"
)

// YAML keeps widgets in the widgets section of a config file, so committed
// rectangles survive as hand-editable positions.
type YAML struct {
	mu     sync.Mutex
	editor *config.YAMLEditor
}

// OpenYAML opens the file at path, creating it if needed.
func OpenYAML(path string) (*YAML, error) {
	ed := config.NewYAMLEditor(path)
	if err := ed.Init(); err != nil {
		return nil, err
	}
	return &YAML{editor: ed}, nil
}

// Load returns the widgets the file defines, auto-placing any without a position.
func (y *YAML) Load(ctx context.Context) ([]grid.Widget, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.editor.Widgets()
}

// Save writes w into the file.
func (y *YAML) Save(ctx context.Context, w grid.Widget) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	return y.editor.UpsertWidget(w)
}

// Delete removes id from the file and from every profile.
func (y *YAML) Delete(ctx context.Context, id string) error {
	y.mu.Lock()
	defer y.mu.Unlock()
	if err := y.editor.DeleteWidget(id); err != nil {
		if errors.Is(err, config.ErrUnknownWidget) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Close is a no-op.
func (y *YAML) Close() error { return nil }
