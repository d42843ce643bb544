package grid

import "fmt"

// Widget is a placed widget as the engine sees it. Kind is opaque to the engine.
type Widget struct {
	ID       string   `yaml:"id" json:"id"`
	Kind     string   `yaml:"kind,omitempty" json:"kind,omitempty"`
	Position Position `yaml:"position" json:"position"`
	Size     Size     `yaml:"size" json:"size"`
	MinSize  *Size    `yaml:"min_size,omitempty" json:"minSize,omitempty"`
	MaxSize  *Size    `yaml:"max_size,omitempty" json:"maxSize,omitempty"`
}

// Rect returns the widget's occupied rectangle.
func (w Widget) Rect() Rect {
	return Rect{Position: w.Position, Size: w.Size}
}

// WithRect returns a copy of w moved and sized to r.
func (w Widget) WithRect(r Rect) Widget {
	w.Position = r.Position
	w.Size = r.Size
	return w
}

// Limits returns the effective size constraints of w on a grid with cfg.
// Missing bounds default to {1,1} and {Columns, unbounded}.
func (w Widget) Limits(cfg Config) (Size, Size) {
	lo := Size{Width: 1, Height: 1}
	hi := Size{Width: cfg.Columns, Height: MaxRows}
	if w.MinSize != nil {
		lo.Width = max(lo.Width, w.MinSize.Width)
		lo.Height = max(lo.Height, w.MinSize.Height)
	}
	if w.MaxSize != nil {
		if w.MaxSize.Width > 0 {
			hi.Width = min(hi.Width, w.MaxSize.Width)
		}
		if w.MaxSize.Height > 0 {
			hi.Height = w.MaxSize.Height
		}
	}
	lo.Width = min(lo.Width, cfg.Columns)
	hi.Width = max(hi.Width, lo.Width)
	hi.Height = max(hi.Height, lo.Height)
	return lo, hi
}

// CheckBounds reports whether w fits on the grid: inside the columns and above MaxRows.
func (w Widget) CheckBounds(cfg Config) error {
	switch {
	case w.Position.Column < 0 || w.Position.Row < 0:
		return fmt.Errorf("widget '%s' has negative position (%d,%d)", w.ID, w.Position.Column, w.Position.Row)
	case w.Size.Width < 1 || w.Size.Height < 1:
		return fmt.Errorf("widget '%s' has empty size %dx%d", w.ID, w.Size.Width, w.Size.Height)
	case w.Position.Column+w.Size.Width > cfg.Columns:
		return fmt.Errorf("widget '%s' spans columns %d-%d beyond %d", w.ID, w.Position.Column, w.Rect().Right(), cfg.Columns)
	case w.Position.Row > MaxRows-w.Size.Height:
		return fmt.Errorf("widget '%s' ends past row %d", w.ID, MaxRows)
	}
	return nil
}

// Find returns the widget with id from widgets.
func Find(widgets []Widget, id string) (Widget, bool) {
	for _, w := range widgets {
		if w.ID == id {
			return w, true
		}
	}
	return Widget{}, false
}

// Source is a read-only accessor over the live widget collection. Widgets must
// return a snapshot the caller may keep for the duration of one evaluation.
type Source interface {
	Widgets() []Widget
}

// CommitFunc writes a gesture's final rectangle to the widget-state owner.
type CommitFunc func(id string, r Rect) error
