// Package board owns the widget collection a dashboard shows. The grid engine
// reads it through Widgets and writes to it only through Commit.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/wcatz/dashboard-grid/internal/grid"
	"github.com/wcatz/dashboard-grid/internal/pubsub"
	"github.com/wcatz/dashboard-grid/internal/store"
)

// Board errors.
var (
	ErrWidgetNotFound  = errors.New("widget not found")
	ErrDuplicateWidget = errors.New("widget already exists")
	ErrOverlap         = errors.New("widget overlaps another widget")
	ErrOutOfBounds     = errors.New("widget is outside the grid")
)

// DefaultSize is used for widgets added without a footprint.
var DefaultSize = grid.Size{Width: 2, Height: 2}

// Board is the single source of truth for widget placement.
type Board struct {
	mu      sync.RWMutex
	cfg     grid.Config
	widgets []grid.Widget
	store   store.Store
	events  *pubsub.Broker[grid.Widget]
	logger  *slog.Logger
}

// New creates an empty board persisted through st.
func New(cfg grid.Config, st store.Store, logger *slog.Logger) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		st = store.NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		cfg:    cfg,
		store:  st,
		events: pubsub.NewBroker[grid.Widget](),
		logger: logger,
	}, nil
}

// Load reads widgets from the store. When the store is empty, seed is
// validated, saved and used instead.
func (b *Board) Load(ctx context.Context, seed []grid.Widget) error {
	stored, err := b.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading board: %w", err)
	}
	widgets := stored
	seeded := false
	if len(widgets) == 0 {
		widgets = seed
		seeded = true
	}
	if err := validate(b.Config(), widgets); err != nil {
		return err
	}
	if seeded {
		for _, w := range widgets {
			if err := b.store.Save(ctx, w); err != nil {
				return err
			}
		}
	}

	b.mu.Lock()
	b.widgets = append([]grid.Widget(nil), widgets...)
	b.mu.Unlock()
	b.logger.Info("board loaded", "widgets", len(widgets), "seeded", seeded)
	return nil
}

// Config returns the grid configuration the board validates against.
func (b *Board) Config() grid.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cfg
}

// SetConfig swaps the grid configuration after checking every widget still fits.
func (b *Board) SetConfig(cfg grid.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := validate(cfg, b.widgets); err != nil {
		return err
	}
	b.cfg = cfg
	return nil
}

// Widgets returns a snapshot of the widget collection. It implements grid.Source.
func (b *Board) Widgets() []grid.Widget {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]grid.Widget, len(b.widgets))
	copy(out, b.widgets)
	return out
}

// Get returns the widget with id.
func (b *Board) Get(id string) (grid.Widget, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return grid.Find(b.widgets, id)
}

// TotalRows derives the row count from the current widgets.
func (b *Board) TotalRows() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return grid.TotalRows(b.widgets, b.cfg.MinRows)
}

// Add inserts w at its own position.
func (b *Board) Add(ctx context.Context, w grid.Widget) (grid.Widget, error) {
	return b.insert(ctx, w, false)
}

// Place inserts w at the first free position that fits its size.
func (b *Board) Place(ctx context.Context, w grid.Widget) (grid.Widget, error) {
	return b.insert(ctx, w, true)
}

func (b *Board) insert(ctx context.Context, w grid.Widget, auto bool) (grid.Widget, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if w.Size.Width == 0 && w.Size.Height == 0 {
		w.Size = DefaultSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := grid.Find(b.widgets, w.ID); ok {
		return grid.Widget{}, fmt.Errorf("'%s': %w", w.ID, ErrDuplicateWidget)
	}
	if w.Size.Width > b.cfg.Columns {
		w.Size.Width = b.cfg.Columns
	}
	if auto {
		w.Position = grid.FirstFit(b.widgets, w.Size, b.cfg)
	}
	if err := b.check(w); err != nil {
		return grid.Widget{}, err
	}
	if err := b.store.Save(ctx, w); err != nil {
		return grid.Widget{}, err
	}
	b.widgets = append(b.widgets, w)
	b.events.Publish(pubsub.CreatedEvent, w)
	b.logger.Debug("widget added", "widget", w.ID, "column", w.Position.Column, "row", w.Position.Row)
	return w, nil
}

// Remove deletes the widget with id.
func (b *Board) Remove(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.index(id)
	if idx < 0 {
		return fmt.Errorf("'%s': %w", id, ErrWidgetNotFound)
	}
	if err := b.store.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	w := b.widgets[idx]
	b.widgets = append(b.widgets[:idx], b.widgets[idx+1:]...)
	b.events.Publish(pubsub.DeletedEvent, w)
	b.logger.Debug("widget removed", "widget", id)
	return nil
}

// Commit writes a gesture's final rectangle. It matches grid.CommitFunc.
func (b *Board) Commit(id string, r grid.Rect) error {
	return b.CommitContext(context.Background(), id, r)
}

// CommitContext writes r to the widget with id after re-checking bounds and overlap.
func (b *Board) CommitContext(ctx context.Context, id string, r grid.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := b.index(id)
	if idx < 0 {
		return fmt.Errorf("'%s': %w", id, ErrWidgetNotFound)
	}
	w := b.widgets[idx].WithRect(r)
	if err := b.check(w); err != nil {
		return err
	}
	if err := b.store.Save(ctx, w); err != nil {
		return err
	}
	b.widgets[idx] = w
	b.events.Publish(pubsub.UpdatedEvent, w)
	return nil
}

// Subscribe streams widget changes until ctx is done.
func (b *Board) Subscribe(ctx context.Context) <-chan pubsub.Event[grid.Widget] {
	return b.events.Subscribe(ctx)
}

// Close shuts down subscriptions and the store.
func (b *Board) Close() error {
	b.events.Shutdown()
	return b.store.Close()
}

func (b *Board) index(id string) int {
	for i, w := range b.widgets {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// check validates w against the grid and every other widget. Callers hold mu.
func (b *Board) check(w grid.Widget) error {
	if err := w.CheckBounds(b.cfg); err != nil {
		return fmt.Errorf("%v: %w", err, ErrOutOfBounds)
	}
	for _, o := range b.widgets {
		if o.ID != w.ID && grid.Collides(w.Rect(), o.Rect()) {
			return fmt.Errorf("'%s' and '%s': %w", w.ID, o.ID, ErrOverlap)
		}
	}
	return nil
}

func validate(cfg grid.Config, widgets []grid.Widget) error {
	seen := make(map[string]bool, len(widgets))
	for _, w := range widgets {
		if w.ID == "" {
			return fmt.Errorf("widget without id")
		}
		if seen[w.ID] {
			return fmt.Errorf("'%s': %w", w.ID, ErrDuplicateWidget)
		}
		seen[w.ID] = true
		if err := w.CheckBounds(cfg); err != nil {
			return fmt.Errorf("%v: %w", err, ErrOutOfBounds)
		}
	}
	if o := grid.Overlaps(widgets); len(o) > 0 {
		return fmt.Errorf("'%s' and '%s': %w", o[0].A, o[0].B, ErrOverlap)
	}
	return nil
}
