package grid

import (
	"context"
	"errors"
	"log/slog"
)

// Controller errors.
var (
	ErrGestureActive = errors.New("a gesture is in progress")
	ErrNoGesture     = errors.New("no gesture in progress")
)

// Phase is the controller's interaction state.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Resizing
)

func (p Phase) String() string {
	switch p {
	case Dragging:
		return "dragging"
	case Resizing:
		return "resizing"
	default:
		return "idle"
	}
}

// PointerKind distinguishes pointer events fed to Track.
type PointerKind int

const (
	PointerMove PointerKind = iota
	PointerUp
	PointerCancel
)

// PointerEvent is one pointer sample in client coordinates.
type PointerEvent struct {
	Kind PointerKind
	Point
}

// Observer receives gesture outcomes. Implementations must not block.
type Observer interface {
	Candidate(phase Phase, accepted bool)
	Committed(phase Phase)
	Rows(total int)
}

// Controller runs one drag or resize gesture at a time over a widget source.
// It is not safe for concurrent use; callers serialize events.
type Controller struct {
	resolver *Resolver
	rows     *RowTracker
	source   Source
	commit   CommitFunc
	observer Observer
	logger   *slog.Logger

	phase     Phase
	container Container
	drag      DragGesture
	resize    ResizeGesture
	last      Rect
}

// NewController validates cfg and returns an idle controller.
func NewController(cfg Config, source Source, commit CommitFunc, logger *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	rows := NewRowTracker(cfg.MinRows)
	rows.Recompute(source.Widgets())
	return &Controller{
		resolver: NewResolver(cfg, rows),
		rows:     rows,
		source:   source,
		commit:   commit,
		logger:   logger,
	}, nil
}

// SetObserver installs an outcome observer.
func (c *Controller) SetObserver(o Observer) {
	c.observer = o
	if o != nil {
		o.Rows(c.rows.Total())
	}
}

// Config returns the active grid configuration.
func (c *Controller) Config() Config {
	return c.resolver.Config()
}

// SetConfig swaps the grid configuration. It is refused mid-gesture.
func (c *Controller) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if c.phase != Idle {
		return ErrGestureActive
	}
	c.resolver = NewResolver(cfg, c.rows)
	c.rows.SetMinRows(cfg.MinRows)
	c.refreshRows()
	return nil
}

// Phase returns the current interaction state.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Active returns the id of the widget under gesture, if any.
func (c *Controller) Active() (string, bool) {
	switch c.phase {
	case Dragging:
		return c.drag.WidgetID, true
	case Resizing:
		return c.resize.WidgetID, true
	}
	return "", false
}

// Last returns the last valid rectangle of the current gesture.
func (c *Controller) Last() Rect {
	return c.last
}

// TotalRows returns the visible row count.
func (c *Controller) TotalRows() int {
	return c.rows.Total()
}

// RowHeight returns the row height for a viewport of the given height.
func (c *Controller) RowHeight(viewportHeight float64) float64 {
	return c.resolver.RowHeight(viewportHeight)
}

// BeginDrag starts dragging id. It returns false when busy, when id is
// unknown or when the pointer is off the grid.
func (c *Controller) BeginDrag(id string, pointer Point, container Container) bool {
	if c.phase != Idle {
		return false
	}
	w, ok := Find(c.source.Widgets(), id)
	if !ok {
		return false
	}
	g, ok := c.resolver.StartDrag(w, pointer, container)
	if !ok {
		return false
	}
	c.drag = g
	c.container = container
	c.last = w.Rect()
	c.phase = Dragging
	c.logger.Debug("drag started", "widget", id, "column", w.Position.Column, "row", w.Position.Row)
	return true
}

// BeginResize starts resizing id from the handle dir.
func (c *Controller) BeginResize(id string, dir Direction, pointer Point, container Container) bool {
	if c.phase != Idle || !dir.Valid() {
		return false
	}
	w, ok := Find(c.source.Widgets(), id)
	if !ok {
		return false
	}
	g, ok := c.resolver.StartResize(w, dir, pointer, container)
	if !ok {
		return false
	}
	c.resize = g
	c.container = container
	c.last = w.Rect()
	c.phase = Resizing
	c.logger.Debug("resize started", "widget", id, "handle", dir.String())
	return true
}

// DragCandidate evaluates a pointer move for the dragged widget id.
func (c *Controller) DragCandidate(id string, pointer Point) (Position, bool) {
	if c.phase != Dragging || c.drag.WidgetID != id {
		return Position{}, false
	}
	widgets, ok := c.snapshot(id)
	if !ok {
		return Position{}, false
	}
	pos, ok := c.resolver.ResolveDrag(c.drag, pointer, c.container, widgets)
	c.observe(Dragging, ok)
	if ok {
		c.last.Position = pos
	}
	return pos, ok
}

// ResizeCandidate evaluates a pointer move for the resized widget id.
func (c *Controller) ResizeCandidate(id string, pointer Point) (Rect, bool) {
	if c.phase != Resizing || c.resize.WidgetID != id {
		return Rect{}, false
	}
	widgets, ok := c.snapshot(id)
	if !ok {
		return Rect{}, false
	}
	r, ok := c.resolver.ResolveResize(c.resize, pointer, c.container, widgets)
	c.observe(Resizing, ok)
	if ok {
		c.last = r
	}
	return r, ok
}

// Move feeds a pointer move to whichever gesture is active and returns the
// resulting rectangle when the candidate was accepted.
func (c *Controller) Move(pointer Point) (Rect, bool) {
	switch c.phase {
	case Dragging:
		if _, ok := c.DragCandidate(c.drag.WidgetID, pointer); ok {
			return c.last, true
		}
	case Resizing:
		if r, ok := c.ResizeCandidate(c.resize.WidgetID, pointer); ok {
			return r, true
		}
	}
	return Rect{}, false
}

// End finishes the gesture and commits its last valid rectangle. An unchanged
// rectangle is not committed. The returned error comes from the commit callback.
func (c *Controller) End() (Rect, bool, error) {
	if c.phase == Idle {
		return Rect{}, false, nil
	}
	id, _ := c.Active()
	phase := c.phase
	origin := c.drag.Origin
	if phase == Resizing {
		origin = c.resize.Origin
	}
	r := c.last
	c.reset()
	defer c.refreshRows()

	if _, ok := Find(c.source.Widgets(), id); !ok {
		return Rect{}, false, nil
	}
	if r == origin {
		return r, true, nil
	}
	if c.commit != nil {
		if err := c.commit(id, r); err != nil {
			c.logger.Warn("commit failed", "widget", id, "error", err)
			return r, false, err
		}
	}
	if c.observer != nil {
		c.observer.Committed(phase)
	}
	c.logger.Debug("gesture committed", "widget", id, "phase", phase.String(),
		"column", r.Column, "row", r.Row, "width", r.Width, "height", r.Height)
	return r, true, nil
}

// Cancel abandons the gesture without committing.
func (c *Controller) Cancel() {
	if c.phase == Idle {
		return
	}
	id, _ := c.Active()
	c.reset()
	c.refreshRows()
	c.logger.Debug("gesture cancelled", "widget", id)
}

// WidgetAdded grows the grid to contain a newly placed widget.
func (c *Controller) WidgetAdded(w Widget) {
	c.rows.EnsureRows(w.Rect().End())
	if c.observer != nil {
		c.observer.Rows(c.rows.Total())
	}
}

// WidgetRemoved cancels a gesture on id and, when idle, re-derives the row count.
func (c *Controller) WidgetRemoved(id string) {
	if active, ok := c.Active(); ok && active == id {
		c.Cancel()
		return
	}
	if c.phase == Idle {
		c.refreshRows()
	}
}

// Track consumes pointer events for the active gesture until pointer-up,
// cancellation, channel close or ctx is done. The gesture never outlives the call.
func (c *Controller) Track(ctx context.Context, events <-chan PointerEvent) (Rect, bool, error) {
	if c.phase == Idle {
		return Rect{}, false, ErrNoGesture
	}
	defer c.Cancel()

	for {
		select {
		case <-ctx.Done():
			return Rect{}, false, ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return Rect{}, false, nil
			}
			switch ev.Kind {
			case PointerMove:
				c.Move(ev.Point)
			case PointerUp:
				return c.End()
			case PointerCancel:
				return Rect{}, false, nil
			}
			if c.phase == Idle {
				return Rect{}, false, nil
			}
		}
	}
}

// snapshot returns the current widgets, dropping to idle if id vanished.
func (c *Controller) snapshot(id string) ([]Widget, bool) {
	widgets := c.source.Widgets()
	if _, ok := Find(widgets, id); !ok {
		c.logger.Debug("gesture widget removed", "widget", id)
		c.reset()
		c.refreshRows()
		return nil, false
	}
	return widgets, true
}

func (c *Controller) observe(phase Phase, accepted bool) {
	if c.observer == nil {
		return
	}
	c.observer.Candidate(phase, accepted)
	if accepted {
		c.observer.Rows(c.rows.Total())
	}
}

func (c *Controller) refreshRows() {
	c.rows.Recompute(c.source.Widgets())
	if c.observer != nil {
		c.observer.Rows(c.rows.Total())
	}
}

func (c *Controller) reset() {
	c.phase = Idle
	c.drag = DragGesture{}
	c.resize = ResizeGesture{}
	c.container = Container{}
	c.last = Rect{}
}
