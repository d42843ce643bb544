package grid

import (
	"fmt"
	"strings"
)

// Direction names the edges a resize handle moves. Corner handles set two flags.
type Direction struct {
	Left   bool `json:"left,omitempty"`
	Top    bool `json:"top,omitempty"`
	Right  bool `json:"right,omitempty"`
	Bottom bool `json:"bottom,omitempty"`
}

// Valid reports whether d names at least one edge and no opposing pair.
func (d Direction) Valid() bool {
	if d.Left && d.Right || d.Top && d.Bottom {
		return false
	}
	return d.Left || d.Top || d.Right || d.Bottom
}

// String returns the compass form of d, e.g. "se".
func (d Direction) String() string {
	var b strings.Builder
	if d.Top {
		b.WriteByte('n')
	}
	if d.Bottom {
		b.WriteByte('s')
	}
	if d.Right {
		b.WriteByte('e')
	}
	if d.Left {
		b.WriteByte('w')
	}
	return b.String()
}

// ParseDirection parses a compass handle name ("n", "se", "w", ...).
func ParseDirection(s string) (Direction, error) {
	var d Direction
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range s {
		switch c {
		case 'n':
			d.Top = true
		case 's':
			d.Bottom = true
		case 'e':
			d.Right = true
		case 'w':
			d.Left = true
		default:
			return Direction{}, fmt.Errorf("unknown resize handle '%s'", s)
		}
	}
	if !d.Valid() {
		return Direction{}, fmt.Errorf("unknown resize handle '%s'", s)
	}
	return d, nil
}

// DragGesture is the state captured when a drag starts.
type DragGesture struct {
	WidgetID string
	// Offset is the distance from the widget's top-left pixel to the grab point.
	Offset Point
	Origin Rect
	// RowHeight is frozen at gesture start so the cell under a stationary
	// pointer does not shift when rows grow mid-gesture. The layout reported
	// to clients catches up once the gesture ends. Zero means use the live value.
	RowHeight float64
}

// ResizeGesture is the state captured when a resize starts.
type ResizeGesture struct {
	WidgetID  string
	Direction Direction
	Origin    Rect
	// StartCell is the cell under the pointer at gesture start.
	StartCell Position
	RowHeight float64
}

// Resolver turns pointer positions into collision-free grid rectangles.
type Resolver struct {
	cfg  Config
	rows *RowTracker
}

// NewResolver creates a resolver that grows rows through rows.
func NewResolver(cfg Config, rows *RowTracker) *Resolver {
	if rows == nil {
		rows = NewRowTracker(cfg.MinRows)
	}
	return &Resolver{cfg: cfg, rows: rows}
}

// Config returns the grid configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// RowHeight returns the current row height for a viewport.
func (r *Resolver) RowHeight(viewportHeight float64) float64 {
	return RowHeight(viewportHeight, r.rows.Total(), r.cfg)
}

func (r *Resolver) rowHeightFor(frozen float64, c Container) float64 {
	if frozen > 0 {
		return frozen
	}
	return r.RowHeight(c.Height)
}

// CellAt returns the cell under a client-space pointer, or false when the
// pointer is off the grid.
func (r *Resolver) CellAt(pointer Point, c Container, rowHeight float64) (Position, bool) {
	p := c.Relative(pointer)
	return PixelToGrid(p.X, p.Y, c.Width, r.cfg, r.rowHeightFor(rowHeight, c))
}

// StartDrag captures a drag gesture for w grabbed at pointer. It returns
// false when the pointer is off the grid.
func (r *Resolver) StartDrag(w Widget, pointer Point, c Container) (DragGesture, bool) {
	rh := r.RowHeight(c.Height)
	if _, ok := r.CellAt(pointer, c, rh); !ok {
		return DragGesture{}, false
	}
	x, y := GridToPixel(w.Position, c.Width, r.cfg, rh)
	p := c.Relative(pointer)
	return DragGesture{
		WidgetID:  w.ID,
		Offset:    Point{X: p.X - x, Y: p.Y - y},
		Origin:    w.Rect(),
		RowHeight: rh,
	}, true
}

// StartResize captures a resize gesture for w on the handle dir. It returns
// false when the pointer is off the grid.
func (r *Resolver) StartResize(w Widget, dir Direction, pointer Point, c Container) (ResizeGesture, bool) {
	rh := r.RowHeight(c.Height)
	start, ok := r.CellAt(pointer, c, rh)
	if !ok {
		return ResizeGesture{}, false
	}
	return ResizeGesture{
		WidgetID:  w.ID,
		Direction: dir,
		Origin:    w.Rect(),
		StartCell: start,
		RowHeight: rh,
	}, true
}

// ResolveDrag returns the position the dragged widget would take under pointer,
// or false if the widget is gone or the spot is occupied. Other widgets are
// never moved to make room.
func (r *Resolver) ResolveDrag(g DragGesture, pointer Point, c Container, widgets []Widget) (Position, bool) {
	w, ok := Find(widgets, g.WidgetID)
	if !ok {
		return Position{}, false
	}

	p := c.Relative(pointer)
	pos, ok := PixelToGrid(p.X-g.Offset.X, p.Y-g.Offset.Y, c.Width, r.cfg, r.rowHeightFor(g.RowHeight, c))
	if !ok {
		return Position{}, false
	}
	pos.Column = clamp(pos.Column, 0, max(r.cfg.Columns-w.Size.Width, 0))

	cand := Rect{Position: pos, Size: w.Size}
	if cand.End() > MaxRows || HasAnyCollision(w.ID, cand, widgets) {
		return Position{}, false
	}
	r.rows.EnsureRows(cand.End())
	return pos, true
}

// ResolveResize returns the rectangle the resized widget would take under
// pointer, or false if the widget is gone or the rectangle is occupied.
// The delta is always measured from the gesture origin.
func (r *Resolver) ResolveResize(g ResizeGesture, pointer Point, c Container, widgets []Widget) (Rect, bool) {
	w, ok := Find(widgets, g.WidgetID)
	if !ok {
		return Rect{}, false
	}

	cell, ok := r.CellAt(pointer, c, g.RowHeight)
	if !ok {
		return Rect{}, false
	}
	cand, ok := r.resize(g.Origin, g.Direction, cell.Column-g.StartCell.Column, cell.Row-g.StartCell.Row, w)
	if !ok {
		return Rect{}, false
	}
	if cand.End() > MaxRows || HasAnyCollision(w.ID, cand, widgets) {
		return Rect{}, false
	}
	r.rows.EnsureRows(cand.End())
	return cand, true
}

// resize applies a cell delta to origin along dir and clamps the result.
func (r *Resolver) resize(o Rect, dir Direction, dx, dy int, w Widget) (Rect, bool) {
	col, width := o.Column, o.Width
	row, height := o.Row, o.Height
	if dir.Left {
		col += dx
		width -= dx
	} else if dir.Right {
		width += dx
	}
	if dir.Top {
		row += dy
		height -= dy
	} else if dir.Bottom {
		height += dy
	}

	lo, hi := w.Limits(r.cfg)
	width = clamp(width, lo.Width, hi.Width)
	height = clamp(height, lo.Height, hi.Height)

	// keep the opposite edge fixed
	if dir.Left {
		col = o.Right() + 1 - width
	}
	if dir.Top {
		row = o.Bottom() + 1 - height
	}
	if col < 0 {
		if dir.Left && width+col >= lo.Width {
			width += col
		}
		col = 0
	}
	if row < 0 {
		if dir.Top && height+row >= lo.Height {
			height += row
		}
		row = 0
	}

	width = min(width, r.cfg.Columns-col)
	if width < lo.Width || height < 1 {
		return Rect{}, false
	}
	return Rect{
		Position: Position{Column: col, Row: row},
		Size:     Size{Width: width, Height: height},
	}, true
}
