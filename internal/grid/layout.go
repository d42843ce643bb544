package grid

// LayoutEngine flows widgets left to right in the order they are placed,
// wrapping at Columns and stepping around reserved rectangles.
type LayoutEngine struct {
	Columns   int
	cursorX   int
	cursorY   int
	rowHeight int
	taken     []Rect
}

// NewLayoutEngine creates a layout engine for a grid of the given width.
func NewLayoutEngine(columns int) *LayoutEngine {
	if columns < 1 {
		columns = 1
	}
	return &LayoutEngine{Columns: columns}
}

// Reset clears the cursor and every reservation.
func (le *LayoutEngine) Reset() {
	le.cursorX = 0
	le.cursorY = 0
	le.rowHeight = 0
	le.taken = nil
}

// Reserve marks r as occupied so Place steps around it.
func (le *LayoutEngine) Reserve(r Rect) {
	le.taken = append(le.taken, r)
}

// Place positions a widget of the given footprint at the next free spot.
func (le *LayoutEngine) Place(width, height int) Position {
	width = clamp(width, 1, le.Columns)
	height = max(height, 1)
	for {
		if le.cursorX+width > le.Columns {
			le.wrap()
		}
		cand := Rect{
			Position: Position{Column: le.cursorX, Row: le.cursorY},
			Size:     Size{Width: width, Height: height},
		}
		if !le.blocked(cand) {
			le.taken = append(le.taken, cand)
			le.cursorX += width
			if height > le.rowHeight {
				le.rowHeight = height
			}
			return cand.Position
		}
		le.cursorX++
	}
}

// FinishSection advances past the tallest widget in the current line.
func (le *LayoutEngine) FinishSection() {
	if le.cursorX > 0 {
		le.wrap()
	}
}

func (le *LayoutEngine) wrap() {
	le.cursorY += max(le.rowHeight, 1)
	le.cursorX = 0
	le.rowHeight = 0
}

func (le *LayoutEngine) blocked(cand Rect) bool {
	for _, r := range le.taken {
		if Collides(cand, r) {
			return true
		}
	}
	return false
}

// FirstFit returns the top-most, then left-most, position where a widget of
// size fits without overlapping widgets.
func FirstFit(widgets []Widget, size Size, cfg Config) Position {
	size.Width = clamp(size.Width, 1, cfg.Columns)
	size.Height = max(size.Height, 1)
	limit := TotalRows(widgets, 0)
	for row := 0; row <= limit; row++ {
		for col := 0; col+size.Width <= cfg.Columns; col++ {
			cand := Rect{Position: Position{Column: col, Row: row}, Size: size}
			if !HasAnyCollision("", cand, widgets) {
				return cand.Position
			}
		}
	}
	return Position{Column: 0, Row: limit}
}
