// Package grid maps pointer gestures onto a fixed-width, downward-growing
// widget grid and keeps widget rectangles from overlapping.
package grid

import "math"

// Position is the top-left cell of a widget, in grid units.
type Position struct {
	Column int `yaml:"column" json:"column"`
	Row    int `yaml:"row" json:"row"`
}

// Size is a widget footprint in grid cells.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Rect is an occupied rectangle: a position plus a footprint.
type Rect struct {
	Position `yaml:",inline"`
	Size     `yaml:",inline"`
}

// Left returns the first occupied column.
func (r Rect) Left() int { return r.Column }

// Right returns the last occupied column (inclusive).
func (r Rect) Right() int { return r.Column + r.Width - 1 }

// Top returns the first occupied row.
func (r Rect) Top() int { return r.Row }

// Bottom returns the last occupied row (inclusive).
func (r Rect) Bottom() int { return r.Row + r.Height - 1 }

// End returns the first row below the rectangle.
func (r Rect) End() int { return r.Row + r.Height }

// Point is a pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Container is the pixel box the grid is drawn into, in client coordinates.
// Height is the viewport height used to stretch rows.
type Container struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Relative translates a client-space point into the container's frame.
func (c Container) Relative(p Point) Point {
	return Point{X: p.X - c.Left, Y: p.Y - c.Top}
}

// CellWidth returns the pixel width of one column.
func CellWidth(containerWidth float64, cfg Config) float64 {
	content := containerWidth - 2*cfg.Gap
	return (content - cfg.Gap*float64(cfg.Columns-1)) / float64(cfg.Columns)
}

// MaxRows is the deepest a board may grow.
const MaxRows = 10000

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// PixelToGrid maps a container-relative pixel to the cell under it. Columns
// are clamped on both sides; rows only from below since the board grows downward.
// It returns false when a coordinate is not finite or lands at or past MaxRows.
func PixelToGrid(x, y, containerWidth float64, cfg Config, rowHeight float64) (Position, bool) {
	col, ok := cellIndex(x, CellWidth(containerWidth, cfg)+cfg.Gap)
	if !ok {
		return Position{}, false
	}
	row, ok := cellIndex(y, rowHeight+cfg.Gap)
	if !ok || row >= MaxRows {
		return Position{}, false
	}
	return Position{Column: clamp(col, 0, cfg.Columns-1), Row: max(row, 0)}, true
}

// cellIndex floors v/pitch, saturating at ±MaxRows before the int conversion.
func cellIndex(v, pitch float64) (int, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if pitch <= 0 {
		return 0, true
	}
	f := math.Floor(v / pitch)
	if math.IsNaN(f) {
		return 0, false
	}
	return int(math.Max(-MaxRows, math.Min(f, MaxRows))), true
}

// GridToPixel returns the top-left pixel of a cell in the frame PixelToGrid reads.
func GridToPixel(pos Position, containerWidth float64, cfg Config, rowHeight float64) (float64, float64) {
	x := float64(pos.Column) * (CellWidth(containerWidth, cfg) + cfg.Gap)
	y := float64(pos.Row) * (rowHeight + cfg.Gap)
	return x, y
}

// CellCenter returns the pixel center of a cell.
func CellCenter(pos Position, containerWidth float64, cfg Config, rowHeight float64) (float64, float64) {
	x, y := GridToPixel(pos, containerWidth, cfg, rowHeight)
	return x + CellWidth(containerWidth, cfg)/2, y + rowHeight/2
}

// RowHeight stretches rows to fill the viewport when there are few of them and
// falls back to the configured minimum otherwise.
func RowHeight(viewportHeight float64, totalRows int, cfg Config) float64 {
	if totalRows < 1 {
		totalRows = 1
	}
	h := math.Floor((viewportHeight - cfg.ChromeHeight) / float64(totalRows))
	return math.Max(cfg.MinRowHeight, h)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
