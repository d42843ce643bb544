package grid

// Collides reports whether two rectangles share at least one cell.
func Collides(a, b Rect) bool {
	return !(a.Right() < b.Left() ||
		a.Left() > b.Right() ||
		a.Bottom() < b.Top() ||
		a.Top() > b.Bottom())
}

// HasAnyCollision reports whether r overlaps any widget other than id.
func HasAnyCollision(id string, r Rect, widgets []Widget) bool {
	for _, w := range widgets {
		if w.ID == id {
			continue
		}
		if Collides(r, w.Rect()) {
			return true
		}
	}
	return false
}

// Overlap names two widgets whose rectangles intersect.
type Overlap struct {
	A, B string
}

// Overlaps returns every intersecting pair on a board.
func Overlaps(widgets []Widget) []Overlap {
	var out []Overlap
	for i := 0; i < len(widgets); i++ {
		for j := i + 1; j < len(widgets); j++ {
			if Collides(widgets[i].Rect(), widgets[j].Rect()) {
				out = append(out, Overlap{A: widgets[i].ID, B: widgets[j].ID})
			}
		}
	}
	return out
}
