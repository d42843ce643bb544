package grid

// TotalRows derives the row count needed to contain every widget.
func TotalRows(widgets []Widget, minRows int) int {
	total := minRows
	for _, w := range widgets {
		if end := w.Rect().End(); end > total {
			total = end
		}
	}
	return total
}

// RowTracker holds the visible row count. It only grows through EnsureRows;
// Recompute is the single way to shrink it.
type RowTracker struct {
	minRows int
	total   int
}

// NewRowTracker creates a tracker with at least minRows rows.
func NewRowTracker(minRows int) *RowTracker {
	if minRows < 1 {
		minRows = 1
	}
	return &RowTracker{minRows: minRows, total: minRows}
}

// Total returns the current row count.
func (rt *RowTracker) Total() int {
	return rt.total
}

// EnsureRows grows the grid so that requiredEnd rows are visible and returns
// the new total. It never shrinks.
func (rt *RowTracker) EnsureRows(requiredEnd int) int {
	rt.total = max(rt.total, rt.minRows, requiredEnd)
	return rt.total
}

// Recompute derives the row count from scratch.
func (rt *RowTracker) Recompute(widgets []Widget) int {
	rt.total = TotalRows(widgets, rt.minRows)
	return rt.total
}

// SetMinRows changes the floor and returns the new total.
func (rt *RowTracker) SetMinRows(minRows int) int {
	if minRows < 1 {
		minRows = 1
	}
	rt.minRows = minRows
	rt.total = max(rt.total, minRows)
	return rt.total
}
