package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

const glyphs = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Render draws the board as one character per cell followed by a legend.
// Free cells are dots and cells claimed by more than one widget are '#'.
func Render(out io.Writer, cfg grid.Config, widgets []grid.Widget) error {
	rows := min(grid.TotalRows(widgets, cfg.MinRows), grid.MaxRows)
	cells := make([][]byte, rows)
	for r := range cells {
		cells[r] = []byte(strings.Repeat(".", cfg.Columns))
	}

	for i, w := range widgets {
		g := glyph(i)
		for r := w.Position.Row; r < w.Rect().End() && r < rows; r++ {
			for c := w.Position.Column; c <= w.Rect().Right() && c < cfg.Columns; c++ {
				if r < 0 || c < 0 {
					continue
				}
				if cells[r][c] != '.' {
					cells[r][c] = '#'
				} else {
					cells[r][c] = g
				}
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d columns x %d rows\n", cfg.Columns, rows)
	for _, line := range cells {
		b.Write(line)
		b.WriteByte('\n')
	}
	for i, w := range widgets {
		kind := w.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(&b, "  %c  %-24s %-10s (%d,%d) %dx%d\n", glyph(i), w.ID, kind,
			w.Position.Column, w.Position.Row, w.Size.Width, w.Size.Height)
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func glyph(i int) byte {
	return glyphs[i%len(glyphs)]
}
