package grid

import "testing"

func rect(col, row, w, h int) Rect {
	return Rect{Position: Position{Column: col, Row: row}, Size: Size{Width: w, Height: h}}
}

func widget(id string, col, row, w, h int) Widget {
	return Widget{ID: id, Position: Position{Column: col, Row: row}, Size: Size{Width: w, Height: h}}
}

func TestCollides(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want bool
	}{
		{"identical", rect(0, 0, 2, 2), rect(0, 0, 2, 2), true},
		{"adjacent columns", rect(0, 0, 2, 2), rect(2, 0, 2, 2), false},
		{"adjacent rows", rect(0, 0, 2, 2), rect(0, 2, 2, 2), false},
		{"one shared column", rect(1, 0, 2, 2), rect(2, 0, 2, 2), true},
		{"corner touch", rect(0, 0, 2, 2), rect(1, 1, 2, 2), true},
		{"diagonal apart", rect(0, 0, 2, 2), rect(2, 2, 1, 1), false},
		{"contained", rect(0, 0, 6, 6), rect(2, 2, 1, 1), true},
	}
	for _, tc := range tests {
		if got := Collides(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: Collides = %v, want %v", tc.name, got, tc.want)
		}
		if got := Collides(tc.b, tc.a); got != tc.want {
			t.Errorf("%s (swapped): Collides = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHasAnyCollisionSelfExclusion(t *testing.T) {
	widgets := []Widget{widget("a", 0, 0, 2, 2), widget("b", 4, 0, 2, 2)}

	if HasAnyCollision("a", rect(0, 0, 2, 2), widgets) {
		t.Error("widget collides with itself at its own position")
	}
	if !HasAnyCollision("a", rect(3, 0, 2, 2), widgets) {
		t.Error("expected collision with b")
	}
	if HasAnyCollision("a", rect(0, 3, 2, 2), widgets) {
		t.Error("unexpected collision below both widgets")
	}
}

func TestOverlaps(t *testing.T) {
	widgets := []Widget{
		widget("a", 0, 0, 2, 2),
		widget("b", 1, 1, 2, 2),
		widget("c", 6, 0, 2, 2),
	}
	got := Overlaps(widgets)
	if len(got) != 1 || got[0] != (Overlap{A: "a", B: "b"}) {
		t.Errorf("Overlaps = %+v, want [{a b}]", got)
	}
}

func TestWidgetLimits(t *testing.T) {
	cfg := DefaultConfig()

	lo, hi := widget("a", 0, 0, 1, 1).Limits(cfg)
	if lo != (Size{1, 1}) {
		t.Errorf("default min = %+v, want {1 1}", lo)
	}
	if hi.Width != 12 {
		t.Errorf("default max width = %d, want 12", hi.Width)
	}

	w := widget("b", 0, 0, 3, 3)
	w.MinSize = &Size{Width: 2, Height: 2}
	w.MaxSize = &Size{Width: 20, Height: 4}
	lo, hi = w.Limits(cfg)
	if lo != (Size{2, 2}) {
		t.Errorf("min = %+v, want {2 2}", lo)
	}
	if hi != (Size{12, 4}) {
		t.Errorf("max = %+v, want {12 4}", hi)
	}
}

func TestWidgetCheckBounds(t *testing.T) {
	cfg := DefaultConfig()
	if err := widget("a", 10, 0, 2, 1).CheckBounds(cfg); err != nil {
		t.Errorf("CheckBounds() error: %v", err)
	}
	if err := widget("a", 11, 0, 2, 1).CheckBounds(cfg); err == nil {
		t.Error("expected error for widget past the right edge")
	}
	if err := widget("a", 0, 0, 0, 1).CheckBounds(cfg); err == nil {
		t.Error("expected error for empty widget")
	}
}
