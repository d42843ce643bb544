// Package simulate replays scripted pointer gestures through a grid controller.
package simulate

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wcatz/dashboard-grid/internal/grid"
)

// Script is a sequence of gestures played against one container.
type Script struct {
	Container grid.Container `yaml:"container"`
	Gestures  []Gesture      `yaml:"gestures"`
}

// Gesture is one drag or resize. Pointer positions are given as cells and
// converted to the pixel center of that cell.
type Gesture struct {
	Drag   string          `yaml:"drag"`
	Resize string          `yaml:"resize"`
	Handle string          `yaml:"handle"`
	From   grid.Position   `yaml:"from"`
	Path   []grid.Position `yaml:"path"`
	Cancel bool            `yaml:"cancel"`
}

// WidgetID returns the widget the gesture acts on.
func (g Gesture) WidgetID() string {
	if g.Drag != "" {
		return g.Drag
	}
	return g.Resize
}

// Result is the outcome of one gesture. Accepted reports that the gesture
// ended on a valid rectangle, which is then the widget's rectangle.
type Result struct {
	Widget   string
	Kind     string
	Rect     grid.Rect
	Accepted bool
	Err      error
}

// LoadScript reads a script file.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return ParseScript(data)
}

// ParseScript parses and checks a YAML script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if s.Container.Width <= 0 {
		return nil, fmt.Errorf("script container needs a positive width")
	}
	for i, g := range s.Gestures {
		switch {
		case g.Drag == "" && g.Resize == "":
			return nil, fmt.Errorf("gesture %d: needs drag or resize", i+1)
		case g.Drag != "" && g.Resize != "":
			return nil, fmt.Errorf("gesture %d: drag and resize are exclusive", i+1)
		case g.Resize != "":
			if _, err := grid.ParseDirection(g.Handle); err != nil {
				return nil, fmt.Errorf("gesture %d: %w", i+1, err)
			}
		}
	}
	return &s, nil
}

// Runner plays scripts against a controller.
type Runner struct {
	ctrl   *grid.Controller
	logger *slog.Logger
}

// NewRunner creates a runner for ctrl.
func NewRunner(ctrl *grid.Controller, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{ctrl: ctrl, logger: logger}
}

// Run plays every gesture in order. A gesture that cannot start or whose
// commit fails is reported in its Result and does not stop the run.
func (r *Runner) Run(ctx context.Context, s *Script) ([]Result, error) {
	results := make([]Result, 0, len(s.Gestures))
	for _, g := range s.Gestures {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := r.play(ctx, s.Container, g)
		if res.Err != nil {
			r.logger.Warn("gesture failed", "widget", res.Widget, "gesture", res.Kind, "error", res.Err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) play(ctx context.Context, c grid.Container, g Gesture) Result {
	res := Result{Widget: g.WidgetID(), Kind: "drag"}
	cfg := r.ctrl.Config()
	rh := r.ctrl.RowHeight(c.Height)
	at := func(p grid.Position) grid.Point {
		x, y := grid.CellCenter(p, c.Width, cfg, rh)
		return grid.Point{X: x + c.Left, Y: y + c.Top}
	}

	var started bool
	if g.Drag != "" {
		started = r.ctrl.BeginDrag(g.Drag, at(g.From), c)
	} else {
		res.Kind = "resize"
		dir, _ := grid.ParseDirection(g.Handle)
		started = r.ctrl.BeginResize(g.Resize, dir, at(g.From), c)
	}
	if !started {
		res.Err = fmt.Errorf("could not start %s on '%s'", res.Kind, res.Widget)
		return res
	}

	events := make(chan grid.PointerEvent, len(g.Path)+1)
	for _, p := range g.Path {
		events <- grid.PointerEvent{Kind: grid.PointerMove, Point: at(p)}
	}
	if g.Cancel {
		events <- grid.PointerEvent{Kind: grid.PointerCancel}
	} else {
		events <- grid.PointerEvent{Kind: grid.PointerUp}
	}
	close(events)

	rect, ok, err := r.ctrl.Track(ctx, events)
	res.Rect = rect
	res.Accepted = ok
	res.Err = err
	return res
}
