package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wcatz/dashboard-grid/internal/board"
	"github.com/wcatz/dashboard-grid/internal/config"
	"github.com/wcatz/dashboard-grid/internal/grid"
	"github.com/wcatz/dashboard-grid/internal/store"
)

const testConfigYAML = `
grid:
  columns: 12
  gap: 16
  min_row_height: 60
  min_rows: 6
widgets:
  a: { kind: clock, position: { column: 0, row: 0 }, size: { width: 2, height: 2 } }
  b: { kind: notes, position: { column: 4, row: 0 }, size: { width: 2, height: 2 } }
`

// testContainer gives 88px cells with a 104px column pitch and, at the
// minimum row height, a 76px row pitch.
var testContainer = grid.Container{Width: 1264}

func cellPoint(col, row int) grid.Point {
	return grid.Point{X: float64(col)*104 + 10, Y: float64(row)*76 + 10}
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0644))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	seed, err := cfg.ResolveWidgets("")
	require.NoError(t, err)

	b, err := board.New(cfg.Grid, store.NewMemory(), nil)
	require.NoError(t, err)
	require.NoError(t, b.Load(context.Background(), seed))
	t.Cleanup(func() { b.Close() })

	s, err := New(cfg, b, Options{ConfigPath: path})
	require.NoError(t, err)
	return s, path
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBoardAndLayout(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/board", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[boardResponse](t, rec)
	assert.Len(t, resp.Widgets, 2)
	assert.Equal(t, 6, resp.TotalRows)
	assert.Equal(t, 12, resp.Config.Columns)
	assert.Equal(t, "idle", resp.Phase)

	rec = do(t, s, http.MethodGet, "/api/layout?viewport_height=800", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	layout := decode[layoutResponse](t, rec)
	assert.Equal(t, 6, layout.TotalRows)
	assert.Equal(t, 133.0, layout.RowHeight)

	// short viewports fall back to the minimum row height
	rec = do(t, s, http.MethodGet, "/api/layout?viewport_height=100", nil)
	assert.Equal(t, 60.0, decode[layoutResponse](t, rec).RowHeight)

	rec = do(t, s, http.MethodGet, "/api/layout?viewport_height=tall", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDragGesture(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "a", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "dragging", decode[gestureResponse](t, rec).Phase)

	// only one gesture at a time
	rec = do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "b", Pointer: cellPoint(4, 0), Container: testContainer,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// onto b: rejected, b never moves
	rec = do(t, s, http.MethodPost, "/api/gestures/move", gestureRequest{Pointer: cellPoint(4, 0)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[gestureResponse](t, rec).OK)

	rec = do(t, s, http.MethodPost, "/api/gestures/move", gestureRequest{Pointer: cellPoint(2, 3)})
	move := decode[gestureResponse](t, rec)
	assert.True(t, move.OK)
	assert.Equal(t, grid.Position{Column: 2, Row: 3}, move.Rect.Position)

	rec = do(t, s, http.MethodPost, "/api/gestures/end", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	end := decode[gestureResponse](t, rec)
	assert.True(t, end.OK)
	assert.Equal(t, "idle", end.Phase)
	assert.Equal(t, 6, end.TotalRows)

	w, ok := s.board.Get("a")
	require.True(t, ok)
	assert.Equal(t, grid.Position{Column: 2, Row: 3}, w.Position)
	b, _ := s.board.Get("b")
	assert.Equal(t, grid.Position{Column: 4, Row: 0}, b.Position)

	rec = do(t, s, http.MethodPost, "/api/gestures/end", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDragIgnoresFarPointer(t *testing.T) {
	s, _ := newTestServer(t)
	before, ok := s.board.Get("a")
	require.True(t, ok)

	rec := do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "a", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/api/gestures/move", gestureRequest{Pointer: grid.Point{X: 10, Y: 1e19}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[gestureResponse](t, rec).OK)

	rec = do(t, s, http.MethodPost, "/api/gestures/end", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 6, decode[gestureResponse](t, rec).TotalRows)

	after, _ := s.board.Get("a")
	assert.Equal(t, before.Position, after.Position)
}

func TestResizeGesture(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/gestures/resize", gestureRequest{
		WidgetID: "b", Handle: "se", Pointer: cellPoint(5, 1), Container: testContainer,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "resizing", decode[gestureResponse](t, rec).Phase)

	rec = do(t, s, http.MethodPost, "/api/gestures/move", gestureRequest{Pointer: cellPoint(7, 7)})
	move := decode[gestureResponse](t, rec)
	assert.True(t, move.OK)
	assert.Equal(t, grid.Size{Width: 4, Height: 8}, move.Rect.Size)
	// the grid grows while the gesture needs room
	assert.Equal(t, 8, move.TotalRows)

	rec = do(t, s, http.MethodPost, "/api/gestures/end", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 8, decode[gestureResponse](t, rec).TotalRows)

	w, _ := s.board.Get("b")
	assert.Equal(t, grid.Rect{
		Position: grid.Position{Column: 4, Row: 0},
		Size:     grid.Size{Width: 4, Height: 8},
	}, w.Rect())

	body := do(t, s, http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, body, `dashboard_grid_commits_total{gesture="resizing"} 1`)
	assert.Contains(t, body, "dashboard_grid_total_rows 8")
}

func TestGestureRejections(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/gestures/resize", gestureRequest{
		WidgetID: "a", Handle: "up", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "ghost", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/gestures/move", gestureRequest{Pointer: cellPoint(1, 1)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/gestures/drag", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGestureCancel(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "a", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	do(t, s, http.MethodPost, "/api/gestures/move", gestureRequest{Pointer: cellPoint(0, 9)})

	rec := do(t, s, http.MethodPost, "/api/gestures/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[gestureResponse](t, rec)
	assert.Equal(t, "idle", resp.Phase)
	assert.Equal(t, 6, resp.TotalRows)

	w, _ := s.board.Get("a")
	assert.Equal(t, grid.Position{}, w.Position)
}

func TestWidgetAddAndDelete(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/widgets", widgetRequest{Kind: "timer", Size: grid.Size{Width: 2, Height: 2}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	added := decode[grid.Widget](t, rec)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, grid.Position{Column: 2, Row: 0}, added.Position)

	rec = do(t, s, http.MethodPost, "/api/widgets", widgetRequest{
		ID: "c", Position: &grid.Position{Column: 0, Row: 10}, Size: grid.Size{Width: 3, Height: 2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 12, decode[boardResponse](t, do(t, s, http.MethodGet, "/api/board", nil)).TotalRows)

	rec = do(t, s, http.MethodPost, "/api/widgets", widgetRequest{
		ID: "d", Position: &grid.Position{Column: 1, Row: 1}, Size: grid.Size{Width: 2, Height: 2},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/widgets", widgetRequest{
		ID: "e", Position: &grid.Position{Column: 11, Row: 5}, Size: grid.Size{Width: 2, Height: 1},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/widgets", widgetRequest{ID: "a"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/widgets/c", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 6, decode[boardResponse](t, do(t, s, http.MethodGet, "/api/board", nil)).TotalRows)

	rec = do(t, s, http.MethodDelete, "/api/widgets/c", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := do(t, s, http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, body, "dashboard_grid_widgets 3")
}

func TestDeleteCancelsGesture(t *testing.T) {
	s, _ := newTestServer(t)

	do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "a", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	rec := do(t, s, http.MethodDelete, "/api/widgets/a", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	resp := decode[boardResponse](t, do(t, s, http.MethodGet, "/api/board", nil))
	assert.Equal(t, "idle", resp.Phase)
	assert.Len(t, resp.Widgets, 1)
}

func TestConfigReload(t *testing.T) {
	s, path := newTestServer(t)

	require.NoError(t, config.NewYAMLEditor(path).SetGridValue("columns", "16"))
	rec := do(t, s, http.MethodPost, "/api/config/reload", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 16, s.Config().Grid.Columns)
	assert.Equal(t, 16, decode[boardResponse](t, do(t, s, http.MethodGet, "/api/board", nil)).Config.Columns)

	// refused mid-gesture
	do(t, s, http.MethodPost, "/api/gestures/drag", gestureRequest{
		WidgetID: "a", Pointer: cellPoint(0, 0), Container: testContainer,
	})
	rec = do(t, s, http.MethodPost, "/api/config/reload", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	do(t, s, http.MethodPost, "/api/gestures/cancel", nil)

	// widget b no longer fits in four columns
	require.NoError(t, config.NewYAMLEditor(path).SetGridValue("columns", "4"))
	rec = do(t, s, http.MethodPost, "/api/config/reload", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.Equal(t, 16, s.Config().Grid.Columns)
}

func TestEventsStream(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if l := lines.Text(); strings.HasPrefix(l, "event: ") {
				return strings.TrimPrefix(l, "event: ")
			}
		}
		return ""
	}
	require.Equal(t, "connected", next())

	body, _ := json.Marshal(widgetRequest{ID: "late", Size: grid.Size{Width: 1, Height: 1}})
	post, err := http.Post(ts.URL+"/api/widgets", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusCreated, post.StatusCode)

	assert.Equal(t, "created", next())
}
