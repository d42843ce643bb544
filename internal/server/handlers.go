package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/wcatz/dashboard-grid/internal/board"
	"github.com/wcatz/dashboard-grid/internal/grid"
)

type boardResponse struct {
	Widgets   []grid.Widget `json:"widgets"`
	TotalRows int           `json:"totalRows"`
	Config    grid.Config   `json:"config"`
	Phase     string        `json:"phase"`
}

type layoutResponse struct {
	TotalRows int     `json:"totalRows"`
	RowHeight float64 `json:"rowHeight"`
}

type widgetRequest struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	Position *grid.Position `json:"position"`
	Size     grid.Size      `json:"size"`
	MinSize  *grid.Size     `json:"minSize"`
	MaxSize  *grid.Size     `json:"maxSize"`
}

type gestureRequest struct {
	WidgetID  string         `json:"widgetId"`
	Handle    string         `json:"handle"`
	Pointer   grid.Point     `json:"pointer"`
	Container grid.Container `json:"container"`
}

type gestureResponse struct {
	OK        bool      `json:"ok"`
	Rect      grid.Rect `json:"rect"`
	Phase     string    `json:"phase"`
	TotalRows int       `json:"totalRows"`
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	s.gmu.Lock()
	resp := boardResponse{
		Widgets:   s.board.Widgets(),
		TotalRows: s.ctrl.TotalRows(),
		Config:    s.ctrl.Config(),
		Phase:     s.ctrl.Phase().String(),
	}
	s.gmu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	vh := 0.0
	if v := r.URL.Query().Get("viewport_height"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid viewport_height '%s'", v))
			return
		}
		vh = f
	}
	s.gmu.Lock()
	resp := layoutResponse{TotalRows: s.ctrl.TotalRows(), RowHeight: s.ctrl.RowHeight(vh)}
	s.gmu.Unlock()
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWidgetAdd(w http.ResponseWriter, r *http.Request) {
	var req widgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	widget := grid.Widget{
		ID:      req.ID,
		Kind:    req.Kind,
		Size:    req.Size,
		MinSize: req.MinSize,
		MaxSize: req.MaxSize,
	}

	s.gmu.Lock()
	defer s.gmu.Unlock()

	var err error
	if req.Position != nil {
		widget.Position = *req.Position
		widget, err = s.board.Add(r.Context(), widget)
	} else {
		widget, err = s.board.Place(r.Context(), widget)
	}
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.ctrl.WidgetAdded(widget)
	s.metrics.Widgets(len(s.board.Widgets()))
	s.writeJSON(w, http.StatusCreated, widget)
}

func (s *Server) handleWidgetDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.gmu.Lock()
	defer s.gmu.Unlock()

	if err := s.board.Remove(r.Context(), id); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.ctrl.WidgetRemoved(id)
	s.metrics.Widgets(len(s.board.Widgets()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	s.gmu.Lock()
	defer s.gmu.Unlock()

	if !s.ctrl.BeginDrag(req.WidgetID, req.Pointer, req.Container) {
		s.rejectBegin(w, req.WidgetID)
		return
	}
	s.writeJSON(w, http.StatusOK, s.gestureState(true))
}

func (s *Server) handleResizeStart(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	dir, err := grid.ParseDirection(req.Handle)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.gmu.Lock()
	defer s.gmu.Unlock()

	if !s.ctrl.BeginResize(req.WidgetID, dir, req.Pointer, req.Container) {
		s.rejectBegin(w, req.WidgetID)
		return
	}
	s.writeJSON(w, http.StatusOK, s.gestureState(true))
}

func (s *Server) handleGestureMove(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	s.gmu.Lock()
	defer s.gmu.Unlock()

	if s.ctrl.Phase() == grid.Idle {
		s.writeError(w, http.StatusConflict, grid.ErrNoGesture.Error())
		return
	}
	_, ok := s.ctrl.Move(req.Pointer)
	s.writeJSON(w, http.StatusOK, s.gestureState(ok))
}

func (s *Server) handleGestureEnd(w http.ResponseWriter, r *http.Request) {
	s.gmu.Lock()
	defer s.gmu.Unlock()

	if s.ctrl.Phase() == grid.Idle {
		s.writeError(w, http.StatusConflict, grid.ErrNoGesture.Error())
		return
	}
	rect, ok, err := s.ctrl.End()
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, gestureResponse{
		OK:        ok,
		Rect:      rect,
		Phase:     s.ctrl.Phase().String(),
		TotalRows: s.ctrl.TotalRows(),
	})
}

func (s *Server) handleGestureCancel(w http.ResponseWriter, r *http.Request) {
	s.gmu.Lock()
	defer s.gmu.Unlock()

	s.ctrl.Cancel()
	s.writeJSON(w, http.StatusOK, s.gestureState(false))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	events := s.board.Subscribe(ctx)
	if err := s.sendSSEEvent(w, flusher, "connected", map[string]string{"status": "connected"}); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.sendSSEEvent(w, flusher, string(ev.Type), ev.Payload); err != nil {
				s.logger.Debug("event client disconnected", "error", err)
				return
			}
		}
	}
}

func (s *Server) handleConfigReload(w http.ResponseWriter, r *http.Request) {
	if err := s.ReloadConfig(); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "config reloaded"})
}

// gestureState reports the controller state. Callers hold gmu.
func (s *Server) gestureState(ok bool) gestureResponse {
	resp := gestureResponse{
		OK:        ok,
		Phase:     s.ctrl.Phase().String(),
		TotalRows: s.ctrl.TotalRows(),
	}
	if s.ctrl.Phase() != grid.Idle {
		resp.Rect = s.ctrl.Last()
	}
	return resp
}

// rejectBegin explains why a gesture could not start. Callers hold gmu.
func (s *Server) rejectBegin(w http.ResponseWriter, id string) {
	if _, ok := s.board.Get(id); !ok {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("widget '%s' not found", id))
		return
	}
	s.writeError(w, http.StatusConflict, grid.ErrGestureActive.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrWidgetNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrDuplicateWidget),
		errors.Is(err, board.ErrOverlap),
		errors.Is(err, grid.ErrGestureActive):
		return http.StatusConflict
	case errors.Is(err, board.ErrOutOfBounds),
		errors.Is(err, grid.ErrInvalidConfig):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to write JSON response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (s *Server) sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("failed to marshal event", "error", err)
		return nil
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	flusher.Flush()
	return nil
}
