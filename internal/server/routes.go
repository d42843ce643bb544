package server

import "time"

const shutdownTimeout = 5 * time.Second

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /api/board", s.handleBoard)
	s.mux.HandleFunc("GET /api/layout", s.handleLayout)
	s.mux.HandleFunc("POST /api/widgets", s.handleWidgetAdd)
	s.mux.HandleFunc("DELETE /api/widgets/{id}", s.handleWidgetDelete)

	// gestures
	s.mux.HandleFunc("POST /api/gestures/drag", s.handleDragStart)
	s.mux.HandleFunc("POST /api/gestures/resize", s.handleResizeStart)
	s.mux.HandleFunc("POST /api/gestures/move", s.handleGestureMove)
	s.mux.HandleFunc("POST /api/gestures/end", s.handleGestureEnd)
	s.mux.HandleFunc("POST /api/gestures/cancel", s.handleGestureCancel)

	s.mux.HandleFunc("GET /api/events", s.handleEvents)
	s.mux.HandleFunc("POST /api/config/reload", s.handleConfigReload)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}
