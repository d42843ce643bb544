// Package server exposes a board and its gesture controller over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/wcatz/dashboard-grid/internal/board"
	"github.com/wcatz/dashboard-grid/internal/config"
	"github.com/wcatz/dashboard-grid/internal/grid"
	"github.com/wcatz/dashboard-grid/internal/metrics"
)

// ErrNoConfigFile is returned by ReloadConfig when the server was built
// without a config path.
var ErrNoConfigFile = errors.New("server has no config file")

// Options carries the optional server settings.
type Options struct {
	// ConfigPath is re-read by ReloadConfig.
	ConfigPath string
	// Overrides are the CLI overrides reapplied on every reload.
	Overrides map[string]string
	Logger    *slog.Logger
}

// Server holds the HTTP server state and config.
type Server struct {
	cfg       *config.Config
	cfgPath   string
	overrides map[string]string
	mu        sync.RWMutex

	board   *board.Board
	metrics *metrics.Collector

	// gmu serializes every controller call.
	gmu  sync.Mutex
	ctrl *grid.Controller

	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a server driving gestures on b.
func New(cfg *config.Config, b *board.Board, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctrl, err := grid.NewController(b.Config(), b, b.Commit, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gesture controller: %w", err)
	}
	collector := metrics.New()
	ctrl.SetObserver(collector)
	collector.Widgets(len(b.Widgets()))

	s := &Server{
		cfg:       cfg,
		cfgPath:   opts.ConfigPath,
		overrides: opts.Overrides,
		board:     b,
		metrics:   collector,
		ctrl:      ctrl,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

// ReloadConfig reloads the YAML config from disk and applies its grid
// settings. It is refused while a gesture is in progress.
func (s *Server) ReloadConfig() error {
	if s.cfgPath == "" {
		return ErrNoConfigFile
	}
	cfg, err := config.Load(s.cfgPath, s.overrides)
	if err != nil {
		return err
	}

	s.gmu.Lock()
	defer s.gmu.Unlock()
	if s.ctrl.Phase() != grid.Idle {
		return grid.ErrGestureActive
	}
	if err := s.board.SetConfig(cfg.Grid); err != nil {
		return err
	}
	if err := s.ctrl.SetConfig(cfg.Grid); err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	s.logger.Info("config reloaded", "path", s.cfgPath, "columns", cfg.Grid.Columns)
	return nil
}

// Config returns the current config (read-locked).
func (s *Server) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// WatchConfig reloads the config whenever the file changes, until ctx is done.
func (s *Server) WatchConfig(ctx context.Context) error {
	if s.cfgPath == "" {
		return ErrNoConfigFile
	}
	w, err := config.NewWatcher(s.cfgPath, config.DefaultDebounce, s.logger)
	if err != nil {
		return err
	}
	return w.Watch(ctx, func() {
		if err := s.ReloadConfig(); err != nil {
			s.logger.Warn("config reload failed", "path", s.cfgPath, "error", err)
		}
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s,
		// event streams end with ctx instead of holding up Shutdown
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	fmt.Printf("dashboard-grid API: http://localhost%s\n", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
