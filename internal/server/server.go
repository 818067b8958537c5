// Package server exposes dashboards and their variable dependencies over HTTP.
package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/dashvars/internal/engine"
	"github.com/leapstack-labs/dashvars/internal/loader"
	"github.com/leapstack-labs/dashvars/pkg/core"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// reloadDelay coalesces bursts of file events into one reload.
const reloadDelay = 100 * time.Millisecond

// Config holds configuration for the server.
type Config struct {
	DashboardsDir string
	Port          int
	Watch         bool

	// Source and Store are shared by every dashboard engine. Both are optional.
	Source      core.Source
	Store       core.Store
	Concurrency int
	Timeout     time.Duration

	Logger *slog.Logger
}

// Server serves the dashboards of one directory.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.RWMutex
	dashboards map[string]*core.Dashboard
	ids        []string
	loadErrs   []loader.FileError
	engines    map[string]*engine.Engine
}

// New creates a server. Call Reload before serving.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		cfg:        cfg,
		logger:     logger,
		dashboards: make(map[string]*core.Dashboard),
		engines:    make(map[string]*engine.Engine),
	}
}

// Reload rereads the dashboards directory. Engines of reloaded dashboards
// are discarded, so selections restart from the files. With a store
// configured, dashboards are saved so their runs can be recorded.
func (s *Server) Reload() error {
	result, err := loader.LoadDir(s.cfg.DashboardsDir, s.logger)
	if err != nil {
		return err
	}

	dashboards := make(map[string]*core.Dashboard, len(result.Dashboards))
	ids := make([]string, 0, len(result.Dashboards))
	for _, d := range result.Dashboards {
		dashboards[d.ID] = d
		ids = append(ids, d.ID)
		if s.cfg.Store == nil {
			continue
		}
		if err := s.cfg.Store.SaveDashboard(d); err != nil {
			s.logger.Warn("dashboard not saved, runs will not be recorded", "id", d.ID, "error", err)
		}
	}

	s.mu.Lock()
	s.dashboards = dashboards
	s.ids = ids
	s.loadErrs = result.Errors
	s.engines = make(map[string]*engine.Engine)
	s.mu.Unlock()
	return nil
}

// dashboard returns a loaded dashboard.
func (s *Server) dashboard(id string) (*core.Dashboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.dashboards[id]
	return d, ok
}

// engineFor returns the engine of a dashboard, creating it on first use.
func (s *Server) engineFor(id string) (*engine.Engine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if eng, ok := s.engines[id]; ok {
		return eng, true
	}
	d, ok := s.dashboards[id]
	if !ok {
		return nil, false
	}
	eng := engine.New(d, engine.Config{
		Source:      s.cfg.Source,
		Store:       s.cfg.Store,
		Concurrency: s.cfg.Concurrency,
		Timeout:     s.cfg.Timeout,
		Logger:      s.logger,
	})
	s.engines[id] = eng
	return eng, true
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/dashboards", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Get("/graph", s.handleGraph)
			r.Get("/runs", s.handleRuns)
			r.Post("/check", s.handleCheck)
			r.Post("/propagate", s.handlePropagate)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/select", s.handleSelect)
		})
	})
	return r
}

// requestLogger logs every request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Reload(); err != nil {
		return fmt.Errorf("failed to load dashboards: %w", err)
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.logger.Info("starting server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Port), "dashboards", len(s.ids))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.cfg.Watch {
		watcher, err := s.newWatcher()
		if err != nil {
			s.logger.Error("failed to watch dashboards directory", "error", err)
		} else {
			eg.Go(func() error {
				return s.watchLoop(egctx, watcher)
			})
		}
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// newWatcher watches the dashboards directory and its subdirectories.
func (s *Server) newWatcher() (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watchDirRecursive(watcher, s.cfg.DashboardsDir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return watcher, nil
}

// watchLoop reloads the dashboards when a dashboard file changes. It owns
// watcher and closes it on return.
func (s *Server) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer func() { _ = watcher.Close() }()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDirRecursive(watcher, event.Name); err != nil {
						s.logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
				}
			}
			if !loader.IsDashboardFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(reloadDelay, func() {
				s.logger.Debug("dashboard changed, reloading", "file", name)
				if err := s.Reload(); err != nil {
					s.logger.Error("reload failed", "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

// watchDirRecursive adds a directory and all subdirectories to the watcher.
func watchDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
