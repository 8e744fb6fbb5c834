// Package server hosts the exploration pipeline over HTTP. Uploaded tables
// live in memory for the life of the process.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KaramelBytes/tabloom-cli/internal/config"
	"github.com/KaramelBytes/tabloom-cli/internal/dataset"
	"github.com/KaramelBytes/tabloom-cli/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP host for dataset exploration.
type Server struct {
	cfg    *config.Global
	store  *Store
	cache  *dataset.Cache
	router *chi.Mux
	server *http.Server
}

// New creates a Server from cfg.
func New(cfg *config.Global) *Server {
	s := &Server{
		cfg:    cfg,
		store:  NewStore(cfg.Server.MaxDatasets),
		cache:  dataset.NewCache(cfg.Server.CacheSize),
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	if sec := s.cfg.Server.RequestTimeoutSec; sec > 0 {
		s.router.Use(middleware.Timeout(time.Duration(sec) * time.Second))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api/datasets", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleUpload)
		r.Get("/{id}", s.handleSchema)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}/explore", s.handleExplore)
		r.Post("/{id}/reset", s.handleReset)
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("server starting", "addr", s.cfg.Server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// writeJSON encodes v before committing status, so an unencodable value
// becomes a 500. It reports whether v was written.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "encode response: "+err.Error())
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(b, '\n')); err != nil {
		logging.FromContext(r.Context()).Debug("write response", "error", err)
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if status >= http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "status", status, "error", message)
	} else {
		logging.FromContext(r.Context()).Debug("request rejected", "status", status, "error", message)
	}
	writeJSON(w, r, status, map[string]string{"error": message})
}
