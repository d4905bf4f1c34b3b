// Package http serves the operational endpoints of the worker manager:
// liveness, readiness against its backing services, and prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nyc-kinder-workers/internal/common/logger"
)

const readinessTimeout = 2 * time.Second

// Checker is a dependency the service cannot work without.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Server struct {
	httpServer *stdhttp.Server
	router     chi.Router
	checks     map[string]Checker
	logger     logger.Logger
}

func NewServer(addr string, checks map[string]Checker, log logger.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		checks: checks,
		logger: log,
	}
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ready", s.handleReady)
	s.router.Handle("/metrics", promhttp.Handler())

	s.httpServer = &stdhttp.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("ops server listening", map[string]interface{}{"addr": s.httpServer.Addr})
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
	writeJSON(w, stdhttp.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (s *Server) handleReady(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := readiness{Status: "ready", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := s.checks[name].Ping(ctx); err != nil {
			resp.Status = "not ready"
			resp.Checks[name] = err.Error()
			s.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err,
			})
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := stdhttp.StatusOK
	if resp.Status != "ready" {
		status = stdhttp.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w stdhttp.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
