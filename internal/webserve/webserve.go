// SPDX-License-Identifier: MIT

// Package webserve exposes rendered reports over HTTP. It serves the
// report index and the per-cohort report pages from the results root,
// watches that directory for new reports, and rebuilds the index page
// when one lands. The index renderer writes atomically, so clients never
// observe a partial page.
package webserve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/talosproj/talos/internal/config"
	"github.com/talosproj/talos/internal/log"
	"github.com/talosproj/talos/internal/report"
	"github.com/talosproj/talos/internal/version"
)

const shutdownTimeout = 10 * time.Second

// Server serves the results root and keeps its index page current.
type Server struct {
	cfg    config.ServeConfig
	router *chi.Mux
	logger zerolog.Logger

	mu   sync.Mutex
	addr string
}

// New validates the serve configuration and prepares the router. The
// results root is created if it does not exist yet so a fresh deployment
// can start serving before the first pipeline run completes.
func New(cfg config.ServeConfig) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, errors.New("webserve: listen address not configured")
	}
	if cfg.ResultsRoot == "" {
		return nil, errors.New("webserve: results root not configured")
	}
	if err := os.MkdirAll(cfg.ResultsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("webserve: create results root: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		logger: log.WithComponent("serve"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.recoverer)
	r.Use(requestID)
	r.Use(tracing)
	r.Use(metricsMiddleware)
	r.Use(s.requestLogger)

	// Probes and scrapes stay outside the rate-limited group.
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			r.Use(rateLimit(s.cfg.RateLimit))
		}
		r.Get("/", redirectTo("/reports/index.html", http.StatusTemporaryRedirect))
		r.Get("/reports", redirectTo("/reports/index.html", http.StatusMovedPermanently))
		r.Handle("/reports/*", http.StripPrefix("/reports/", s.reportServer()))
	})

	return r
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound listen address once Run has started the
// listener, or the empty string before that.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run renders the index once, starts the results watcher and serves HTTP
// until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := report.RenderIndex(s.cfg.ResultsRoot); err != nil {
		return fmt.Errorf("webserve: initial index render: %w", err)
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watcherDone, err := s.watchResults(watchCtx)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		stopWatch()
		<-watcherDone
		return fmt.Errorf("webserve: listen on %s: %w", s.cfg.ListenAddr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("addr", s.Addr()).
			Str("results_root", s.cfg.ResultsRoot).
			Msg("report server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("webserve: serve: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		stopWatch()
		<-watcherDone
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("server shutdown error")
			_ = srv.Close()
			<-watcherDone
			return fmt.Errorf("webserve: shutdown: %w", err)
		}
		<-watcherDone
		s.logger.Info().Msg("report server stopped")
		return nil
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func redirectTo(path string, code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, path, code)
	}
}
