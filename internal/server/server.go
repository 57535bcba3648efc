// Package server provides the local preview HTTP server.
//
// The server exposes the rendered site from public/ with caching disabled so
// browsers always pick up the latest rebuild, plus a health endpoint and a
// small JSON status API. When metrics are enabled a second listener serves
// the Prometheus registry.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

// Server serves the rendered site for local preview.
type Server struct {
	cfg      *config.Config
	registry *prom.Registry
	start    time.Time

	site    *http.Server
	metrics *http.Server

	siteLn    net.Listener
	metricsLn net.Listener
}

// New creates a preview server for the given site. The registry may be nil,
// in which case the metrics listener stays disabled regardless of config.
func New(cfg *config.Config, registry *prom.Registry) *Server {
	return &Server{cfg: cfg, registry: registry}
}

func (s *Server) metricsEnabled() bool {
	return s.cfg.Serve.Metrics && s.registry != nil
}

// Start binds all configured listeners and begins serving. Binding happens
// up front so port conflicts surface as a single aggregated error instead of
// a half-started server.
func (s *Server) Start(ctx context.Context) error {
	s.start = time.Now()

	lc := net.ListenConfig{}
	var bindErrs []error

	siteLn, err := lc.Listen(ctx, "tcp", s.cfg.Serve.Listen)
	if err != nil {
		bindErrs = append(bindErrs, fmt.Errorf("preview listener on %s: %w", s.cfg.Serve.Listen, err))
	}
	var metricsLn net.Listener
	if s.metricsEnabled() {
		metricsLn, err = lc.Listen(ctx, "tcp", s.cfg.Serve.MetricsListen)
		if err != nil {
			bindErrs = append(bindErrs, fmt.Errorf("metrics listener on %s: %w", s.cfg.Serve.MetricsListen, err))
		}
	}
	if len(bindErrs) > 0 {
		if siteLn != nil {
			_ = siteLn.Close()
		}
		if metricsLn != nil {
			_ = metricsLn.Close()
		}
		return errors.Join(bindErrs...)
	}

	s.siteLn = siteLn
	s.site = &http.Server{
		Handler:      chain(s.siteMux()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.serveOn("preview", s.site, siteLn)
	slog.Info("Preview server listening", "addr", siteLn.Addr().String())

	if metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
		s.metricsLn = metricsLn
		s.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		s.serveOn("metrics", s.metrics, metricsLn)
		slog.Info("Metrics listening", "addr", metricsLn.Addr().String())
	}
	return nil
}

// serveOn launches an http.Server on a pre-bound listener. It standardizes
// goroutine startup and error logging across the two listeners.
func (s *Server) serveOn(kind string, srv *http.Server, ln net.Listener) {
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s server error", kind), "error", err)
		}
	}()
}

// Run starts the server and blocks until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(stopCtx)
}

// Stop shuts down all listeners gracefully, metrics first so the final
// scrape window closes before the site goes away.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error
	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if s.site != nil {
		if err := s.site.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("preview server shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	slog.Info("Preview server stopped")
	return nil
}

// Addr returns the bound address of the preview listener, or "" before Start.
// Useful when listening on port 0.
func (s *Server) Addr() string {
	if s.siteLn == nil {
		return ""
	}
	return s.siteLn.Addr().String()
}

// MetricsAddr returns the bound address of the metrics listener, or "" when
// metrics are disabled.
func (s *Server) MetricsAddr() string {
	if s.metricsLn == nil {
		return ""
	}
	return s.metricsLn.Addr().String()
}

func (s *Server) siteMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.Handle("/", s.siteHandler())
	return mux
}
