package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/hugo"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
	"git.sr.ht/~rkb/blogbuilder/internal/server"
	"git.sr.ht/~rkb/blogbuilder/internal/watch"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen  string `short:"l" help:"Listen address (overrides serve.listen)"`
	NoWatch bool   `name:"no-watch" help:"Serve the current output without watching for changes"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if s.Listen != "" {
		cfg.Serve.Listen = s.Listen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var registry *prom.Registry
	rec := metrics.Recorder(metrics.NoopRecorder{})
	if cfg.Serve.Metrics {
		registry = prom.NewRegistry()
		rec = metrics.NewPrometheusRecorder(registry)
	}

	builder := hugo.New(cfg).WithRecorder(rec)
	if report, err := builder.Build(ctx); err != nil {
		// Serve anyway; the watcher can rebuild once the content is fixed.
		slog.Error("Initial build failed", "error", err)
	} else {
		slog.Info("Site built", "rendered_files", report.RenderedFiles,
			"duration", report.Duration().Truncate(time.Millisecond))
	}

	srv := server.New(cfg, registry)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	fmt.Printf("Serving on http://%s/\n", srv.Addr())

	var events <-chan struct{}
	if !s.NoWatch {
		w, err := watch.New(
			[]string{cfg.ContentPath(), cfg.StaticPath(), cfg.LayoutsPath()},
			config.Duration(cfg.Serve.QuietWindow, 400*time.Millisecond),
			config.Duration(cfg.Serve.MaxDelay, 3*time.Second),
		)
		if err != nil {
			_ = stopServer(srv)
			return err
		}
		defer func() { _ = w.Close() }()
		go func() { _ = w.Run(ctx) }()
		events = w.Events()
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down preview server")
			return stopServer(srv)
		case <-events:
			slog.Info("Content changed, rebuilding")
			rec.IncWatchRebuild()
			if report, err := builder.Build(ctx); err != nil {
				slog.Error("Rebuild failed", "error", err)
			} else {
				slog.Info("Site rebuilt", "rendered_files", report.RenderedFiles,
					"duration", report.Duration().Truncate(time.Millisecond))
			}
		}
	}
}

func stopServer(srv *server.Server) error {
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(stopCtx)
}
