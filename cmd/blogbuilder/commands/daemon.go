package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/daemon"
	"git.sr.ht/~rkb/blogbuilder/internal/deploy"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Now bool `help:"Deploy immediately on startup regardless of daemon.deploy_on_start"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if d.Now {
		cfg.Daemon.DeployOnStart = true
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var registry *prom.Registry
	rec := metrics.Recorder(metrics.NoopRecorder{})
	if cfg.Daemon.Metrics {
		registry = prom.NewRegistry()
		registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
		rec = metrics.NewPrometheusRecorder(registry)
	}

	dep, err := deploy.New(ctx, cfg, rec)
	if err != nil {
		return err
	}
	defer func() { _ = dep.Close() }()

	dmn, err := daemon.New(cfg, dep, rec, registry)
	if err != nil {
		return err
	}

	slog.Info("Daemon starting", "interval", cfg.Daemon.Interval, "config", root.Config)
	return dmn.Run(ctx)
}
