// Package daemon runs unattended periodic deploys.
//
// A gocron scheduler fires the periodic deploy job and one-shot jobs at the
// publish times of scheduled posts, so a post dated tomorrow 09:00 goes live
// at 09:00 without the author present. Triggers are funneled through a
// capacity-1 channel so deploys never overlap; a pending deploy absorbs any
// trigger that arrives while it waits. The daemon exits once deploys fail
// too many times in a row, leaving restarts to the supervisor.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/journal"
	"git.sr.ht/~rkb/blogbuilder/internal/linkcheck"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

// Deploy triggers, logged with every run.
const (
	reasonStartup   = "startup"
	reasonInterval  = "interval"
	reasonScheduled = "scheduled-post"
)

// scheduledPostGrace delays the one-shot job slightly past the post date so
// the build's future-post cutoff has safely passed.
const scheduledPostGrace = 30 * time.Second

// DeployRunner is the deploy entry point the daemon drives.
type DeployRunner interface {
	Run(ctx context.Context, message string) (*journal.Record, error)
}

type scheduledPost struct {
	id string
	at time.Time
}

// Daemon owns the scheduler, the deploy serialization loop, and the optional
// metrics listener.
type Daemon struct {
	cfg       *config.Config
	rec       metrics.Recorder
	deployer  DeployRunner
	scheduler *Scheduler
	registry  *prom.Registry
	links     *linkcheck.Checker // nil when link checking is disabled

	requests chan string

	mu        sync.Mutex
	failures  int
	scheduled map[string]scheduledPost // relative post path -> pending job
}

// New creates a daemon around an existing deployer. The registry may be nil,
// which disables the metrics listener regardless of config.
func New(cfg *config.Config, deployer DeployRunner, rec metrics.Recorder, registry *prom.Registry) (*Daemon, error) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	sched, err := NewScheduler()
	if err != nil {
		return nil, err
	}

	var links *linkcheck.Checker
	if cfg.LinkCheck.Enabled {
		links, err = linkcheck.New(cfg, rec)
		if err != nil {
			return nil, err
		}
	}

	return &Daemon{
		cfg:       cfg,
		rec:       rec,
		deployer:  deployer,
		scheduler: sched,
		registry:  registry,
		links:     links,
		requests:  make(chan string, 1),
		scheduled: make(map[string]scheduledPost),
	}, nil
}

// Run blocks until ctx is canceled or the consecutive-failure limit is hit.
// Cancellation is the normal shutdown path and returns nil.
func (d *Daemon) Run(ctx context.Context) error {
	interval := config.Duration(d.cfg.Daemon.Interval, time.Hour)
	jitter := config.Duration(d.cfg.Daemon.Jitter, 0)
	if _, err := d.scheduler.ScheduleJittered("periodic-deploy", interval, jitter, func() {
		d.trigger(reasonInterval)
	}); err != nil {
		return err
	}

	if d.cfg.Daemon.SchedulePosts {
		if err := d.scheduleUpcomingPosts(time.Now()); err != nil {
			slog.Warn("Failed to schedule upcoming posts", "error", err)
		}
	}

	d.scheduler.Start()
	defer func() {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler shutdown", "error", err)
		}
	}()
	if d.links != nil {
		defer func() { _ = d.links.Close() }()
	}

	if d.cfg.Daemon.Metrics && d.registry != nil {
		stop, err := d.startMetrics(ctx)
		if err != nil {
			return err
		}
		defer stop()
	}

	if d.cfg.Daemon.DeployOnStart {
		d.trigger(reasonStartup)
	}

	slog.Info("Daemon running",
		"interval", interval,
		"schedule_posts", d.cfg.Daemon.SchedulePosts,
		"deploy_on_start", d.cfg.Daemon.DeployOnStart)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Daemon stopping")
			return nil
		case reason := <-d.requests:
			d.runDeploy(ctx, reason)
			if limit := d.cfg.Daemon.MaxConsecutiveFailures; limit > 0 && d.consecutiveFailures() >= limit {
				return fmt.Errorf("stopping after %d consecutive failed deploys", limit)
			}
		}
	}
}

// trigger requests a deploy. A trigger that arrives while one is already
// pending is absorbed; the pending deploy will pick up its changes anyway.
func (d *Daemon) trigger(reason string) {
	select {
	case d.requests <- reason:
	default:
		slog.Debug("Deploy already pending, trigger absorbed", "reason", reason)
	}
}

func (d *Daemon) runDeploy(ctx context.Context, reason string) {
	slog.Info("Unattended deploy starting", "reason", reason)
	rec, err := d.deployer.Run(ctx, "")
	if err != nil {
		d.mu.Lock()
		d.failures++
		n := d.failures
		d.mu.Unlock()
		slog.Error("Unattended deploy failed",
			"reason", reason,
			"consecutive_failures", n,
			"error", err)
		return
	}

	d.mu.Lock()
	d.failures = 0
	d.mu.Unlock()
	slog.Info("Unattended deploy finished", "reason", reason, "outcome", string(rec.Outcome))

	// The deploy may have pulled in posts whose dates are still ahead.
	if d.cfg.Daemon.SchedulePosts {
		if err := d.scheduleUpcomingPosts(time.Now()); err != nil {
			slog.Warn("Failed to refresh scheduled posts", "error", err)
		}
	}

	// A noop deploy changed nothing, so yesterday's verdicts still hold.
	if d.links != nil && rec.Outcome != journal.OutcomeNoop {
		go d.checkLinksAfterDeploy(ctx)
	}
}

// checkLinksAfterDeploy verifies external links in the background once a
// deploy has changed the site. Low priority; never blocks the deploy loop.
func (d *Daemon) checkLinksAfterDeploy(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	inv, err := content.Scan(d.cfg.ContentPath())
	if err != nil {
		slog.Warn("Link check skipped, content scan failed", "error", err)
		return
	}

	report, err := d.links.Run(checkCtx, inv)
	if err != nil {
		slog.Warn("Link check did not finish", "error", err)
		return
	}
	slog.Info("Link check finished",
		"checked", report.URLsChecked,
		"cached", report.URLsCached,
		"broken", len(report.Broken))
}

func (d *Daemon) consecutiveFailures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.failures
}

// scheduleUpcomingPosts scans the content tree and creates a one-shot deploy
// job for every future-dated post. Already scheduled posts keep their job
// unless the date moved.
func (d *Daemon) scheduleUpcomingPosts(now time.Time) error {
	inv, err := content.Scan(d.cfg.ContentPath())
	if err != nil {
		return err
	}
	for _, post := range inv.Scheduled(now) {
		d.schedulePost(post.RelativePath, post.Meta.Date)
	}
	return nil
}

func (d *Daemon) schedulePost(rel string, at time.Time) {
	fireAt := at.Add(scheduledPostGrace)

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.scheduled[rel]; ok {
		if existing.at.Equal(fireAt) {
			return
		}
		// Post date changed since the job was created.
		if err := d.scheduler.RemoveJob(existing.id); err != nil {
			slog.Warn("Failed to remove stale post job", "post", rel, "error", err)
		}
		delete(d.scheduled, rel)
	}

	id, err := d.scheduler.ScheduleAt("publish-"+rel, fireAt, func() {
		d.rec.IncScheduledPublish()
		d.mu.Lock()
		delete(d.scheduled, rel)
		d.mu.Unlock()
		d.trigger(reasonScheduled + " " + rel)
	})
	if err != nil {
		slog.Warn("Failed to schedule post", "post", rel, "error", err)
		return
	}
	d.scheduled[rel] = scheduledPost{id: id, at: fireAt}
	slog.Info("Post scheduled for publish", "post", rel, "at", fireAt.Format(time.RFC3339))
}

func (d *Daemon) startMetrics(ctx context.Context) (func(), error) {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", d.cfg.Daemon.MetricsListen)
	if err != nil {
		return nil, fmt.Errorf("metrics listener on %s: %w", d.cfg.Daemon.MetricsListen, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(d.registry))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	slog.Info("Metrics listening", "addr", ln.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
