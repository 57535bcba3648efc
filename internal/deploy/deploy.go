// Package deploy orchestrates a full deploy run: optional lint gate, site
// build, publish to the hosting submodule, journal append, and optional
// GitHub Pages verification. Any failing step aborts the sequence and the
// journal records which stage failed.
package deploy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/hugo"
	"git.sr.ht/~rkb/blogbuilder/internal/journal"
	"git.sr.ht/~rkb/blogbuilder/internal/lint"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
	"git.sr.ht/~rkb/blogbuilder/internal/pages"
	"git.sr.ht/~rkb/blogbuilder/internal/publish"
)

// Stage names recorded in the journal for failed deploys.
const (
	StageLint    = "lint"
	StageBuild   = "build"
	StagePublish = "publish"
	StageVerify  = "verify"
)

type builder interface {
	Build(ctx context.Context) (*hugo.BuildReport, error)
}

type publisher interface {
	Publish(ctx context.Context, override string) (*publish.Record, error)
}

type journalWriter interface {
	Append(ctx context.Context, rec journal.Record) error
}

type pagesVerifier interface {
	AwaitBuild(ctx context.Context, commit string, interval time.Duration) (*pages.BuildStatus, error)
}

type linter interface {
	Run() (*lint.Result, error)
}

// Deployer runs the deploy sequence and records every run in the journal.
type Deployer struct {
	cfg      *config.Config
	rec      metrics.Recorder
	lintGate bool

	build   builder
	publish publisher
	journal journalWriter
	pages   pagesVerifier
	lint    linter
}

// New wires a deployer from configuration: the hugo builder, the submodule
// publisher, the SQLite journal, and a Pages client when pages.verify_deploys
// is set.
func New(ctx context.Context, cfg *config.Config, rec metrics.Recorder) (*Deployer, error) {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	d := &Deployer{
		cfg:     cfg,
		rec:     rec,
		build:   hugo.New(cfg).WithRecorder(rec),
		publish: publish.New(cfg),
		lint:    lint.New(cfg, lint.Options{}),
	}

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return nil, fmt.Errorf("open deploy journal: %w", err)
	}
	d.journal = j

	if cfg.Pages != nil && cfg.Pages.VerifyDeploys {
		pc, err := pages.New(ctx, cfg.Pages)
		if err != nil {
			_ = j.Close()
			return nil, fmt.Errorf("pages client: %w", err)
		}
		d.pages = pc
	}
	return d, nil
}

// WithLintGate makes the deploy refuse to build while content lint reports
// errors.
func (d *Deployer) WithLintGate(enabled bool) *Deployer {
	d.lintGate = enabled
	return d
}

// Close releases the journal handle.
func (d *Deployer) Close() error {
	if c, ok := d.journal.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Run executes the deploy sequence. The returned record is the journal entry
// for this run; on failure it names the stage that failed. A non-empty
// message overrides the configured commit message template.
func (d *Deployer) Run(ctx context.Context, message string) (*journal.Record, error) {
	rec := &journal.Record{
		ID:             uuid.NewString(),
		Started:        time.Now(),
		StageDurations: map[string]time.Duration{},
	}
	slog.Info("Deploy starting", "deploy_id", rec.ID)

	err := d.sequence(ctx, rec, message)
	rec.Finished = time.Now()
	if err != nil {
		rec.Error = err.Error()
		if ctx.Err() != nil {
			rec.Outcome = journal.OutcomeCanceled
		} else {
			rec.Outcome = journal.OutcomeFailed
		}
	}

	d.rec.ObserveDeployDuration(rec.Duration())
	d.rec.IncDeployOutcome(string(rec.Outcome))

	if d.journal != nil {
		// Record the run even when ctx was canceled mid-deploy.
		appendCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if jerr := d.journal.Append(appendCtx, *rec); jerr != nil {
			slog.Warn("Failed to append deploy record", "deploy_id", rec.ID, "error", jerr)
		}
		cancel()
	}

	if err != nil {
		slog.Error("Deploy failed", "deploy_id", rec.ID, "stage", rec.FailedStage, "error", err)
		return rec, err
	}
	slog.Info("Deploy finished",
		"deploy_id", rec.ID,
		"outcome", string(rec.Outcome),
		"commit", rec.CommitHash,
		"files_changed", rec.FilesChanged,
		"duration", rec.Duration())
	return rec, nil
}

func (d *Deployer) sequence(ctx context.Context, rec *journal.Record, message string) error {
	if d.lintGate && d.lint != nil {
		start := time.Now()
		res, err := d.lint.Run()
		rec.StageDurations[StageLint] = time.Since(start)
		if err != nil {
			rec.FailedStage = StageLint
			return fmt.Errorf("lint: %w", err)
		}
		if res.HasErrors() {
			rec.FailedStage = StageLint
			return fmt.Errorf("lint found %d error(s), deploy refused", res.ErrorCount())
		}
	}

	start := time.Now()
	report, err := d.build.Build(ctx)
	rec.StageDurations[StageBuild] = time.Since(start)
	if err != nil {
		rec.FailedStage = StageBuild
		return fmt.Errorf("build: %w", err)
	}
	slog.Info("Site built",
		"deploy_id", rec.ID,
		"rendered_files", report.RenderedFiles,
		"outcome", string(report.Outcome))

	start = time.Now()
	pub, err := d.publish.Publish(ctx, message)
	publishDur := time.Since(start)
	rec.StageDurations[StagePublish] = publishDur
	d.rec.ObservePublishDuration(publishDur, err == nil)
	if err != nil {
		rec.FailedStage = StagePublish
		return fmt.Errorf("publish: %w", err)
	}

	rec.CommitHash = pub.CommitHash
	rec.Message = pub.Message
	rec.FilesChanged = pub.FilesChanged
	if pub.Outcome == publish.OutcomeNoChanges {
		rec.Outcome = journal.OutcomeNoop
		slog.Info("Site unchanged, nothing published", "deploy_id", rec.ID)
		return nil
	}
	rec.Outcome = journal.OutcomeSuccess

	if d.pages != nil {
		timeout := config.Duration(d.cfg.Pages.VerifyTimeout, 2*time.Minute)
		verifyCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		start = time.Now()
		status, err := d.pages.AwaitBuild(verifyCtx, pub.CommitHash, 0)
		rec.StageDurations[StageVerify] = time.Since(start)
		if err != nil {
			rec.FailedStage = StageVerify
			return fmt.Errorf("verify pages build: %w", err)
		}
		slog.Info("Pages build verified",
			"deploy_id", rec.ID,
			"status", status.Status,
			"build_duration", status.Duration)
	}
	return nil
}
