package hugo

import (
	"context"
	"log/slog"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

// Builder runs the build pipeline for a configured site.
type Builder struct {
	cfg      *config.Config
	renderer Renderer
	recorder metrics.Recorder
}

// New constructs a Builder with a BinaryRenderer assembled from the site's
// hugo configuration.
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg:      cfg,
		renderer: defaultRenderer(cfg.Site.Hugo),
		recorder: metrics.NoopRecorder{},
	}
}

func defaultRenderer(hc config.HugoConfig) *BinaryRenderer {
	args := append([]string(nil), hc.Args...)
	if hc.Theme != "" {
		args = append(args, "--theme", hc.Theme)
	}
	if hc.BuildDrafts {
		args = append(args, "--buildDrafts")
	}
	if hc.BuildFuture {
		args = append(args, "--buildFuture")
	}
	return &BinaryRenderer{Binary: hc.Binary, Args: args}
}

// WithRenderer allows tests or callers to inject a custom renderer.
func (b *Builder) WithRenderer(r Renderer) *Builder {
	if r != nil {
		b.renderer = r
	}
	return b
}

// WithRecorder wires a metrics recorder into the pipeline.
func (b *Builder) WithRecorder(r metrics.Recorder) *Builder {
	if r != nil {
		b.recorder = r
	}
	return b
}

// Build executes the stage pipeline and persists the resulting report in the
// site root. The report is returned even when the build fails so callers can
// inspect how far it got.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	if b.recorder == nil {
		b.recorder = metrics.NoopRecorder{}
	}
	report := newBuildReport()
	bs := newBuildState(b, report)
	stages := []stageDef{
		{StageVerifySite, stageVerifySite},
		{StageCleanPublic, stageCleanPublic},
		{StageRunHugo, stageRunHugo},
		{StageVerifyOutput, stageVerifyOutput},
	}

	slog.Info("Building site", "root", b.cfg.Site.Root)
	err := runStages(ctx, bs, stages)
	report.finish()
	report.deriveOutcome()
	b.recorder.ObserveBuildDuration(report.Duration())

	if perr := report.Persist(b.cfg.Site.Root); perr != nil {
		slog.Warn("Could not persist build report", "error", perr)
	}

	if err != nil {
		slog.Error("Build failed", "outcome", report.Outcome, "error", err)
		return report, err
	}
	slog.Info("Build finished", "summary", report.Summary())
	return report, nil
}
