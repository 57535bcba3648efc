package hugo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

// Stage is a discrete unit of work in the site build.
type Stage func(ctx context.Context, bs *BuildState) error

// StageName identifies a build stage. All canonical stages are declared as
// constants here.
type StageName string

const (
	StageVerifySite   StageName = "verify_site"
	StageCleanPublic  StageName = "clean_public"
	StageRunHugo      StageName = "run_hugo"
	StageVerifyOutput StageName = "verify_output"
)

// StageErrorKind enumerates structured stage error categories.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"    // build must abort
	StageErrorWarning  StageErrorKind = "warning"  // record and continue
	StageErrorCanceled StageErrorKind = "canceled" // context cancellation
)

// StageError is a structured error carrying category and underlying cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newFatalStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}
func newWarnStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorWarning, Stage: stage, Err: err}
}
func newCanceledStageError(stage StageName, err error) *StageError {
	return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
}

// BuildState carries mutable state across stages.
type BuildState struct {
	Builder *Builder
	Report  *BuildReport
	Timings map[StageName]time.Duration
	start   time.Time
}

func newBuildState(b *Builder, report *BuildReport) *BuildState {
	return &BuildState{
		Builder: b,
		Report:  report,
		Timings: make(map[StageName]time.Duration),
		start:   time.Now(),
	}
}

// stageDef pairs a stage name with its executing function.
type stageDef struct {
	name StageName
	fn   Stage
}

// runStages executes stages in order, recording timing and classification,
// stopping on the first fatal or canceled error. Warnings are recorded and the
// pipeline continues.
func runStages(ctx context.Context, bs *BuildState, stages []stageDef) error {
	rec := bs.Builder.recorder
	for _, st := range stages {
		select {
		case <-ctx.Done():
			se := newCanceledStageError(st.name, ctx.Err())
			bs.Report.recordError(st.name, se)
			rec.IncStageResult(string(st.name), metrics.ResultCanceled)
			return se
		default:
		}
		t0 := time.Now()
		err := st.fn(ctx, bs)
		dur := time.Since(t0)
		bs.Timings[st.name] = dur
		bs.Report.StageDurations[st.name] = dur
		rec.ObserveStageDuration(string(st.name), dur)
		if err == nil {
			sc := bs.Report.StageCounts[st.name]
			sc.Success++
			bs.Report.StageCounts[st.name] = sc
			rec.IncStageResult(string(st.name), metrics.ResultSuccess)
			continue
		}
		var se *StageError
		if !errors.As(err, &se) {
			se = newFatalStageError(st.name, err)
		}
		bs.Report.recordError(st.name, se)
		rec.IncStageResult(string(st.name), resultLabel(se.Kind))
		if se.Kind == StageErrorWarning {
			slog.Warn("Build stage degraded", "stage", st.name, "error", se.Err)
			continue
		}
		return se
	}
	return nil
}

func resultLabel(kind StageErrorKind) metrics.ResultLabel {
	switch kind {
	case StageErrorWarning:
		return metrics.ResultWarning
	case StageErrorCanceled:
		return metrics.ResultCanceled
	default:
		return metrics.ResultFatal
	}
}

// siteConfigNames lists filenames hugo accepts as the site configuration.
var siteConfigNames = []string{
	"hugo.toml", "hugo.yaml", "hugo.yml",
	"config.toml", "config.yaml", "config.yml",
}

// stageVerifySite confirms the configured site root looks like a Hugo site
// before anything destructive happens.
func stageVerifySite(_ context.Context, bs *BuildState) error {
	cfg := bs.Builder.cfg
	st, err := os.Stat(cfg.Site.Root)
	if err != nil {
		return newFatalStageError(StageVerifySite, fmt.Errorf("site root %s: %w", cfg.Site.Root, err))
	}
	if !st.IsDir() {
		return newFatalStageError(StageVerifySite, fmt.Errorf("site root %s is not a directory", cfg.Site.Root))
	}
	found := false
	for _, name := range siteConfigNames {
		if _, err := os.Stat(filepath.Join(cfg.Site.Root, name)); err == nil {
			found = true
			break
		}
	}
	if !found {
		return newFatalStageError(StageVerifySite, fmt.Errorf("no hugo site configuration in %s", cfg.Site.Root))
	}
	if _, err := os.Stat(cfg.ContentPath()); err != nil {
		return newFatalStageError(StageVerifySite, fmt.Errorf("content directory %s: %w", cfg.ContentPath(), err))
	}
	return nil
}

// preservedPublicEntries are never removed when cleaning stale output. The
// hosting checkout lives inside public/, so .git (a gitdir redirect file in
// submodule layouts) and the Pages marker files must survive a clean.
var preservedPublicEntries = map[string]bool{
	".git":      true,
	"CNAME":     true,
	".nojekyll": true,
}

// stageCleanPublic removes stale entries from the publish directory so deleted
// posts disappear from the hosted site. Gated by site.hugo.clean.
func stageCleanPublic(ctx context.Context, bs *BuildState) error {
	cfg := bs.Builder.cfg
	if !cfg.Site.Hugo.Clean {
		return nil
	}
	pub := cfg.PublicPath()
	entries, err := os.ReadDir(pub)
	if errors.Is(err, fs.ErrNotExist) {
		// Nothing to clean; hugo creates the directory when it renders.
		return nil
	}
	if err != nil {
		return newFatalStageError(StageCleanPublic, fmt.Errorf("read publish directory: %w", err))
	}
	removed := 0
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return newCanceledStageError(StageCleanPublic, ctx.Err())
		default:
		}
		if preservedPublicEntries[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(pub, entry.Name())); err != nil {
			return newFatalStageError(StageCleanPublic, fmt.Errorf("remove stale output %s: %w", entry.Name(), err))
		}
		removed++
	}
	slog.Debug("Cleaned stale output", "dir", pub, "removed", removed)
	return nil
}

// stageRunHugo renders the site via the configured Renderer.
func stageRunHugo(_ context.Context, bs *BuildState) error {
	renderer := bs.Builder.renderer
	if renderer == nil {
		renderer = &BinaryRenderer{Binary: bs.Builder.cfg.Site.Hugo.Binary}
	}
	if br, ok := renderer.(*BinaryRenderer); ok {
		if v, err := br.Version(); err == nil {
			bs.Report.HugoVersion = v
		}
	}
	if err := renderer.Execute(bs.Builder.cfg.Site.Root); err != nil {
		return newFatalStageError(StageRunHugo, err)
	}
	bs.Report.StaticRendered = true
	return nil
}

// stageVerifyOutput confirms the render produced a site and audits internal
// links in the rendered HTML. Broken links degrade the build to a warning;
// a missing index page is fatal since publishing it would break the site.
func stageVerifyOutput(_ context.Context, bs *BuildState) error {
	pub := bs.Builder.cfg.PublicPath()
	if _, err := os.Stat(filepath.Join(pub, "index.html")); err != nil {
		return newFatalStageError(StageVerifyOutput, fmt.Errorf("no index.html under %s: %w", pub, err))
	}
	files, broken, err := auditOutput(pub)
	if err != nil {
		return newFatalStageError(StageVerifyOutput, fmt.Errorf("audit rendered output: %w", err))
	}
	bs.Report.RenderedFiles = files
	bs.Report.BrokenLinks = broken
	if len(broken) > 0 {
		return newWarnStageError(StageVerifyOutput, fmt.Errorf("%d broken internal links", len(broken)))
	}
	return nil
}
