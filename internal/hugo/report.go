package hugo

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReportFileName is the build report persisted in the site root after every
// build attempt.
const ReportFileName = ".blogbuilder-build.json"

// BuildOutcome is the typed enumeration of final build result states.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeWarning  BuildOutcome = "warning"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// StageCount aggregates classification counts for a stage.
type StageCount struct {
	Success  int `json:"success"`
	Warning  int `json:"warning"`
	Fatal    int `json:"fatal"`
	Canceled int `json:"canceled"`
}

// BuildReport captures metrics about a single site build run.
type BuildReport struct {
	SchemaVersion   int
	Start           time.Time
	End             time.Time
	Errors          []error // fatal errors causing build abortion (at most one today)
	Warnings        []error // non-fatal issues recorded along the way
	StageDurations  map[StageName]time.Duration
	StageErrorKinds map[StageName]StageErrorKind
	StageCounts     map[StageName]StageCount
	RenderedFiles   int      // files present under public/ after the render
	BrokenLinks     []string // internal link targets missing from the rendered output
	HugoVersion     string   // first line of `hugo version`, when available
	StaticRendered  bool     // true once the renderer completed
	Outcome         BuildOutcome
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		SchemaVersion:   1,
		Start:           time.Now(),
		StageDurations:  make(map[StageName]time.Duration),
		StageErrorKinds: make(map[StageName]StageErrorKind),
		StageCounts:     make(map[StageName]StageCount),
	}
}

// recordError files a classified stage error into the report.
func (r *BuildReport) recordError(stage StageName, se *StageError) {
	r.StageErrorKinds[stage] = se.Kind
	sc := r.StageCounts[stage]
	switch se.Kind {
	case StageErrorWarning:
		sc.Warning++
		r.Warnings = append(r.Warnings, se)
	case StageErrorCanceled:
		sc.Canceled++
		r.Errors = append(r.Errors, se)
	case StageErrorFatal:
		sc.Fatal++
		r.Errors = append(r.Errors, se)
	}
	r.StageCounts[stage] = sc
}

func (r *BuildReport) finish() { r.End = time.Now() }

// Duration returns the wall clock time of the whole build.
func (r *BuildReport) Duration() time.Duration { return r.End.Sub(r.Start) }

// deriveOutcome sets Outcome from recorded errors and warnings.
func (r *BuildReport) deriveOutcome() {
	if len(r.Errors) > 0 {
		for _, e := range r.Errors {
			if se, ok := e.(*StageError); ok && se.Kind == StageErrorCanceled {
				r.Outcome = OutcomeCanceled
				return
			}
		}
		r.Outcome = OutcomeFailed
		return
	}
	if len(r.Warnings) > 0 {
		r.Outcome = OutcomeWarning
		return
	}
	r.Outcome = OutcomeSuccess
}

// Summary returns a human readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("outcome=%s duration=%s stages=%d rendered=%d errors=%d warnings=%d",
		r.Outcome, r.Duration().Truncate(time.Millisecond), len(r.StageDurations),
		r.RenderedFiles, len(r.Errors), len(r.Warnings))
}

// BuildReportSerializable mirrors BuildReport with error fields converted to strings.
type BuildReportSerializable struct {
	SchemaVersion   int                          `json:"schema_version"`
	Start           time.Time                    `json:"start"`
	End             time.Time                    `json:"end"`
	Errors          []string                     `json:"errors"`
	Warnings        []string                     `json:"warnings"`
	StageDurations  map[StageName]time.Duration  `json:"stage_durations"`
	StageErrorKinds map[StageName]StageErrorKind `json:"stage_error_kinds"`
	StageCounts     map[StageName]StageCount     `json:"stage_counts"`
	RenderedFiles   int                          `json:"rendered_files"`
	BrokenLinks     []string                     `json:"broken_links,omitempty"`
	HugoVersion     string                       `json:"hugo_version,omitempty"`
	StaticRendered  bool                         `json:"static_rendered"`
	Outcome         BuildOutcome                 `json:"outcome"`
}

func (r *BuildReport) sanitizedCopy() *BuildReportSerializable {
	s := &BuildReportSerializable{
		SchemaVersion:   r.SchemaVersion,
		Start:           r.Start,
		End:             r.End,
		Errors:          make([]string, len(r.Errors)),
		Warnings:        make([]string, len(r.Warnings)),
		StageDurations:  r.StageDurations,
		StageErrorKinds: r.StageErrorKinds,
		StageCounts:     r.StageCounts,
		RenderedFiles:   r.RenderedFiles,
		BrokenLinks:     r.BrokenLinks,
		HugoVersion:     r.HugoVersion,
		StaticRendered:  r.StaticRendered,
		Outcome:         r.Outcome,
	}
	for i, e := range r.Errors {
		s.Errors[i] = e.Error()
	}
	for i, w := range r.Warnings {
		s.Warnings[i] = w.Error()
	}
	return s
}

// Persist writes the report atomically into the site root. Best effort; errors
// are returned for caller logging but do not change the build outcome.
func (r *BuildReport) Persist(root string) error {
	if r.End.IsZero() {
		r.finish()
		r.deriveOutcome()
	}
	jb, err := json.MarshalIndent(r.sanitizedCopy(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal build report: %w", err)
	}
	path := filepath.Join(root, ReportFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(jb, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp build report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename build report: %w", err)
	}
	return nil
}

// LoadReport reads a previously persisted build report from the site root.
func LoadReport(root string) (*BuildReportSerializable, error) {
	b, err := os.ReadFile(filepath.Join(root, ReportFileName))
	if err != nil {
		return nil, err
	}
	var r BuildReportSerializable
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("parse build report: %w", err)
	}
	return &r, nil
}
