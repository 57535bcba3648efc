package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for build, deploy, and link-check
// metrics. Implementations may forward to Prometheus or discard everything.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	ObserveBuildDuration(d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveDeployDuration(d time.Duration)
	IncDeployOutcome(outcome string) // success|noop|failed|canceled
	ObservePublishDuration(d time.Duration, success bool)
	IncScheduledPublish()
	IncWatchRebuild()
	IncLinkCheck(result string) // ok|broken|cached|skipped
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)   {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)           {}
func (NoopRecorder) IncStageResult(string, ResultLabel)           {}
func (NoopRecorder) ObserveDeployDuration(time.Duration)          {}
func (NoopRecorder) IncDeployOutcome(string)                      {}
func (NoopRecorder) ObservePublishDuration(time.Duration, bool)   {}
func (NoopRecorder) IncScheduledPublish()                         {}
func (NoopRecorder) IncWatchRebuild()                             {}
func (NoopRecorder) IncLinkCheck(string)                          {}
