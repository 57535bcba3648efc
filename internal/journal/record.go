package journal

import "time"

// Outcome classifies how a deploy run ended.
type Outcome string

const (
	// OutcomeSuccess means the site was built and a new commit was pushed.
	OutcomeSuccess Outcome = "success"
	// OutcomeNoop means the run completed but the built site was identical
	// to what is already hosted, so nothing was pushed.
	OutcomeNoop Outcome = "noop"
	// OutcomeFailed means a stage failed and the run stopped there.
	OutcomeFailed Outcome = "failed"
	// OutcomeCanceled means the run was interrupted before it finished.
	OutcomeCanceled Outcome = "canceled"
)

// Record is one deploy attempt. Timestamps are stored with second
// precision.
type Record struct {
	ID             string
	Started        time.Time
	Finished       time.Time
	Outcome        Outcome
	FailedStage    string // stage that stopped the run, empty otherwise
	StageDurations map[string]time.Duration
	CommitHash     string
	Message        string
	FilesChanged   int
	Error          string
}

// Duration returns how long the deploy ran.
func (r Record) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}
