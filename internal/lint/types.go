package lint

import (
	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
)

// Severity indicates the importance level of a linting issue.
type Severity int

const (
	// SeverityInfo indicates informational messages.
	SeverityInfo Severity = iota
	// SeverityWarning indicates issues that should be fixed but don't block deploys.
	SeverityWarning
	// SeverityError indicates issues that block the deploy lint gate.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Issue represents a single problem found in a post.
type Issue struct {
	File     string   // path relative to the content directory
	Severity Severity // issue severity level
	Rule     string   // rule identifier (e.g. "required-fields")
	Message  string   // brief description of the issue
	Fix      string   // suggested fix or command to resolve
	Line     int      // line number, 0 for file-level issues
}

// Result contains all issues found during linting.
type Result struct {
	Issues     []Issue
	FilesTotal int
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-level issues.
func (r *Result) ErrorCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			count++
		}
	}
	return count
}

// WarningCount returns the number of warning-level issues.
func (r *Result) WarningCount() int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			count++
		}
	}
	return count
}

// Target bundles what rules need to judge a post: configuration, the full
// scanned inventory and the precomputed duplicate-slug map.
type Target struct {
	Config     *config.Config
	Inventory  *content.Inventory
	Duplicates map[string][]string
}

// Rule defines a check applied to scanned posts. Rules are pure; all file
// reading happened during the content scan.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string

	// AppliesTo returns true if this rule should run for the given post.
	AppliesTo(post *content.Post) bool

	// Check validates a post and returns any issues found.
	Check(t *Target, post *content.Post) []Issue
}
