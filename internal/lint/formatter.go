package lint

import (
	"encoding/json"
	"fmt"
	"io"
)

// Formatter renders linting results for output.
type Formatter interface {
	Format(w io.Writer, result *Result) error
}

// NewFormatter returns the formatter for the requested format, defaulting to
// text for anything unrecognized.
func NewFormatter(format string) Formatter {
	if format == "json" {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// TextFormatter renders results as human-readable text grouped by file.
type TextFormatter struct{}

func (f *TextFormatter) Format(w io.Writer, result *Result) error {
	lastFile := ""
	for _, issue := range result.Issues {
		if issue.File != lastFile {
			if lastFile != "" {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s\n", issue.File); err != nil {
				return err
			}
			lastFile = issue.File
		}
		if _, err := fmt.Fprintf(w, "  %-7s %-20s %s\n", issue.Severity, issue.Rule, issue.Message); err != nil {
			return err
		}
		if issue.Fix != "" {
			if _, err := fmt.Fprintf(w, "          fix: %s\n", issue.Fix); err != nil {
				return err
			}
		}
	}

	if len(result.Issues) > 0 {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d files scanned: %d errors, %d warnings\n",
		result.FilesTotal, result.ErrorCount(), result.WarningCount())
	return err
}

// JSONFormatter renders results as machine-readable JSON.
type JSONFormatter struct{}

type jsonIssue struct {
	File     string `json:"file"`
	Severity string `json:"severity"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
	Line     int    `json:"line,omitempty"`
}

type jsonResult struct {
	FilesTotal int         `json:"files_total"`
	Errors     int         `json:"errors"`
	Warnings   int         `json:"warnings"`
	Issues     []jsonIssue `json:"issues"`
}

func (f *JSONFormatter) Format(w io.Writer, result *Result) error {
	out := jsonResult{
		FilesTotal: result.FilesTotal,
		Errors:     result.ErrorCount(),
		Warnings:   result.WarningCount(),
		Issues:     make([]jsonIssue, 0, len(result.Issues)),
	}
	for _, issue := range result.Issues {
		out.Issues = append(out.Issues, jsonIssue{
			File:     issue.File,
			Severity: issue.Severity.String(),
			Rule:     issue.Rule,
			Message:  issue.Message,
			Fix:      issue.Fix,
			Line:     issue.Line,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
