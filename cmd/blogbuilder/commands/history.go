package commands

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/journal"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" default:"10" help:"Number of deploys to show"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	recs, err := j.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No deploys recorded yet.")
		return nil
	}

	fmt.Printf("%-16s  %-9s  %-9s  %-8s  %5s  %s\n",
		"STARTED", "OUTCOME", "DURATION", "COMMIT", "FILES", "MESSAGE")
	for _, r := range recs {
		commit := "-"
		if r.CommitHash != "" {
			commit = shortHash(r.CommitHash)
		}
		detail := firstLine(r.Message)
		if r.Error != "" {
			detail = r.Error
			if r.FailedStage != "" {
				detail = r.FailedStage + ": " + detail
			}
		}
		fmt.Printf("%-16s  %-9s  %-9s  %-8s  %5d  %s\n",
			r.Started.Format("2006-01-02 15:04"),
			r.Outcome,
			r.Duration().Truncate(time.Millisecond),
			commit,
			r.FilesChanged,
			detail)
	}
	return nil
}
