package commands

import (
	"fmt"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
)

// ListCmd implements the 'list' command.
type ListCmd struct {
	Section string `short:"s" help:"Only show posts from this section"`
	Drafts  bool   `help:"Only show drafts"`
}

func (l *ListCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	inv, err := content.Scan(cfg.ContentPath())
	if err != nil {
		return err
	}

	now := time.Now()
	var shown, drafts, scheduled int
	for _, p := range inv.Posts {
		if p.IsIndex {
			continue
		}
		if l.Section != "" && p.Section != l.Section {
			continue
		}

		status := "invalid"
		if p.MetaError == nil {
			status = string(p.StatusAt(now))
		}
		switch status {
		case string(content.StatusDraft):
			drafts++
		case string(content.StatusScheduled):
			scheduled++
		}
		if l.Drafts && status != string(content.StatusDraft) {
			continue
		}

		date := "-"
		if !p.Meta.Date.IsZero() {
			date = p.Meta.Date.Format("2006-01-02")
		}
		title := p.Meta.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%-10s  %-9s  %-40s  %s\n", date, status, p.RelativePath, title)
		shown++
	}

	fmt.Printf("%d post(s) shown, %d draft(s), %d scheduled\n", shown, drafts, scheduled)
	return nil
}
