package commands

import (
	"context"
	"fmt"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/git"
	"git.sr.ht/~rkb/blogbuilder/internal/journal"
	"git.sr.ht/~rkb/blogbuilder/internal/pages"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct{}

func (s *StatusCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()

	printContentStatus(cfg)
	printRepoStatus("blog:", cfg.Site.Root)
	printRepoStatus("public:", cfg.PublicPath())
	printJournalStatus(ctx, cfg)
	if cfg.Pages != nil {
		printPagesStatus(ctx, cfg)
	}
	return nil
}

func printContentStatus(cfg *config.Config) {
	inv, err := content.Scan(cfg.ContentPath())
	if err != nil {
		fmt.Printf("%-9s %v\n", "content:", err)
		return
	}

	now := time.Now()
	var published, drafts, scheduled, broken int
	for _, p := range inv.Posts {
		if p.IsIndex {
			continue
		}
		if p.MetaError != nil {
			broken++
			continue
		}
		switch p.StatusAt(now) {
		case content.StatusDraft:
			drafts++
		case content.StatusScheduled:
			scheduled++
		default:
			published++
		}
	}

	line := fmt.Sprintf("%d published, %d draft(s), %d scheduled", published, drafts, scheduled)
	if broken > 0 {
		line += fmt.Sprintf(", %d with broken front matter", broken)
	}
	fmt.Printf("%-9s %s\n", "content:", line)
}

func printRepoStatus(label, path string) {
	c, err := git.Open(path)
	if err != nil {
		fmt.Printf("%-9s %v\n", label, err)
		return
	}
	sum, err := c.Status()
	if err != nil {
		fmt.Printf("%-9s %v\n", label, err)
		return
	}
	head, err := c.Head()
	if err != nil {
		fmt.Printf("%-9s %s\n", label, sum)
		return
	}
	fmt.Printf("%-9s %s @ %s %q\n", label, sum, head.ShortHash(), firstLine(head.Message))
}

func printJournalStatus(ctx context.Context, cfg *config.Config) {
	j, err := journal.Open(cfg.JournalPath())
	if err != nil {
		fmt.Printf("%-9s %v\n", "deploys:", err)
		return
	}
	defer func() { _ = j.Close() }()

	recent, err := j.Recent(ctx, 1)
	if err != nil {
		fmt.Printf("%-9s %v\n", "deploys:", err)
		return
	}
	if len(recent) == 0 {
		fmt.Printf("%-9s none recorded\n", "deploys:")
		return
	}

	last := recent[0]
	line := fmt.Sprintf("last %s %s", last.Outcome, last.Started.Format("2006-01-02 15:04"))
	if last.FailedStage != "" {
		line += " at stage " + last.FailedStage
	}
	if last.Outcome != journal.OutcomeSuccess {
		if ok, err := j.LastSuccess(ctx); err == nil && ok != nil {
			line += fmt.Sprintf("; last success %s (%s)",
				ok.Started.Format("2006-01-02 15:04"), shortHash(ok.CommitHash))
		}
	}
	fmt.Printf("%-9s %s\n", "deploys:", line)
}

func printPagesStatus(ctx context.Context, cfg *config.Config) {
	pc, err := pages.New(ctx, cfg.Pages)
	if err != nil {
		fmt.Printf("%-9s %v\n", "pages:", err)
		return
	}

	build, err := pc.LatestBuild(ctx)
	if err != nil {
		fmt.Printf("%-9s %v\n", "pages:", err)
		return
	}
	line := build.Status
	if build.Commit != "" {
		line += " (commit " + shortHash(build.Commit) + ")"
	}
	if build.Error != "" {
		line += ": " + build.Error
	}
	if site, err := pc.Site(ctx); err == nil && site.URL != "" {
		line += " " + site.URL
	}
	fmt.Printf("%-9s %s\n", "pages:", line)
}
