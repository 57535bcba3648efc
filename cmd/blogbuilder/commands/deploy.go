package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/deploy"
	"git.sr.ht/~rkb/blogbuilder/internal/journal"
)

// DeployCmd implements the 'deploy' command.
type DeployCmd struct {
	Message []string `arg:"" optional:"" help:"Commit message for the hosting repository (overrides the configured template)"`
	Lint    bool     `help:"Refuse to deploy when lint finds errors"`
}

func (d *DeployCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dep, err := deploy.New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer func() { _ = dep.Close() }()

	rec, err := dep.WithLintGate(d.Lint).Run(ctx, strings.Join(d.Message, " "))
	if err != nil {
		return err
	}

	if rec.Outcome == journal.OutcomeNoop {
		fmt.Println("Nothing to publish; site output unchanged.")
		return nil
	}
	fmt.Printf("Deployed commit %s (%d files changed) in %s\n",
		shortHash(rec.CommitHash), rec.FilesChanged, rec.Duration().Truncate(time.Millisecond))
	return nil
}
