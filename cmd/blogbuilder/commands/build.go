package commands

import (
	"context"
	"fmt"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/hugo"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct{}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	report, err := hugo.New(cfg).Build(context.Background())
	if report != nil {
		fmt.Println(report.Summary())
	}
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	return nil
}
