package commands

import (
	"fmt"
	"os"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/lint"
)

// LintCmd implements the 'lint' command.
type LintCmd struct {
	Format string `short:"f" default:"text" help:"Output format (text or json)" enum:"text,json"`
	Quiet  bool   `short:"q" help:"Quiet mode: only show errors, suppress warnings"`
	Fix    bool   `help:"Add missing uids instead of reporting"`
}

func (l *LintCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if l.Fix {
		return runFix(cfg)
	}

	result, err := lint.New(cfg, lint.Options{Quiet: l.Quiet}).Run()
	if err != nil {
		return fmt.Errorf("linting failed: %w", err)
	}

	formatter := lint.NewFormatter(l.Format)
	if err := formatter.Format(os.Stdout, result); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if result.HasErrors() {
		os.Exit(2) // errors block a deploy
	} else if result.HasWarnings() && !l.Quiet {
		os.Exit(1) // warnings present
	}
	return nil
}

func runFix(cfg *config.Config) error {
	inv, err := content.Scan(cfg.ContentPath())
	if err != nil {
		return err
	}

	fixer := &lint.Fixer{}
	res, err := fixer.AddMissingUIDs(inv)
	if err != nil {
		return fmt.Errorf("fixing uids: %w", err)
	}
	if res.UIDsAdded == 0 {
		fmt.Println("Nothing to fix; every post has a uid.")
		return nil
	}

	fmt.Printf("Added %d uid(s):\n", res.UIDsAdded)
	for _, f := range res.FilesChanged {
		fmt.Println("  " + f)
	}
	return nil
}
