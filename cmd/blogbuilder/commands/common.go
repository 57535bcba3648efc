package commands

import (
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"blog.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Write a starter configuration file"`
	New     NewCmd     `cmd:"" help:"Create a post from the archetype"`
	List    ListCmd    `cmd:"" help:"List posts and their publication status"`
	Lint    LintCmd    `cmd:"" help:"Check content for front matter and link problems"`
	Build   BuildCmd   `cmd:"" help:"Build the site into the public directory"`
	Deploy  DeployCmd  `cmd:"" help:"Build the site and push it to the hosting repository"`
	Serve   ServeCmd   `cmd:"" help:"Serve the site locally, rebuilding on content changes"`
	Daemon  DaemonCmd  `cmd:"" help:"Run unattended periodic deploys"`
	Status  StatusCmd  `cmd:"" help:"Show content, worktree and deploy state"`
	History HistoryCmd `cmd:"" help:"Show recent deploys from the journal"`

	VersionCmd VersionCmd `cmd:"" name:"version" help:"Show detailed version information"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// shortHash abbreviates a commit hash for display.
func shortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}

// firstLine trims a commit message down to its subject.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
